package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for user accounts.
type UserStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, tokenHash []byte) error
	SwapRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash []byte) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash []byte) error
	UpdateDetails(ctx context.Context, id uuid.UUID, details AccountDetails) (User, error)
	UpdateMedia(ctx context.Context, id uuid.UUID, kind MediaKind, url string) (User, error)
}

// User represents a stored user with authentication material.
type User struct {
	ID               uuid.UUID
	Username         string
	Email            string
	FullName         string
	Avatar           string
	CoverImage       string
	PasswordHash     []byte
	RefreshTokenHash []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Profile is the user representation safe to return to clients.
type Profile struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Profile strips the password hash and refresh token.
func (u User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// AccountDetails holds the profile fields a user may edit.
type AccountDetails struct {
	FullName string
	Username string
	Email    string
}

// MediaKind enumerates user media slots.
type MediaKind string

const (
	// MediaAvatar is the profile picture.
	MediaAvatar MediaKind = "avatar"
	// MediaCoverImage is the channel banner.
	MediaCoverImage MediaKind = "cover_image"
)
