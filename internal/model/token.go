package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind distinguishes the two signing configurations.
type TokenKind string

const (
	// AccessToken is the short-lived, stateless bearer credential.
	AccessToken TokenKind = "access"
	// RefreshToken is the long-lived credential validated against stored state.
	RefreshToken TokenKind = "refresh"
)

// TokenClaims is what a verified token decodes to.
type TokenClaims struct {
	UserID    uuid.UUID
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec issues and verifies signed, expiring tokens.
type TokenCodec interface {
	IssueAccessToken(userID uuid.UUID) (string, error)
	IssueRefreshToken(userID uuid.UUID) (string, error)
	Verify(token string, kind TokenKind) (TokenClaims, error)
}

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
