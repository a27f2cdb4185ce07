package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/account-server/internal/apierror"
	"github.com/dtroode/account-server/internal/logger"
	"github.com/dtroode/account-server/internal/model"
)

// Account manages user registration, profile details and media.
type Account struct {
	users   model.UserStore
	hasher  model.PasswordHasher
	storage model.Storage
	logger  *logger.Logger
	now     func() time.Time
}

func NewAccount(users model.UserStore, hasher model.PasswordHasher, storage model.Storage, logger *logger.Logger) *Account {
	return &Account{
		users:   users,
		hasher:  hasher,
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Register creates a user, uploading avatar and optional cover image first.
// Uploaded objects are removed if the user cannot be created.
func (s *Account) Register(ctx context.Context, params model.RegisterParams) (model.Profile, error) {
	username := strings.ToLower(strings.TrimSpace(params.Username))
	email := strings.ToLower(strings.TrimSpace(params.Email))
	fullName := strings.TrimSpace(params.FullName)

	if username == "" || email == "" || fullName == "" || params.Password == "" {
		return model.Profile{}, apierror.NewErrValidation("all fields are required")
	}
	if params.Avatar.Reader == nil {
		return model.Profile{}, apierror.NewErrValidation("avatar file is required")
	}

	for _, identifier := range []string{username, email} {
		_, err := s.users.GetByIdentifier(ctx, identifier)
		if err == nil {
			return model.Profile{}, apierror.NewErrConflict("user with email or username already exists")
		}
		if !errors.Is(err, model.ErrNotFound) {
			return model.Profile{}, apierror.NewErrInternal(fmt.Errorf("failed to check existing user: %w", err))
		}
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return model.Profile{}, hashFailure(err)
	}

	userID := uuid.New()
	var uploaded []string

	avatarURL, avatarKey, err := s.upload(ctx, userID, model.MediaAvatar, params.Avatar)
	if err != nil {
		return model.Profile{}, err
	}
	uploaded = append(uploaded, avatarKey)

	var coverURL string
	if params.CoverImage != nil && params.CoverImage.Reader != nil {
		var coverKey string
		coverURL, coverKey, err = s.upload(ctx, userID, model.MediaCoverImage, *params.CoverImage)
		if err != nil {
			s.discard(ctx, uploaded...)
			return model.Profile{}, err
		}
		uploaded = append(uploaded, coverKey)
	}

	now := s.now().UTC()
	user, err := s.users.Create(ctx, model.User{
		ID:           userID,
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		s.discard(ctx, uploaded...)
		if errors.Is(err, model.ErrConflict) {
			return model.Profile{}, apierror.NewErrConflict("user with email or username already exists")
		}
		s.logger.Error("Account service: failed to create user",
			"username", username,
			"error", err.Error())
		return model.Profile{}, apierror.NewErrInternal(fmt.Errorf("failed to create user: %w", err))
	}

	s.logger.Info("Account service: user registered",
		"user_id", user.ID)

	return user.Profile(), nil
}

// CurrentUser returns the profile of an authenticated user.
func (s *Account) CurrentUser(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Profile{}, apierror.NewErrNotFound("user")
	}
	if err != nil {
		return model.Profile{}, apierror.NewErrInternal(fmt.Errorf("failed to get user by id: %w", err))
	}
	return user.Profile(), nil
}

// UpdateDetails changes full name, username and email.
func (s *Account) UpdateDetails(ctx context.Context, userID uuid.UUID, details model.AccountDetails) (model.Profile, error) {
	details.Username = strings.ToLower(strings.TrimSpace(details.Username))
	details.Email = strings.ToLower(strings.TrimSpace(details.Email))
	details.FullName = strings.TrimSpace(details.FullName)

	if details.Username == "" || details.Email == "" || details.FullName == "" {
		return model.Profile{}, apierror.NewErrValidation("all fields are required")
	}

	user, err := s.users.UpdateDetails(ctx, userID, details)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return model.Profile{}, apierror.NewErrNotFound("user")
	case errors.Is(err, model.ErrConflict):
		return model.Profile{}, apierror.NewErrConflict("user with email or username already exists")
	case err != nil:
		s.logger.Error("Account service: failed to update details",
			"user_id", userID,
			"error", err.Error())
		return model.Profile{}, apierror.NewErrInternal(fmt.Errorf("failed to update details: %w", err))
	}

	return user.Profile(), nil
}

// UpdateAvatar replaces the avatar image.
func (s *Account) UpdateAvatar(ctx context.Context, userID uuid.UUID, file model.Upload) (model.Profile, error) {
	return s.replaceMedia(ctx, userID, model.MediaAvatar, file)
}

// UpdateCoverImage replaces the cover image.
func (s *Account) UpdateCoverImage(ctx context.Context, userID uuid.UUID, file model.Upload) (model.Profile, error) {
	return s.replaceMedia(ctx, userID, model.MediaCoverImage, file)
}

func (s *Account) replaceMedia(ctx context.Context, userID uuid.UUID, kind model.MediaKind, file model.Upload) (model.Profile, error) {
	if file.Reader == nil {
		return model.Profile{}, apierror.NewErrValidation(fmt.Sprintf("%s file is missing", kind))
	}

	current, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Profile{}, apierror.NewErrNotFound("user")
	}
	if err != nil {
		return model.Profile{}, apierror.NewErrInternal(fmt.Errorf("failed to get user by id: %w", err))
	}

	url, key, err := s.upload(ctx, userID, kind, file)
	if err != nil {
		return model.Profile{}, err
	}

	user, err := s.users.UpdateMedia(ctx, userID, kind, url)
	if err != nil {
		s.discard(ctx, key)
		if errors.Is(err, model.ErrNotFound) {
			return model.Profile{}, apierror.NewErrNotFound("user")
		}
		return model.Profile{}, apierror.NewErrInternal(fmt.Errorf("failed to update %s: %w", kind, err))
	}

	previous := current.Avatar
	if kind == model.MediaCoverImage {
		previous = current.CoverImage
	}
	if oldKey, ok := s.storage.KeyFromURL(previous); ok {
		s.discard(ctx, oldKey)
	}

	s.logger.Info("Account service: media replaced",
		"user_id", userID,
		"kind", string(kind))

	return user.Profile(), nil
}

func (s *Account) upload(ctx context.Context, userID uuid.UUID, kind model.MediaKind, file model.Upload) (string, string, error) {
	key := mediaKey(userID, kind, file.Filename)

	url, err := s.storage.Upload(ctx, key, file.Reader, file.Size, file.ContentType)
	if err != nil {
		s.logger.Error("Account service: failed to upload media",
			"user_id", userID,
			"kind", string(kind),
			"error", err.Error())
		return "", "", apierror.NewErrInternal(fmt.Errorf("failed to upload %s: %w", kind, err))
	}
	return url, key, nil
}

// discard removes objects best-effort.
func (s *Account) discard(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("Account service: failed to delete media",
				"key", key,
				"error", err.Error())
		}
	}
}

func mediaKey(userID uuid.UUID, kind model.MediaKind, filename string) string {
	return fmt.Sprintf("%s/%s/%s%s", kind, userID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
}
