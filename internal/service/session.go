package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/account-server/internal/apierror"
	"github.com/dtroode/account-server/internal/logger"
	"github.com/dtroode/account-server/internal/model"
)

// Session issues, rotates and revokes access/refresh token pairs. The only
// session state is the refresh token hash on the user record; at most one
// refresh token per user is valid at a time.
type Session struct {
	users  model.UserStore
	codec  model.TokenCodec
	hasher model.PasswordHasher
	logger *logger.Logger
}

func NewSession(users model.UserStore, codec model.TokenCodec, hasher model.PasswordHasher, logger *logger.Logger) *Session {
	return &Session{users: users, codec: codec, hasher: hasher, logger: logger}
}

// Login verifies credentials and starts a new session, replacing any previous one.
// Unknown users and wrong passwords fail identically.
func (s *Session) Login(ctx context.Context, params model.LoginParams) (model.LoginResult, error) {
	s.logger.Debug("Session service: starting login",
		"identifier", params.Identifier)

	user, err := s.users.GetByIdentifier(ctx, params.Identifier)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Info("Session service: login for unknown user",
			"identifier", params.Identifier)
		return model.LoginResult{}, apierror.NewErrInvalidCredentials()
	}
	if err != nil {
		s.logger.Error("Session service: failed to get user by identifier",
			"identifier", params.Identifier,
			"error", err.Error())
		return model.LoginResult{}, apierror.NewErrInternal(fmt.Errorf("failed to get user by identifier: %w", err))
	}

	ok, err := s.hasher.Compare(user.PasswordHash, params.Password)
	if err != nil {
		s.logger.Error("Session service: failed to compare password",
			"user_id", user.ID,
			"error", err.Error())
		return model.LoginResult{}, apierror.NewErrInternal(err)
	}
	if !ok {
		s.logger.Info("Session service: wrong password",
			"user_id", user.ID)
		return model.LoginResult{}, apierror.NewErrInvalidCredentials()
	}

	pair, refreshHash, err := s.mint(user.ID)
	if err != nil {
		return model.LoginResult{}, err
	}

	err = s.users.SetRefreshToken(ctx, user.ID, refreshHash)
	if errors.Is(err, model.ErrNotFound) {
		return model.LoginResult{}, apierror.NewErrNotFound("user")
	}
	if err != nil {
		s.logger.Error("Session service: failed to persist refresh token",
			"user_id", user.ID,
			"error", err.Error())
		return model.LoginResult{}, apierror.NewErrInternal(fmt.Errorf("persist refresh: %w", err))
	}

	s.logger.Info("Session service: user logged in",
		"user_id", user.ID)

	return model.LoginResult{User: user.Profile(), Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// equal the stored one; the stored value is then replaced with a conditional
// write so two concurrent exchanges of the same token cannot both succeed.
func (s *Session) Refresh(ctx context.Context, presented string) (model.TokenPair, error) {
	if presented == "" {
		return model.TokenPair{}, apierror.NewErrUnauthorized()
	}

	claims, err := s.codec.Verify(presented, model.RefreshToken)
	if err != nil {
		s.logger.Info("Session service: refresh token rejected",
			"reason", err.Error())
		return model.TokenPair{}, apierror.NewErrUnauthorized()
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Info("Session service: refresh token for unknown user",
			"user_id", claims.UserID)
		return model.TokenPair{}, apierror.NewErrInvalidRefreshToken()
	}
	if err != nil {
		s.logger.Error("Session service: failed to get user by id",
			"user_id", claims.UserID,
			"error", err.Error())
		return model.TokenPair{}, apierror.NewErrInternal(fmt.Errorf("failed to get user by id: %w", err))
	}

	if len(user.RefreshTokenHash) == 0 {
		s.logger.Info("Session service: refresh without active session",
			"user_id", user.ID)
		return model.TokenPair{}, apierror.NewErrUnauthorized()
	}

	presentedHash := hashToken(presented)
	if !equalBytes(user.RefreshTokenHash, presentedHash) {
		s.logger.Info("Session service: stale or reused refresh token",
			"user_id", user.ID)
		return model.TokenPair{}, apierror.NewErrRefreshTokenExpiredOrReused()
	}

	pair, refreshHash, err := s.mint(user.ID)
	if err != nil {
		return model.TokenPair{}, err
	}

	err = s.users.SwapRefreshToken(ctx, user.ID, presentedHash, refreshHash)
	switch {
	case errors.Is(err, model.ErrTokenMismatch):
		s.logger.Info("Session service: lost refresh rotation race",
			"user_id", user.ID)
		return model.TokenPair{}, apierror.NewErrRefreshTokenExpiredOrReused()
	case errors.Is(err, model.ErrNotFound):
		return model.TokenPair{}, apierror.NewErrInvalidRefreshToken()
	case err != nil:
		s.logger.Error("Session service: failed to rotate refresh token",
			"user_id", user.ID,
			"error", err.Error())
		return model.TokenPair{}, apierror.NewErrInternal(fmt.Errorf("rotate refresh: %w", err))
	}

	s.logger.Info("Session service: tokens refreshed",
		"user_id", user.ID)

	return pair, nil
}

// Logout clears the stored refresh token. Logging out twice is not an error.
func (s *Session) Logout(ctx context.Context, userID uuid.UUID) error {
	err := s.users.SetRefreshToken(ctx, userID, nil)
	if errors.Is(err, model.ErrNotFound) {
		return apierror.NewErrNotFound("user")
	}
	if err != nil {
		s.logger.Error("Session service: failed to clear refresh token",
			"user_id", userID,
			"error", err.Error())
		return apierror.NewErrInternal(fmt.Errorf("clear refresh: %w", err))
	}

	s.logger.Info("Session service: user logged out",
		"user_id", userID)
	return nil
}

// ChangePassword replaces the password hash after checking the old password.
// The current refresh token stays valid.
func (s *Session) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return apierror.NewErrNotFound("user")
	}
	if err != nil {
		return apierror.NewErrInternal(fmt.Errorf("failed to get user by id: %w", err))
	}

	ok, err := s.hasher.Compare(user.PasswordHash, oldPassword)
	if err != nil {
		return apierror.NewErrInternal(err)
	}
	if !ok {
		s.logger.Info("Session service: wrong old password",
			"user_id", userID)
		return apierror.NewErrInvalidCredentials()
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return hashFailure(err)
	}

	err = s.users.UpdatePasswordHash(ctx, userID, newHash)
	if errors.Is(err, model.ErrNotFound) {
		return apierror.NewErrNotFound("user")
	}
	if err != nil {
		s.logger.Error("Session service: failed to update password",
			"user_id", userID,
			"error", err.Error())
		return apierror.NewErrInternal(fmt.Errorf("failed to update password hash: %w", err))
	}

	s.logger.Info("Session service: password changed",
		"user_id", userID)
	return nil
}

// Authenticate verifies an access token. No store lookup is made.
func (s *Session) Authenticate(_ context.Context, accessToken string) (uuid.UUID, error) {
	if accessToken == "" {
		return uuid.Nil, apierror.NewErrUnauthorized()
	}
	claims, err := s.codec.Verify(accessToken, model.AccessToken)
	if err != nil {
		s.logger.Debug("Session service: access token rejected",
			"reason", err.Error())
		return uuid.Nil, apierror.NewErrUnauthorized()
	}
	return claims.UserID, nil
}

// hashFailure maps a hasher error to the API error returned to callers.
func hashFailure(err error) error {
	if errors.Is(err, model.ErrPasswordTooLong) {
		return apierror.NewErrValidation("password is too long")
	}
	return apierror.NewErrInternal(err)
}

func (s *Session) mint(userID uuid.UUID) (model.TokenPair, []byte, error) {
	access, err := s.codec.IssueAccessToken(userID)
	if err != nil {
		return model.TokenPair{}, nil, apierror.NewErrInternal(fmt.Errorf("issue access: %w", err))
	}
	refresh, err := s.codec.IssueRefreshToken(userID)
	if err != nil {
		return model.TokenPair{}, nil, apierror.NewErrInternal(fmt.Errorf("issue refresh: %w", err))
	}
	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, hashToken(refresh), nil
}

func hashToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

func equalBytes(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
