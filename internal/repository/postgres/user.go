package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/account-server/internal/model"
)

const uniqueViolation = "23505"

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash, refresh_token_hash, created_at, updated_at`

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Ping checks that the pool can reach the database.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar, &user.CoverImage,
		&user.PasswordHash, &user.RefreshTokenHash, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

// GetByIdentifier looks a user up by username or email.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	query := `SELECT ` + userColumns + `
			  FROM users WHERE username = $1 OR email = $1
			  LIMIT 1`

	user, err := scanUser(r.db.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(identifier))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by identifier: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING ` + userColumns

	savedUser, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage,
		user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, model.ErrConflict
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return savedUser, nil
}

// SetRefreshToken overwrites the stored refresh token hash. A nil hash clears it.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, tokenHash []byte) error {
	const query = `UPDATE users SET refresh_token_hash = $2, updated_at = NOW() WHERE id = $1`

	cmd, err := r.db.Exec(ctx, query, id, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// SwapRefreshToken replaces the stored hash only if it still equals oldHash.
// The condition and the write happen in one statement, so of two concurrent
// swaps from the same old value only one can match.
func (r *UserRepository) SwapRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash []byte) error {
	const query = `
        UPDATE users SET refresh_token_hash = $3, updated_at = NOW()
        WHERE id = $1 AND refresh_token_hash = $2
    `

	cmd, err := r.db.Exec(ctx, query, id, oldHash, newHash)
	if err != nil {
		return fmt.Errorf("failed to swap refresh token: %w", err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrNotFound
	}
	return model.ErrTokenMismatch
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash []byte) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	cmd, err := r.db.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateDetails(ctx context.Context, id uuid.UUID, details model.AccountDetails) (model.User, error) {
	query := `UPDATE users SET full_name = $2, username = $3, email = $4, updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, id, details.FullName, details.Username, details.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		if isUniqueViolation(err) {
			return model.User{}, model.ErrConflict
		}
		return model.User{}, fmt.Errorf("failed to update account details: %w", err)
	}

	return user, nil
}

func (r *UserRepository) UpdateMedia(ctx context.Context, id uuid.UUID, kind model.MediaKind, url string) (model.User, error) {
	var column string
	switch kind {
	case model.MediaAvatar:
		column = "avatar"
	case model.MediaCoverImage:
		column = "cover_image"
	default:
		return model.User{}, fmt.Errorf("unknown media kind %q", kind)
	}

	query := `UPDATE users SET ` + column + ` = $2, updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, id, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to update %s: %w", kind, err)
	}

	return user, nil
}

func (r *UserRepository) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
