// Package redis stores user records as Redis hashes. Multi-key invariants
// (unique username/email, conditional refresh token swap) are enforced by
// Lua scripts, which Redis runs atomically.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dtroode/account-server/internal/model"
)

const (
	userKeyPrefix     = "user:"
	usernameKeyPrefix = "user:username:"
	emailKeyPrefix    = "user:email:"

	fieldID               = "id"
	fieldUsername         = "username"
	fieldEmail            = "email"
	fieldFullName         = "full_name"
	fieldAvatar           = "avatar"
	fieldCoverImage       = "cover_image"
	fieldPasswordHash     = "password_hash"
	fieldRefreshTokenHash = "refresh_token_hash"
	fieldCreatedAt        = "created_at"
	fieldUpdatedAt        = "updated_at"
)

const (
	statusNotFound int64 = 0
	statusConflict int64 = 1
	statusMismatch int64 = 1
	statusOK       int64 = 2
)

var createUserLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 or redis.call("EXISTS", KEYS[3]) == 1 then
  return 1
end
redis.call("SET", KEYS[2], ARGV[1])
redis.call("SET", KEYS[3], ARGV[1])
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
return 2
`)

var setFieldsLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 2
`)

var setRefreshLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if ARGV[1] == "" then
  redis.call("HDEL", KEYS[1], "refresh_token_hash")
else
  redis.call("HSET", KEYS[1], "refresh_token_hash", ARGV[1])
end
redis.call("HSET", KEYS[1], "updated_at", ARGV[2])
return 2
`)

var swapRefreshLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local current = redis.call("HGET", KEYS[1], "refresh_token_hash")
if not current or ARGV[1] == "" or current ~= ARGV[1] then
  return 1
end
redis.call("HSET", KEYS[1], "refresh_token_hash", ARGV[2], "updated_at", ARGV[3])
return 2
`)

var updateDetailsLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local id = ARGV[1]
local owner = redis.call("GET", KEYS[2])
if owner and owner ~= id then
  return 1
end
owner = redis.call("GET", KEYS[3])
if owner and owner ~= id then
  return 1
end
local old_username = redis.call("HGET", KEYS[1], "username")
local old_email = redis.call("HGET", KEYS[1], "email")
if old_username ~= ARGV[5] then
  redis.call("DEL", ARGV[2] .. old_username)
  redis.call("SET", KEYS[2], id)
end
if old_email ~= ARGV[6] then
  redis.call("DEL", ARGV[3] .. old_email)
  redis.call("SET", KEYS[3], id)
end
redis.call("HSET", KEYS[1], "full_name", ARGV[4], "username", ARGV[5], "email", ARGV[6], "updated_at", ARGV[7])
return 2
`)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewUserRepository(client redis.UniversalClient) *UserRepository {
	return &UserRepository{client: client, now: time.Now}
}

// Ping checks that redis is reachable.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func userKey(id uuid.UUID) string {
	return userKeyPrefix + id.String()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	identifier = normalize(identifier)

	id, err := r.client.Get(ctx, usernameKeyPrefix+identifier).Result()
	if errors.Is(err, redis.Nil) {
		id, err = r.client.Get(ctx, emailKeyPrefix+identifier).Result()
	}
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by identifier: %w", err)
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return model.User{}, fmt.Errorf("corrupt user index for %q: %w", identifier, err)
	}

	return r.GetByID(ctx, userID)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	fields, err := r.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}
	if len(fields) == 0 {
		return model.User{}, model.ErrNotFound
	}

	return decodeUser(fields)
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	user.Username = normalize(user.Username)
	user.Email = normalize(user.Email)

	args := []interface{}{
		user.ID.String(),
		fieldID, user.ID.String(),
		fieldUsername, user.Username,
		fieldEmail, user.Email,
		fieldFullName, user.FullName,
		fieldAvatar, user.Avatar,
		fieldCoverImage, user.CoverImage,
		fieldPasswordHash, user.PasswordHash,
		fieldCreatedAt, formatTime(user.CreatedAt),
		fieldUpdatedAt, formatTime(user.UpdatedAt),
	}
	keys := []string{userKey(user.ID), usernameKeyPrefix + user.Username, emailKeyPrefix + user.Email}

	status, err := createUserLua.Run(ctx, r.client, keys, args...).Int64()
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	if status == statusConflict {
		return model.User{}, model.ErrConflict
	}

	return r.GetByID(ctx, user.ID)
}

// SetRefreshToken overwrites the stored refresh token hash. A nil hash clears it.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, tokenHash []byte) error {
	status, err := setRefreshLua.Run(ctx, r.client, []string{userKey(id)}, tokenHash, formatTime(r.now())).Int64()
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	if status == statusNotFound {
		return model.ErrNotFound
	}
	return nil
}

// SwapRefreshToken replaces the stored hash only if it still equals oldHash.
func (r *UserRepository) SwapRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash []byte) error {
	status, err := swapRefreshLua.Run(ctx, r.client, []string{userKey(id)}, oldHash, newHash, formatTime(r.now())).Int64()
	if err != nil {
		return fmt.Errorf("failed to swap refresh token: %w", err)
	}
	switch status {
	case statusNotFound:
		return model.ErrNotFound
	case statusMismatch:
		return model.ErrTokenMismatch
	default:
		return nil
	}
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash []byte) error {
	return r.setFields(ctx, id, fieldPasswordHash, passwordHash)
}

func (r *UserRepository) UpdateDetails(ctx context.Context, id uuid.UUID, details model.AccountDetails) (model.User, error) {
	username := normalize(details.Username)
	email := normalize(details.Email)

	keys := []string{userKey(id), usernameKeyPrefix + username, emailKeyPrefix + email}
	args := []interface{}{
		id.String(), usernameKeyPrefix, emailKeyPrefix,
		details.FullName, username, email, formatTime(r.now()),
	}

	status, err := updateDetailsLua.Run(ctx, r.client, keys, args...).Int64()
	if err != nil {
		return model.User{}, fmt.Errorf("failed to update account details: %w", err)
	}
	switch status {
	case statusNotFound:
		return model.User{}, model.ErrNotFound
	case statusConflict:
		return model.User{}, model.ErrConflict
	}

	return r.GetByID(ctx, id)
}

func (r *UserRepository) UpdateMedia(ctx context.Context, id uuid.UUID, kind model.MediaKind, url string) (model.User, error) {
	var field string
	switch kind {
	case model.MediaAvatar:
		field = fieldAvatar
	case model.MediaCoverImage:
		field = fieldCoverImage
	default:
		return model.User{}, fmt.Errorf("unknown media kind %q", kind)
	}

	if err := r.setFields(ctx, id, field, url); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) setFields(ctx context.Context, id uuid.UUID, pairs ...interface{}) error {
	args := append(pairs, fieldUpdatedAt, formatTime(r.now()))
	status, err := setFieldsLua.Run(ctx, r.client, []string{userKey(id)}, args...).Int64()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if status == statusNotFound {
		return model.ErrNotFound
	}
	return nil
}

func decodeUser(fields map[string]string) (model.User, error) {
	id, err := uuid.Parse(fields[fieldID])
	if err != nil {
		return model.User{}, fmt.Errorf("corrupt user record: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return model.User{}, fmt.Errorf("corrupt user created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
	if err != nil {
		return model.User{}, fmt.Errorf("corrupt user updated_at: %w", err)
	}

	user := model.User{
		ID:           id,
		Username:     fields[fieldUsername],
		Email:        fields[fieldEmail],
		FullName:     fields[fieldFullName],
		Avatar:       fields[fieldAvatar],
		CoverImage:   fields[fieldCoverImage],
		PasswordHash: []byte(fields[fieldPasswordHash]),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
	if h, ok := fields[fieldRefreshTokenHash]; ok && h != "" {
		user.RefreshTokenHash = []byte(h)
	}

	return user, nil
}
