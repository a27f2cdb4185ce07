package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/account-server/internal/apierror"
	"github.com/dtroode/account-server/internal/mocks"
	"github.com/dtroode/account-server/internal/model"
	"github.com/dtroode/account-server/internal/password"
	redisrepo "github.com/dtroode/account-server/internal/repository/redis"
	"github.com/dtroode/account-server/internal/testutil"
	"github.com/dtroode/account-server/internal/token"
)

func TestSession_Login(t *testing.T) {
	ctx := context.Background()
	user := model.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@x.com",
		PasswordHash: []byte("hash"),
	}

	t.Run("success", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		codec := mocks.NewTokenCodec(t)
		hasher := mocks.NewPasswordHasher(t)

		store.On("GetByIdentifier", ctx, "alice").Return(user, nil).Once()
		hasher.On("Compare", user.PasswordHash, "pw1").Return(true, nil).Once()
		codec.On("IssueAccessToken", user.ID).Return("access", nil).Once()
		codec.On("IssueRefreshToken", user.ID).Return("refresh", nil).Once()
		store.On("SetRefreshToken", ctx, user.ID, hashToken("refresh")).Return(nil).Once()

		svc := NewSession(store, codec, hasher, testutil.MakeNoopLogger())

		res, err := svc.Login(ctx, model.LoginParams{Identifier: "alice", Password: "pw1"})
		require.NoError(t, err)
		assert.Equal(t, "access", res.Tokens.AccessToken)
		assert.Equal(t, "refresh", res.Tokens.RefreshToken)
		assert.Equal(t, user.ID, res.User.ID)
		assert.Equal(t, "alice", res.User.Username)
	})

	t.Run("unknown user", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		store.On("GetByIdentifier", ctx, "nobody").Return(model.User{}, model.ErrNotFound).Once()

		svc := NewSession(store, mocks.NewTokenCodec(t), mocks.NewPasswordHasher(t), testutil.MakeNoopLogger())

		_, err := svc.Login(ctx, model.LoginParams{Identifier: "nobody", Password: "pw1"})
		assert.ErrorIs(t, err, apierror.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		hasher := mocks.NewPasswordHasher(t)
		store.On("GetByIdentifier", ctx, "alice").Return(user, nil).Once()
		hasher.On("Compare", user.PasswordHash, "wrong").Return(false, nil).Once()

		svc := NewSession(store, mocks.NewTokenCodec(t), hasher, testutil.MakeNoopLogger())

		_, err := svc.Login(ctx, model.LoginParams{Identifier: "alice", Password: "wrong"})
		assert.ErrorIs(t, err, apierror.ErrInvalidCredentials)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		store.On("GetByIdentifier", ctx, "alice").Return(model.User{}, errors.New("connection refused")).Once()

		svc := NewSession(store, mocks.NewTokenCodec(t), mocks.NewPasswordHasher(t), testutil.MakeNoopLogger())

		_, err := svc.Login(ctx, model.LoginParams{Identifier: "alice", Password: "pw1"})
		assert.ErrorIs(t, err, apierror.ErrInternal)
		assert.NotErrorIs(t, err, apierror.ErrInvalidCredentials)
	})

	t.Run("persist failure is internal", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		codec := mocks.NewTokenCodec(t)
		hasher := mocks.NewPasswordHasher(t)

		store.On("GetByIdentifier", ctx, "alice").Return(user, nil).Once()
		hasher.On("Compare", user.PasswordHash, "pw1").Return(true, nil).Once()
		codec.On("IssueAccessToken", user.ID).Return("access", nil).Once()
		codec.On("IssueRefreshToken", user.ID).Return("refresh", nil).Once()
		store.On("SetRefreshToken", ctx, user.ID, mock.Anything).Return(errors.New("timeout")).Once()

		svc := NewSession(store, codec, hasher, testutil.MakeNoopLogger())

		_, err := svc.Login(ctx, model.LoginParams{Identifier: "alice", Password: "pw1"})
		assert.ErrorIs(t, err, apierror.ErrInternal)
	})
}

func TestSession_Refresh(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	presented := "refresh-old"

	tests := []struct {
		name    string
		setup   func(store *mocks.UserStore, codec *mocks.TokenCodec)
		wantErr *apierror.APIError
	}{
		{
			name: "success",
			setup: func(store *mocks.UserStore, codec *mocks.TokenCodec) {
				codec.On("Verify", presented, model.RefreshToken).Return(model.TokenClaims{UserID: userID}, nil).Once()
				store.On("GetByID", ctx, userID).Return(model.User{ID: userID, RefreshTokenHash: hashToken(presented)}, nil).Once()
				codec.On("IssueAccessToken", userID).Return("access-new", nil).Once()
				codec.On("IssueRefreshToken", userID).Return("refresh-new", nil).Once()
				store.On("SwapRefreshToken", ctx, userID, hashToken(presented), hashToken("refresh-new")).Return(nil).Once()
			},
		},
		{
			name: "invalid signature",
			setup: func(_ *mocks.UserStore, codec *mocks.TokenCodec) {
				codec.On("Verify", presented, model.RefreshToken).Return(model.TokenClaims{}, token.ErrInvalidSignature).Once()
			},
			wantErr: apierror.ErrUnauthorized,
		},
		{
			name: "user deleted",
			setup: func(store *mocks.UserStore, codec *mocks.TokenCodec) {
				codec.On("Verify", presented, model.RefreshToken).Return(model.TokenClaims{UserID: userID}, nil).Once()
				store.On("GetByID", ctx, userID).Return(model.User{}, model.ErrNotFound).Once()
			},
			wantErr: apierror.ErrInvalidRefreshToken,
		},
		{
			name: "logged out",
			setup: func(store *mocks.UserStore, codec *mocks.TokenCodec) {
				codec.On("Verify", presented, model.RefreshToken).Return(model.TokenClaims{UserID: userID}, nil).Once()
				store.On("GetByID", ctx, userID).Return(model.User{ID: userID}, nil).Once()
			},
			wantErr: apierror.ErrUnauthorized,
		},
		{
			name: "stored token differs",
			setup: func(store *mocks.UserStore, codec *mocks.TokenCodec) {
				codec.On("Verify", presented, model.RefreshToken).Return(model.TokenClaims{UserID: userID}, nil).Once()
				store.On("GetByID", ctx, userID).Return(model.User{ID: userID, RefreshTokenHash: hashToken("refresh-newer")}, nil).Once()
			},
			wantErr: apierror.ErrRefreshTokenExpiredOrReused,
		},
		{
			name: "lost swap race",
			setup: func(store *mocks.UserStore, codec *mocks.TokenCodec) {
				codec.On("Verify", presented, model.RefreshToken).Return(model.TokenClaims{UserID: userID}, nil).Once()
				store.On("GetByID", ctx, userID).Return(model.User{ID: userID, RefreshTokenHash: hashToken(presented)}, nil).Once()
				codec.On("IssueAccessToken", userID).Return("access-new", nil).Once()
				codec.On("IssueRefreshToken", userID).Return("refresh-new", nil).Once()
				store.On("SwapRefreshToken", ctx, userID, mock.Anything, mock.Anything).Return(model.ErrTokenMismatch).Once()
			},
			wantErr: apierror.ErrRefreshTokenExpiredOrReused,
		},
		{
			name: "store unavailable",
			setup: func(store *mocks.UserStore, codec *mocks.TokenCodec) {
				codec.On("Verify", presented, model.RefreshToken).Return(model.TokenClaims{UserID: userID}, nil).Once()
				store.On("GetByID", ctx, userID).Return(model.User{}, errors.New("dial tcp: refused")).Once()
			},
			wantErr: apierror.ErrInternal,
		},
		{
			name: "swap failure",
			setup: func(store *mocks.UserStore, codec *mocks.TokenCodec) {
				codec.On("Verify", presented, model.RefreshToken).Return(model.TokenClaims{UserID: userID}, nil).Once()
				store.On("GetByID", ctx, userID).Return(model.User{ID: userID, RefreshTokenHash: hashToken(presented)}, nil).Once()
				codec.On("IssueAccessToken", userID).Return("access-new", nil).Once()
				codec.On("IssueRefreshToken", userID).Return("refresh-new", nil).Once()
				store.On("SwapRefreshToken", ctx, userID, mock.Anything, mock.Anything).Return(errors.New("i/o timeout")).Once()
			},
			wantErr: apierror.ErrInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewUserStore(t)
			codec := mocks.NewTokenCodec(t)
			tt.setup(store, codec)

			svc := NewSession(store, codec, mocks.NewPasswordHasher(t), testutil.MakeNoopLogger())

			pair, err := svc.Refresh(ctx, presented)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "access-new", pair.AccessToken)
			assert.Equal(t, "refresh-new", pair.RefreshToken)
		})
	}
}

func TestSession_Refresh_Empty(t *testing.T) {
	svc := NewSession(mocks.NewUserStore(t), mocks.NewTokenCodec(t), mocks.NewPasswordHasher(t), testutil.MakeNoopLogger())

	_, err := svc.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, apierror.ErrUnauthorized)
}

func TestSession_Logout(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := mocks.NewUserStore(t)
	store.On("SetRefreshToken", ctx, userID, []byte(nil)).Return(nil).Twice()

	svc := NewSession(store, mocks.NewTokenCodec(t), mocks.NewPasswordHasher(t), testutil.MakeNoopLogger())

	require.NoError(t, svc.Logout(ctx, userID))
	require.NoError(t, svc.Logout(ctx, userID))
}

func TestSession_Logout_UnknownUser(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := mocks.NewUserStore(t)
	store.On("SetRefreshToken", ctx, userID, []byte(nil)).Return(model.ErrNotFound).Once()

	svc := NewSession(store, mocks.NewTokenCodec(t), mocks.NewPasswordHasher(t), testutil.MakeNoopLogger())

	assert.ErrorIs(t, svc.Logout(ctx, userID), apierror.ErrNotFound)
}

func TestSession_ChangePassword(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), PasswordHash: []byte("old-hash")}

	t.Run("success", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		hasher := mocks.NewPasswordHasher(t)
		store.On("GetByID", ctx, user.ID).Return(user, nil).Once()
		hasher.On("Compare", user.PasswordHash, "pw1").Return(true, nil).Once()
		hasher.On("Hash", "pw2").Return([]byte("new-hash"), nil).Once()
		store.On("UpdatePasswordHash", ctx, user.ID, []byte("new-hash")).Return(nil).Once()

		svc := NewSession(store, mocks.NewTokenCodec(t), hasher, testutil.MakeNoopLogger())
		require.NoError(t, svc.ChangePassword(ctx, user.ID, "pw1", "pw2"))
	})

	t.Run("wrong old password", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		hasher := mocks.NewPasswordHasher(t)
		store.On("GetByID", ctx, user.ID).Return(user, nil).Once()
		hasher.On("Compare", user.PasswordHash, "bad").Return(false, nil).Once()

		svc := NewSession(store, mocks.NewTokenCodec(t), hasher, testutil.MakeNoopLogger())
		assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "bad", "pw2"), apierror.ErrInvalidCredentials)
	})

	t.Run("user vanished", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		store.On("GetByID", ctx, user.ID).Return(model.User{}, model.ErrNotFound).Once()

		svc := NewSession(store, mocks.NewTokenCodec(t), mocks.NewPasswordHasher(t), testutil.MakeNoopLogger())
		assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "pw1", "pw2"), apierror.ErrNotFound)
	})

	t.Run("new password too long", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		hasher := mocks.NewPasswordHasher(t)
		store.On("GetByID", ctx, user.ID).Return(user, nil).Once()
		hasher.On("Compare", user.PasswordHash, "pw1").Return(true, nil).Once()
		hasher.On("Hash", "long").Return(nil, model.ErrPasswordTooLong).Once()

		svc := NewSession(store, mocks.NewTokenCodec(t), hasher, testutil.MakeNoopLogger())
		err := svc.ChangePassword(ctx, user.ID, "pw1", "long")
		assert.ErrorIs(t, err, apierror.ErrValidation)
		assert.False(t, errors.Is(err, apierror.ErrInternal))
	})

	t.Run("hasher failure", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		hasher := mocks.NewPasswordHasher(t)
		store.On("GetByID", ctx, user.ID).Return(user, nil).Once()
		hasher.On("Compare", user.PasswordHash, "pw1").Return(true, nil).Once()
		hasher.On("Hash", "pw2").Return(nil, errors.New("rng failure")).Once()

		svc := NewSession(store, mocks.NewTokenCodec(t), hasher, testutil.MakeNoopLogger())
		assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "pw1", "pw2"), apierror.ErrInternal)
	})
}

func TestSession_ChangePassword_TooLongKeepsOldPassword(t *testing.T) {
	ctx := context.Background()
	svc, _, alice := newLiveSession(t)

	err := svc.ChangePassword(ctx, alice.ID, "pw1", strings.Repeat("x", 80))
	require.ErrorIs(t, err, apierror.ErrValidation)

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPCode)
	assert.Equal(t, "password is too long", apiErr.Message)

	_, err = svc.Login(ctx, model.LoginParams{Identifier: "alice", Password: "pw1"})
	require.NoError(t, err)
}

func TestSession_Authenticate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	codec := mocks.NewTokenCodec(t)
	codec.On("Verify", "good", model.AccessToken).Return(model.TokenClaims{UserID: userID}, nil).Once()
	codec.On("Verify", "bad", model.AccessToken).Return(model.TokenClaims{}, token.ErrExpiredToken).Once()

	svc := NewSession(mocks.NewUserStore(t), codec, mocks.NewPasswordHasher(t), testutil.MakeNoopLogger())

	got, err := svc.Authenticate(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = svc.Authenticate(ctx, "bad")
	assert.ErrorIs(t, err, apierror.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, apierror.ErrUnauthorized)
}

// newLiveSession wires the session to a real codec, bcrypt and a redis store backed by miniredis.
func newLiveSession(t *testing.T) (*Session, *redisrepo.UserRepository, model.User) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := redisrepo.NewUserRepository(client)

	codec, err := token.NewJWT(token.Config{
		Access:  token.KeyConfig{Secret: "access-secret", TTL: 15 * time.Minute},
		Refresh: token.KeyConfig{Secret: "refresh-secret", TTL: 240 * time.Hour},
	})
	require.NoError(t, err)

	hasher := password.NewBcrypt(4)
	pwHash, err := hasher.Hash("pw1")
	require.NoError(t, err)

	now := time.Now()
	user, err := store.Create(context.Background(), model.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@x.com",
		FullName:     "Alice",
		Avatar:       "http://media/avatar/alice.png",
		PasswordHash: pwHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)

	return NewSession(store, codec, hasher, testutil.MakeNoopLogger()), store, user
}

func TestSession_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc, store, alice := newLiveSession(t)

	res, err := svc.Login(ctx, model.LoginParams{Identifier: "alice", Password: "pw1"})
	require.NoError(t, err)
	r1 := res.Tokens.RefreshToken

	stored, err := store.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, hashToken(r1), stored.RefreshTokenHash)

	id, err := svc.Authenticate(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)

	_, err = svc.Authenticate(ctx, r1)
	assert.ErrorIs(t, err, apierror.ErrUnauthorized)

	pair, err := svc.Refresh(ctx, r1)
	require.NoError(t, err)
	r2 := pair.RefreshToken
	assert.NotEqual(t, r1, r2)

	_, err = svc.Refresh(ctx, r1)
	assert.ErrorIs(t, err, apierror.ErrRefreshTokenExpiredOrReused)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apierror.ErrUnauthorized)

	pair, err = svc.Refresh(ctx, r2)
	require.NoError(t, err)
	r3 := pair.RefreshToken

	require.NoError(t, svc.ChangePassword(ctx, alice.ID, "pw1", "pw2"))

	_, err = svc.Login(ctx, model.LoginParams{Identifier: "alice", Password: "pw1"})
	assert.ErrorIs(t, err, apierror.ErrInvalidCredentials)

	require.NoError(t, svc.Logout(ctx, alice.ID))
	require.NoError(t, svc.Logout(ctx, alice.ID))

	_, err = svc.Refresh(ctx, r3)
	assert.ErrorIs(t, err, apierror.ErrUnauthorized)

	res, err = svc.Login(ctx, model.LoginParams{Identifier: "alice@x.com", Password: "pw2"})
	require.NoError(t, err)
	assert.Empty(t, res.User.CoverImage)
}

func TestSession_Login_DoesNotRevealUserExistence(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLiveSession(t)

	_, errUnknown := svc.Login(ctx, model.LoginParams{Identifier: "mallory", Password: "pw1"})
	_, errWrong := svc.Login(ctx, model.LoginParams{Identifier: "alice", Password: "nope"})

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.Equal(t, apierror.From(errUnknown).HTTPCode, apierror.From(errWrong).HTTPCode)
}

func TestSession_Login_ReplacesPreviousSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLiveSession(t)

	first, err := svc.Login(ctx, model.LoginParams{Identifier: "alice", Password: "pw1"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, model.LoginParams{Identifier: "alice", Password: "pw1"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.Tokens.RefreshToken)
	assert.ErrorIs(t, err, apierror.ErrRefreshTokenExpiredOrReused)
}

func TestSession_Refresh_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLiveSession(t)

	res, err := svc.Login(ctx, model.LoginParams{Identifier: "alice", Password: "pw1"})
	require.NoError(t, err)

	const racers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		winner  string
		rejects int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				winner = pair.RefreshToken
				return
			}
			if errors.Is(err, apierror.ErrRefreshTokenExpiredOrReused) {
				rejects++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, rejects)

	_, err = svc.Refresh(ctx, winner)
	assert.NoError(t, err)
}
