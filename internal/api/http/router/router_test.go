package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpctx "github.com/dtroode/account-server/internal/api/http/context"
	"github.com/dtroode/account-server/internal/api/http/cookie"
	"github.com/dtroode/account-server/internal/apierror"
	"github.com/dtroode/account-server/internal/mocks"
	"github.com/dtroode/account-server/internal/model"
	"github.com/dtroode/account-server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

const testOrigin = "http://localhost:5173"

func newTestEngine(t *testing.T) (*gin.Engine, *mocks.SessionService, *mocks.AccountService) {
	t.Helper()
	session := mocks.NewSessionService(t)
	account := mocks.NewAccountService(t)
	r := New(session, account, okPinger{}, httpctx.NewManager(), Options{
		Cookies:        cookie.Options{AccessMaxAge: time.Minute, RefreshMaxAge: time.Hour},
		AllowedOrigins: []string{testOrigin},
		MaxBodyBytes:   16 << 10,
	}, testutil.MakeNoopLogger())
	return r.Register(), session, account
}

func TestRouter_SecuredRoutesRequireToken(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/users/logout"},
		{http.MethodPost, "/api/v1/users/change-password"},
		{http.MethodGet, "/api/v1/users/current-user"},
		{http.MethodPatch, "/api/v1/users/update-account"},
		{http.MethodPatch, "/api/v1/users/avatar"},
		{http.MethodPatch, "/api/v1/users/cover-image"},
		{http.MethodPost, "/api/v1/users/update-info"},
		{http.MethodPost, "/api/v1/users/update-avatar"},
		{http.MethodPost, "/api/v1/users/update-coverImage"},
	}

	for _, rt := range routes {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, rt.path)
	}
}

func TestRouter_CurrentUserWithBearer(t *testing.T) {
	engine, session, account := newTestEngine(t)
	userID := uuid.New()

	session.On("Authenticate", mock.Anything, "access").Return(userID, nil).Once()
	account.On("CurrentUser", mock.Anything, userID).Return(model.Profile{ID: userID, Username: "alice"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.Header.Set("Authorization", "Bearer access")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func TestRouter_PublicRoutes(t *testing.T) {
	engine, session, _ := newTestEngine(t)

	session.On("Refresh", mock.Anything, "r1").Return(model.TokenPair{}, apierror.NewErrRefreshTokenExpiredOrReused()).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", strings.NewReader(`{"refreshToken":"r1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/healthcheck", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_LegacyUpdateInfoPath(t *testing.T) {
	engine, session, account := newTestEngine(t)
	userID := uuid.New()

	session.On("Authenticate", mock.Anything, "access").Return(userID, nil).Once()
	account.On("UpdateDetails", mock.Anything, userID, model.AccountDetails{FullName: "Alice B", Username: "alice", Email: "alice@x.com"}).
		Return(model.Profile{ID: userID, FullName: "Alice B"}, nil).Once()

	body := `{"fullName":"Alice B","username":"alice","email":"alice@x.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/update-info", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer access")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fullName":"Alice B"`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/login", nil)
		req.Header.Set("Origin", testOrigin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Less(t, w.Code, http.StatusMultipleChoices)
		assert.Equal(t, testOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/login", nil)
		req.Header.Set("Origin", "http://evil.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRouter_CORSCredentialedRequest(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthcheck", nil)
	req.Header.Set("Origin", testOrigin)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_OversizedJSONBody(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	body := `{"username":"alice","password":"` + strings.Repeat("x", 17<<10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_CORSDisabledWithoutOrigins(t *testing.T) {
	r := New(mocks.NewSessionService(t), mocks.NewAccountService(t), okPinger{}, httpctx.NewManager(), Options{}, testutil.MakeNoopLogger())
	engine := r.Register()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthcheck", nil)
	req.Header.Set("Origin", testOrigin)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
