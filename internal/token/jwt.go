package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/account-server/internal/model"
)

var (
	ErrExpiredToken     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMalformedToken   = errors.New("malformed token")
	ErrWrongTokenKind   = errors.New("wrong token kind")
)

// VerificationError is returned by Verify. Reason is one of the sentinel errors above.
type VerificationError struct {
	Kind   model.TokenKind
	Reason error
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s token: %v: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s token: %v", e.Kind, e.Reason)
}

func (e *VerificationError) Unwrap() error {
	return e.Reason
}

// KeyConfig is the signing secret and lifetime of one token kind.
type KeyConfig struct {
	Secret string
	TTL    time.Duration
}

// Config holds both signing configurations. It is built once at startup.
type Config struct {
	Access  KeyConfig
	Refresh KeyConfig
}

// Validate rejects configurations that would let one kind verify as the other.
func (c Config) Validate() error {
	if c.Access.Secret == "" || c.Refresh.Secret == "" {
		return errors.New("token secrets must not be empty")
	}
	if c.Access.Secret == c.Refresh.Secret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.Access.TTL <= 0 || c.Refresh.TTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	return nil
}

// Claims represents JWT claims with token type and user ID.
type Claims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID `json:"user_id"`
	TokenType string    `json:"typ"`
}

// JWT implements TokenCodec with two independent HMAC keys.
type JWT struct {
	access  KeyConfig
	refresh KeyConfig
	now     func() time.Time
}

var _ model.TokenCodec = (*JWT)(nil)

// NewJWT creates a token codec from a validated config.
func NewJWT(cfg Config) (*JWT, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid token config: %w", err)
	}
	return &JWT{access: cfg.Access, refresh: cfg.Refresh, now: time.Now}, nil
}

// IssueAccessToken creates a short-lived access token.
func (j *JWT) IssueAccessToken(userID uuid.UUID) (string, error) {
	return j.issue(userID, model.AccessToken, j.access)
}

// IssueRefreshToken creates a long-lived refresh token.
func (j *JWT) IssueRefreshToken(userID uuid.UUID) (string, error) {
	return j.issue(userID, model.RefreshToken, j.refresh)
}

func (j *JWT) issue(userID uuid.UUID, kind model.TokenKind, key KeyConfig) (string, error) {
	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.TTL)),
		},
		UserID:    userID,
		TokenType: string(kind),
	})

	tokenString, err := token.SignedString([]byte(key.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return tokenString, nil
}

// Verify checks signature, expiry and kind. Access and refresh tokens are
// verified with their own secret only.
func (j *JWT) Verify(tokenString string, kind model.TokenKind) (model.TokenClaims, error) {
	var key KeyConfig
	switch kind {
	case model.AccessToken:
		key = j.access
	case model.RefreshToken:
		key = j.refresh
	default:
		return model.TokenClaims{}, &VerificationError{Kind: kind, Reason: ErrWrongTokenKind}
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(key.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return model.TokenClaims{}, &VerificationError{Kind: kind, Reason: classify(err), Err: err}
	}
	if claims.TokenType != string(kind) {
		return model.TokenClaims{}, &VerificationError{Kind: kind, Reason: ErrWrongTokenKind}
	}
	if claims.UserID == uuid.Nil {
		return model.TokenClaims{}, &VerificationError{Kind: kind, Reason: ErrMalformedToken}
	}

	out := model.TokenClaims{
		UserID: claims.UserID,
		ID:     claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	default:
		return ErrMalformedToken
	}
}
