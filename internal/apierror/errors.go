package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of a failure returned to API callers.
type Kind string

const (
	KindValidation                  Kind = "validation"
	KindInvalidCredentials          Kind = "invalid_credentials"
	KindUnauthorized                Kind = "unauthorized"
	KindInvalidRefreshToken         Kind = "invalid_refresh_token"
	KindRefreshTokenExpiredOrReused Kind = "refresh_token_expired_or_reused"
	KindNotFound                    Kind = "not_found"
	KindConflict                    Kind = "conflict"
	KindInternal                    Kind = "internal"
)

// APIError is a typed failure carrying the status code and a client-safe message.
// Err holds the underlying cause for logging and is never rendered to clients.
type APIError struct {
	Kind     Kind
	HTTPCode int
	Message  string
	Err      error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches another *APIError of the same kind, so a bare kind value works as a target.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel targets for errors.Is.
var (
	ErrValidation                  = &APIError{Kind: KindValidation}
	ErrInvalidCredentials          = &APIError{Kind: KindInvalidCredentials}
	ErrUnauthorized                = &APIError{Kind: KindUnauthorized}
	ErrInvalidRefreshToken         = &APIError{Kind: KindInvalidRefreshToken}
	ErrRefreshTokenExpiredOrReused = &APIError{Kind: KindRefreshTokenExpiredOrReused}
	ErrNotFound                    = &APIError{Kind: KindNotFound}
	ErrConflict                    = &APIError{Kind: KindConflict}
	ErrInternal                    = &APIError{Kind: KindInternal}
)

// NewErrValidation reports missing or malformed input.
func NewErrValidation(message string) *APIError {
	return &APIError{Kind: KindValidation, HTTPCode: http.StatusBadRequest, Message: message}
}

// NewErrInvalidCredentials is returned for both unknown users and wrong passwords.
func NewErrInvalidCredentials() *APIError {
	return &APIError{Kind: KindInvalidCredentials, HTTPCode: http.StatusUnauthorized, Message: "invalid credentials"}
}

// NewErrUnauthorized reports a missing or unverifiable token.
func NewErrUnauthorized() *APIError {
	return &APIError{Kind: KindUnauthorized, HTTPCode: http.StatusUnauthorized, Message: "unauthorized request"}
}

// NewErrInvalidRefreshToken reports a refresh token whose subject no longer exists.
func NewErrInvalidRefreshToken() *APIError {
	return &APIError{Kind: KindInvalidRefreshToken, HTTPCode: http.StatusUnauthorized, Message: "invalid refresh token"}
}

// NewErrRefreshTokenExpiredOrReused reports a refresh token that no longer matches the stored one.
func NewErrRefreshTokenExpiredOrReused() *APIError {
	return &APIError{Kind: KindRefreshTokenExpiredOrReused, HTTPCode: http.StatusUnauthorized, Message: "refresh token is expired or used"}
}

// NewErrNotFound reports a referenced entity that vanished.
func NewErrNotFound(what string) *APIError {
	return &APIError{Kind: KindNotFound, HTTPCode: http.StatusNotFound, Message: what + " not found"}
}

// NewErrConflict reports a unique field that is already taken.
func NewErrConflict(message string) *APIError {
	return &APIError{Kind: KindConflict, HTTPCode: http.StatusConflict, Message: message}
}

// NewErrInternal wraps an infrastructure failure.
func NewErrInternal(err error) *APIError {
	return &APIError{Kind: KindInternal, HTTPCode: http.StatusInternalServerError, Message: "internal server error", Err: err}
}

// From converts any error into an *APIError, treating unknown errors as internal.
func From(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewErrInternal(err)
}
