package cookie

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/account-server/internal/model"
)

const (
	AccessToken  = "accessToken"
	RefreshToken = "refreshToken"
)

// Options controls the attributes of the token cookies. Cookies are always httpOnly.
type Options struct {
	Secure        bool
	Domain        string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// SetTokens writes both token cookies.
func SetTokens(c *gin.Context, opts Options, pair model.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessToken, pair.AccessToken, int(opts.AccessMaxAge.Seconds()), "/", opts.Domain, opts.Secure, true)
	c.SetCookie(RefreshToken, pair.RefreshToken, int(opts.RefreshMaxAge.Seconds()), "/", opts.Domain, opts.Secure, true)
}

// ClearTokens expires both token cookies.
func ClearTokens(c *gin.Context, opts Options) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessToken, "", -1, "/", opts.Domain, opts.Secure, true)
	c.SetCookie(RefreshToken, "", -1, "/", opts.Domain, opts.Secure, true)
}
