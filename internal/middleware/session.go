package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/notehub/accounts/internal/model"
	"github.com/notehub/accounts/internal/utils"
)

// Cookie names used by the login flow. SessionCookieName carries the
// signed token; UsernameCookieName mirrors the logged-in user id for
// display, matching the secondary "Username" session key the site has
// always set.
const (
	SessionCookieName  = "note_auth"
	UsernameCookieName = "Username"
)

// Context keys populated by the session gate.
const (
	CtxUserID    = "user_id"
	CtxUsername  = "username"
	CtxRole      = "role"
	CtxSessionID = "session_id"
)

// LoginPath is where challenges send unauthenticated browsers.
const LoginPath = "/user/login"

// SessionValidator checks that a session row is still live.
// *repository.SessionRepo satisfies it.
type SessionValidator interface {
	Validate(ctx context.Context, id string) (model.Session, error)
}

// Authenticate extracts and verifies the caller's identity from the
// session cookie: signature and expiry on the token, then liveness of
// the server-side session row. It is used by the SessionAuth gate and
// imperatively by handlers that double-check authentication themselves.
func Authenticate(c echo.Context, secret string, sessions SessionValidator) (utils.SessionClaims, error) {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return utils.SessionClaims{}, utils.ErrInvalidToken
	}
	claims, err := utils.ParseSessionToken(secret, cookie.Value)
	if err != nil {
		return utils.SessionClaims{}, err
	}
	// The row check is what makes logout effective before the cookie expires.
	if _, err := sessions.Validate(c.Request().Context(), claims.SessionID); err != nil {
		return utils.SessionClaims{}, utils.ErrInvalidToken
	}
	return claims, nil
}

// Challenge redirects the browser to the login page, recording the
// original target so a successful login can return the user there.
func Challenge(c echo.Context) error {
	target := c.Request().URL.RequestURI()
	return c.Redirect(302, LoginPath+"?returnUrl="+url.QueryEscape(target))
}

// SessionAuth returns the authorization gate applied to protected
// routes. On success it stores the caller's identity in the request
// context; on failure it challenges instead of returning a hard 401,
// preserving the user's intended destination.
func SessionAuth(secret string, sessions SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := Authenticate(c, secret, sessions)
			if err != nil {
				return Challenge(c)
			}
			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxUsername, claims.Username)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxSessionID, claims.SessionID)
			return next(c)
		}
	}
}

// Username returns the logged-in user's login name from context, empty
// when unauthenticated.
func Username(c echo.Context) string {
	if v, ok := c.Get(CtxUsername).(string); ok {
		return v
	}
	return ""
}

// UserID returns the logged-in user's numeric id from context, zero
// when unauthenticated.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get(CtxUserID).(uint64); ok {
		return v
	}
	return 0
}
