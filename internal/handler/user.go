package handler

import (
	"context"       // context with timeout for DB calls
	"database/sql"  // sentinel errors returned from repository
	"errors"        // errors.Is comparisons
	"log"           // failure logging for audit/tracker side effects
	"net/http"      // HTTP status codes and cookies
	"strings"       // input normalization
	"time"          // timeouts and expiry arithmetic

	"github.com/google/uuid"      // session row ids
	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/notehub/accounts/internal/config"
	"github.com/notehub/accounts/internal/lockout"
	"github.com/notehub/accounts/internal/middleware"
	"github.com/notehub/accounts/internal/model"
	"github.com/notehub/accounts/internal/queue"
	"github.com/notehub/accounts/internal/repository"
	"github.com/notehub/accounts/internal/utils"
)

// dummyHash is compared against when the user id does not exist, so an
// unknown id costs the same bcrypt work as a wrong password.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// UserStore is the credential store as seen by the handlers.
// *repository.UserRepo satisfies it.
type UserStore interface {
	Create(ctx context.Context, userID, passwordHash string) (uint64, error)
	GetByUserID(ctx context.Context, userID string) (model.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

// SessionStore persists server-side sessions. *repository.SessionRepo
// satisfies it.
type SessionStore interface {
	Create(ctx context.Context, s model.Session) error
	Validate(ctx context.Context, id string) (model.Session, error)
	Revoke(ctx context.Context, id string) error
}

// DetailReader is the cached user-detail lookup. *cache.UserDetails
// satisfies it.
type DetailReader interface {
	GetUserDetail(ctx context.Context, id uint64) (model.UserDetail, error)
}

// AuditPublisher emits authentication audit events. A nil publisher
// disables auditing; publish failures never block the login flow.
type AuditPublisher interface {
	PublishLoginAttempt(ctx context.Context, event queue.LoginAttemptEvent) error
	PublishUserRegistered(ctx context.Context, event queue.UserRegisteredEvent) error
}

// UserHandler bundles dependencies for the account pages: registration,
// login with failure throttling, logout, and the protected profile
// views.
type UserHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions SessionStore
	Lockout  lockout.Tracker
	Details  DetailReader
	Audit    AuditPublisher
}

func NewUserHandler(cfg config.Config, users UserStore, sessions SessionStore, tracker lockout.Tracker, details DetailReader, audit AuditPublisher) *UserHandler {
	return &UserHandler{
		Cfg:      cfg,
		Users:    users,
		Sessions: sessions,
		Lockout:  tracker,
		Details:  details,
		Audit:    audit,
	}
}

// page builds the base template data every page shares.
func page(c echo.Context, title string) echo.Map {
	return echo.Map{
		"Title":    title,
		"Username": middleware.Username(c),
	}
}

// ----- registration -----

// RegisterForm renders the empty registration form.
func (h *UserHandler) RegisterForm(c echo.Context) error {
	data := page(c, "Register")
	data["UserID"] = ""
	return c.Render(http.StatusOK, "register", data)
}

// Register creates an account. A duplicate user id re-renders the form
// with a validation message; it is never a hard failure. The existence
// check runs first for a friendly message, and the unique key on the
// insert closes the race window behind it.
func (h *UserHandler) Register(c echo.Context) error {
	userID := strings.TrimSpace(c.FormValue("userId"))
	password := c.FormValue("password")

	data := page(c, "Register")
	data["UserID"] = userID

	if userID == "" || password == "" {
		data["Error"] = "Invalid registration attempt."
		return c.Render(http.StatusOK, "register", data)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	taken, err := h.Users.Exists(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}
	if taken {
		data["Error"] = "This user id is already registered."
		return c.Render(http.StatusOK, "register", data)
	}

	hash, err := utils.HashPassword(password, h.Cfg.BcryptCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}
	if _, err := h.Users.Create(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			data["Error"] = "This user id is already registered."
			return c.Render(http.StatusOK, "register", data)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	if h.Audit != nil {
		_ = h.Audit.PublishUserRegistered(ctx, queue.UserRegisteredEvent{
			UserID:       userID,
			IPAddress:    c.RealIP(),
			RegisteredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.Redirect(http.StatusFound, "/user/index")
}

// ----- login / logout -----

// LoginForm renders the login form, carrying an optional returnUrl
// through to the POST.
func (h *UserHandler) LoginForm(c echo.Context) error {
	data := page(c, "Log in")
	data["UserID"] = ""
	data["ReturnURL"] = c.QueryParam("returnUrl")
	return c.Render(http.StatusOK, "login", data)
}

// Login runs the session-establishment flow: the failure-threshold
// check first (fail-closed, before the password is even looked at),
// then credential verification, then session issue. Failed
// verifications are counted; a success clears the counter.
func (h *UserHandler) Login(c echo.Context) error {
	userID := strings.TrimSpace(c.FormValue("userId"))
	password := c.FormValue("password")
	returnURL := c.FormValue("returnUrl")

	data := page(c, "Log in")
	data["UserID"] = userID
	data["ReturnURL"] = returnURL

	if userID == "" || password == "" {
		data["Error"] = "User id and password are required."
		return c.Render(http.StatusOK, "login", data)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	locked, err := h.Lockout.IsLoginFailed(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	if locked {
		h.publishAttempt(ctx, c, userID, false, queue.ReasonLockedOut)
		data["IsLoginFailed"] = true
		return c.Render(http.StatusOK, "login", data)
	}

	user, err := h.Users.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	hash := user.PasswordHash
	if hash == "" {
		hash = dummyHash // unknown id: burn the same bcrypt cost
	}
	if !utils.VerifyPassword(hash, password) || user.ID == 0 {
		if err := h.Lockout.RecordFailure(ctx, userID); err != nil {
			log.Printf("lockout: record failure for %q: %v", userID, err)
		}
		h.publishAttempt(ctx, c, userID, false, queue.ReasonBadCredentials)
		data["Error"] = "Invalid user id or password."
		return c.Render(http.StatusOK, "login", data)
	}

	if err := h.Lockout.Reset(ctx, userID); err != nil {
		log.Printf("lockout: reset for %q: %v", userID, err)
	}

	now := time.Now().UTC()
	ttl := time.Duration(h.Cfg.SessionTTLMin) * time.Minute
	session := model.Session{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Role:       model.DefaultRole,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
		Persistent: true,
	}
	if err := h.Sessions.Create(ctx, session); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	token, err := utils.NewSessionToken(h.Cfg.SessionSecret, user.ID, user.UserID, session.Role, session.ID, ttl)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token.Token,
		Path:     "/",
		Expires:  token.Exp, // persistent cookie, absolute expiry
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// Secondary display cookie mirroring the logged-in user id.
	c.SetCookie(&http.Cookie{
		Name:     middleware.UsernameCookieName,
		Value:    user.UserID,
		Path:     "/",
		Expires:  token.Exp,
		SameSite: http.SameSiteLaxMode,
	})

	h.publishAttempt(ctx, c, userID, true, "")

	return c.Redirect(http.StatusFound, localRedirect(returnURL))
}

// Logout revokes the current session and clears both cookies. Calling
// it without an active session is a no-op, not an error.
func (h *UserHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if claims, err := utils.ParseSessionToken(h.Cfg.SessionSecret, cookie.Value); err == nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			if err := h.Sessions.Revoke(ctx, claims.SessionID); err != nil {
				log.Printf("logout: revoke session %s: %v", claims.SessionID, err)
			}
		}
	}

	expire := &http.Cookie{
		Name:    middleware.SessionCookieName,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	}
	c.SetCookie(expire)
	c.SetCookie(&http.Cookie{
		Name:    middleware.UsernameCookieName,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})

	return c.Redirect(http.StatusFound, "/user/index")
}

// ----- protected pages -----

// Index is the landing page after login.
func (h *UserHandler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, "index", page(c, "Home"))
}

// UserInfor shows the account summary.
func (h *UserHandler) UserInfor(c echo.Context) error {
	data := page(c, "Account")
	data["Role"] = c.Get(middleware.CtxRole)
	return c.Render(http.StatusOK, "userinfor", data)
}

// Greetings checks authentication imperatively instead of relying on
// the route-level gate, and issues a challenge when the check fails.
// The route is registered without SessionAuth on purpose.
func (h *UserHandler) Greetings(c echo.Context) error {
	claims, err := middleware.Authenticate(c, h.Cfg.SessionSecret, h.Sessions)
	if err != nil {
		return middleware.Challenge(c)
	}
	data := echo.Map{"Title": "Greetings", "Username": claims.Username}
	return c.Render(http.StatusOK, "greetings", data)
}

// UserDetail renders the expanded profile through the detail cache.
func (h *UserHandler) UserDetail(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	detail, err := h.Details.GetUserDetail(ctx, middleware.UserID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "load user detail failed")
	}
	data := page(c, detail.Name)
	data["Detail"] = detail
	return c.Render(http.StatusOK, "userdetail", data)
}

// Forbidden is the access-denied page the role gate redirects to.
func (h *UserHandler) Forbidden(c echo.Context) error {
	return c.Render(http.StatusOK, "forbidden", page(c, "Access denied"))
}

// ----- username availability -----

// CheckUsernamePage renders the small page exercising the availability
// endpoint.
func (h *UserHandler) CheckUsernamePage(c echo.Context) error {
	return c.Render(http.StatusOK, "checkusername", page(c, "Check user id"))
}

// CheckUsername reports whether a user id is still available, as JSON.
func (h *UserHandler) CheckUsername(c echo.Context) error {
	userID := strings.TrimSpace(c.QueryParam("userId"))
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	taken, err := h.Users.Exists(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"userId": userID, "available": !taken})
}

// publishAttempt emits a login audit event, swallowing broker failures.
func (h *UserHandler) publishAttempt(ctx context.Context, c echo.Context, userID string, ok bool, reason string) {
	if h.Audit == nil {
		return
	}
	_ = h.Audit.PublishLoginAttempt(ctx, queue.LoginAttemptEvent{
		UserID:      userID,
		IPAddress:   c.RealIP(),
		UserAgent:   c.Request().UserAgent(),
		Successful:  ok,
		Reason:      reason,
		AttemptedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// localRedirect returns target when it is a local path, defaulting to
// the user landing page. Absolute URLs and scheme-relative ("//...")
// targets are rejected to keep the login redirect on-site.
func localRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return "/user/index"
	}
	return target
}
