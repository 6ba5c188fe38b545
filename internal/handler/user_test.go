package handler_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notehub/accounts/internal/config"
	"github.com/notehub/accounts/internal/handler"
	"github.com/notehub/accounts/internal/lockout"
	"github.com/notehub/accounts/internal/middleware"
	"github.com/notehub/accounts/internal/model"
	"github.com/notehub/accounts/internal/queue"
	"github.com/notehub/accounts/internal/repository"
	"github.com/notehub/accounts/internal/router"
	"github.com/notehub/accounts/internal/utils"
	"github.com/notehub/accounts/internal/view"
)

const testSecret = "test-secret"

// ----- fakes -----

type fakeUsers struct {
	mu     sync.Mutex
	users  map[string]model.User
	nextID uint64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]model.User)}
}

func (f *fakeUsers) Create(ctx context.Context, userID, passwordHash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; ok {
		return 0, repository.ErrUserExists
	}
	f.nextID++
	f.users[userID] = model.User{
		ID:           f.nextID,
		UserID:       userID,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	return f.nextID, nil
}

func (f *fakeUsers) GetByUserID(ctx context.Context, userID string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUsers) Exists(ctx context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[userID]
	return ok, nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]model.Session)}
}

func (f *fakeSessions) Create(ctx context.Context, s model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessions) Validate(ctx context.Context, id string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.RevokedAt != nil || time.Now().UTC().After(s.ExpiresAt) {
		return model.Session{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok && s.RevokedAt == nil {
		now := time.Now().UTC()
		s.RevokedAt = &now
		f.sessions[id] = s
	}
	return nil
}

type fakeDetails struct {
	fetches int
	detail  model.UserDetail
}

func (f *fakeDetails) GetUserDetail(ctx context.Context, id uint64) (model.UserDetail, error) {
	f.fetches++
	d := f.detail
	d.ID = id
	return d, nil
}

type fakeAudit struct {
	mu       sync.Mutex
	attempts []queue.LoginAttemptEvent
	regs     []queue.UserRegisteredEvent
}

func (f *fakeAudit) PublishLoginAttempt(ctx context.Context, ev queue.LoginAttemptEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, ev)
	return nil
}

func (f *fakeAudit) PublishUserRegistered(ctx context.Context, ev queue.UserRegisteredEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs = append(f.regs, ev)
	return nil
}

// ----- harness -----

type testApp struct {
	e        *echo.Echo
	users    *fakeUsers
	sessions *fakeSessions
	tracker  *lockout.MemoryTracker
	details  *fakeDetails
	audit    *fakeAudit
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.Config{
		SessionSecret: testSecret,
		SessionTTLMin: 60,
		BcryptCost:    4, // keep the test suite fast
	}
	app := &testApp{
		users:    newFakeUsers(),
		sessions: newFakeSessions(),
		tracker: lockout.NewMemoryTracker(config.LockoutConfig{
			Threshold: 5,
			Window:    15 * time.Minute,
		}),
		details: &fakeDetails{detail: model.UserDetail{UserID: "alice", Name: "Alice"}},
		audit:   &fakeAudit{},
	}

	h := handler.NewUserHandler(cfg, app.users, app.sessions, app.tracker, app.details, app.audit)

	e := echo.New()
	renderer, err := view.NewRenderer()
	require.NoError(t, err)
	e.Renderer = renderer
	router.RegisterRoutes(e)
	router.RegisterUser(e, h, cfg.SessionSecret, app.sessions)
	app.e = e
	return app
}

func (a *testApp) seedUser(t *testing.T, userID, password string) {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	_, err = a.users.Create(context.Background(), userID, hash)
	require.NoError(t, err)
}

func (a *testApp) postForm(path string, vals url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func loginForm(userID, password string) url.Values {
	return url.Values{"userId": {userID}, "password": {password}}
}

// login posts credentials and returns the cookies from a successful
// redirect.
func (a *testApp) login(t *testing.T, userID, password string) []*http.Cookie {
	t.Helper()
	rec := a.postForm("/user/login", loginForm(userID, password))
	require.Equal(t, http.StatusFound, rec.Code, "expected login redirect, body: %s", rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

// ----- registration -----

func TestRegister_CreatesAccountAndRedirects(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm("/user/register", url.Values{
		"userId": {"alice"}, "password": {"s3cret!"},
	})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/user/index", rec.Header().Get("Location"))

	taken, err := app.users.Exists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.Len(t, app.audit.regs, 1)
}

func TestRegister_DuplicateSurfacesFormError(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "alice", "s3cret!")

	rec := app.postForm("/user/register", url.Values{
		"userId": {"alice"}, "password": {"another"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already registered")
	assert.Len(t, app.users.users, 1, "no second row for a duplicate id")
}

func TestRegister_EmptyInputIsValidationError(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm("/user/register", url.Values{"userId": {"alice"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid registration attempt.")
}

// ----- login -----

func TestLogin_WrongPasswordShowsGenericError(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "alice", "s3cret!")

	rec := app.postForm("/user/login", loginForm("alice", "wrong"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid user id or password.")
	require.Len(t, app.audit.attempts, 1)
	assert.False(t, app.audit.attempts[0].Successful)
	assert.Equal(t, queue.ReasonBadCredentials, app.audit.attempts[0].Reason)
}

func TestLogin_SuccessSetsCookiesAndSession(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "alice", "s3cret!")

	rec := app.postForm("/user/login", loginForm("alice", "s3cret!"))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/user/index", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	var authCookie, nameCookie *http.Cookie
	for _, ck := range cookies {
		switch ck.Name {
		case middleware.SessionCookieName:
			authCookie = ck
		case middleware.UsernameCookieName:
			nameCookie = ck
		}
	}
	require.NotNil(t, authCookie, "session cookie must be set")
	require.NotNil(t, nameCookie, "username display cookie must be set")
	assert.True(t, authCookie.HttpOnly)
	assert.Equal(t, "alice", nameCookie.Value)

	claims, err := utils.ParseSessionToken(testSecret, authCookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, model.DefaultRole, claims.Role)

	s, err := app.sessions.Validate(context.Background(), claims.SessionID)
	require.NoError(t, err)
	assert.True(t, s.Persistent)
	assert.WithinDuration(t, time.Now().UTC().Add(60*time.Minute), s.ExpiresAt, 5*time.Second,
		"session expires 60 minutes after issue")
}

func TestLogin_ReturnURLMustBeLocal(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "alice", "s3cret!")

	vals := loginForm("alice", "s3cret!")
	vals.Set("returnUrl", "/user/detail")
	rec := app.postForm("/user/login", vals)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/user/detail", rec.Header().Get("Location"))

	vals = loginForm("alice", "s3cret!")
	vals.Set("returnUrl", "https://evil.example/phish")
	rec = app.postForm("/user/login", vals)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/user/index", rec.Header().Get("Location"))
}

func TestLogin_LockoutScenario(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "alice", "s3cret!")
	ctx := context.Background()

	// Five wrong passwords.
	for i := 0; i < 5; i++ {
		rec := app.postForm("/user/login", loginForm("alice", "wrong"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid user id or password.")
	}

	// Sixth attempt is rejected before verification, correct password or not.
	rec := app.postForm("/user/login", loginForm("alice", "s3cret!"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many failed attempts")

	last := app.audit.attempts[len(app.audit.attempts)-1]
	assert.Equal(t, queue.ReasonLockedOut, last.Reason)

	// After an explicit reset the correct password works again.
	require.NoError(t, app.tracker.Reset(ctx, "alice"))
	app.login(t, "alice", "s3cret!")
}

func TestLogin_SuccessResetsFailureCounter(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "alice", "s3cret!")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		app.postForm("/user/login", loginForm("alice", "wrong"))
	}
	app.login(t, "alice", "s3cret!")

	locked, err := app.tracker.IsLoginFailed(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, locked, "success must reset the counter")

	// Four fresh failures still sit below the threshold.
	for i := 0; i < 4; i++ {
		app.postForm("/user/login", loginForm("alice", "wrong"))
	}
	locked, err = app.tracker.IsLoginFailed(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestLogin_UnknownUserCountsTowardLockout(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 5; i++ {
		rec := app.postForm("/user/login", loginForm("ghost", "whatever"))
		assert.Equal(t, http.StatusOK, rec.Code)
		// Same generic message as a wrong password: existence is not revealed.
		assert.Contains(t, rec.Body.String(), "Invalid user id or password.")
	}

	rec := app.postForm("/user/login", loginForm("ghost", "whatever"))
	assert.Contains(t, rec.Body.String(), "Too many failed attempts")
}

// ----- logout and the authorization gate -----

func TestLogout_InvalidatesSession(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "alice", "s3cret!")
	cookies := app.login(t, "alice", "s3cret!")

	rec := app.get("/user/index", cookies...)
	require.Equal(t, http.StatusOK, rec.Code, "fresh session must pass the gate")

	rec = app.get("/user/logout", cookies...)
	assert.Equal(t, http.StatusFound, rec.Code)

	// The old cookie still parses, but the revoked row fails the gate.
	rec = app.get("/user/index", cookies...)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/user/login")
}

func TestLogout_IsIdempotent(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/user/logout")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/user/index", rec.Header().Get("Location"))
}

func TestProtectedPage_ChallengeRecordsReturnTarget(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/user/detail")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/user/login?returnUrl=%2Fuser%2Fdetail", rec.Header().Get("Location"))
}

func TestGreetings_ImperativeChallenge(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "alice", "s3cret!")

	rec := app.get("/user/greetings")
	assert.Equal(t, http.StatusFound, rec.Code, "anonymous visitor is challenged")
	assert.Contains(t, rec.Header().Get("Location"), "/user/login")

	cookies := app.login(t, "alice", "s3cret!")
	rec = app.get("/user/greetings", cookies...)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello, alice!")
}

// ----- profile pages -----

func TestUserDetail_RendersDetail(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "alice", "s3cret!")
	cookies := app.login(t, "alice", "s3cret!")

	rec := app.get("/user/detail", cookies...)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alice")
	assert.Equal(t, 1, app.details.fetches)
}

func TestUserInfor_ShowsRole(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "alice", "s3cret!")
	cookies := app.login(t, "alice", "s3cret!")

	rec := app.get("/user/infor", cookies...)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), model.DefaultRole)
}

// ----- username availability -----

func TestCheckUsername_JSON(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "alice", "s3cret!")

	rec := app.get("/api/users/availability?userId=alice")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"alice","available":false}`, rec.Body.String())

	rec = app.get("/api/users/availability?userId=bob")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"bob","available":true}`, rec.Body.String())

	rec = app.get("/api/users/availability")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
