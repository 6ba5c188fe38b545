package router // package router defines how HTTP routes are registered

import (
	"github.com/labstack/echo/v4"

	"github.com/notehub/accounts/internal/handler"
	"github.com/notehub/accounts/internal/middleware"
	"github.com/notehub/accounts/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterUser wires the account pages. Public routes (register, login,
// logout, the availability check and the greetings page, which performs
// its own imperative authentication check) live directly under /user;
// protected pages share the session gate and the role gate.
func RegisterUser(e *echo.Echo, h *handler.UserHandler, secret string, sessions middleware.SessionValidator) {
	g := e.Group("/user")
	g.GET("/register", h.RegisterForm)
	g.POST("/register", h.Register)
	g.GET("/login", h.LoginForm)
	g.POST("/login", h.Login)
	// Logout is reachable both ways so plain links and forms work, and
	// is deliberately unguarded: logging out while logged out is a no-op.
	g.GET("/logout", h.Logout)
	g.POST("/logout", h.Logout)
	g.GET("/greetings", h.Greetings)
	g.GET("/forbidden", h.Forbidden)
	g.GET("/check-username", h.CheckUsernamePage)

	protected := e.Group("/user")
	protected.Use(middleware.SessionAuth(secret, sessions))
	protected.Use(middleware.RequireRole(model.DefaultRole))
	protected.GET("/index", h.Index)
	protected.GET("/infor", h.UserInfor)
	protected.GET("/detail", h.UserDetail)

	e.GET("/api/users/availability", h.CheckUsername)
}
