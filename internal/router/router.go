package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/payment-workflow/internal/auth"
	"github.com/iliyamo/payment-workflow/internal/config"
	"github.com/iliyamo/payment-workflow/internal/handler"
	"github.com/iliyamo/payment-workflow/internal/middleware"
	"github.com/iliyamo/payment-workflow/internal/repository"
)

// Deps carries everything route registration needs.
type Deps struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Roles    *repository.RoleRepo
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Role     *handler.RoleHandler
	Payment  *handler.PaymentHandler
	Redis    *redis.Client
	CacheCfg config.CacheConfig
}

// RegisterRoutes wires the whole HTTP surface. Unauthenticated
// operations live under /v1/auth; every other endpoint requires a
// valid access token, applied through the Authenticate middleware.
// Role management additionally carries route-level permission gates;
// user and payment routes authorize inside their handlers because
// ownership rules depend on the target record.
func RegisterRoutes(e *echo.Echo, d Deps) {
	// Liveness probe for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Session lifecycle: no access token required.
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)

	// Everything below requires an authenticated, active account.
	v1 := e.Group("/v1")
	v1.Use(middleware.Authenticate(d.Cfg.AccessSecret, d.Users, d.Roles))

	v1.GET("/me", d.Auth.Me)

	v1.GET("/users", d.User.List)
	v1.GET("/users/:id", d.User.Get)
	v1.PATCH("/users/:id", d.User.Update)
	v1.DELETE("/users/:id", d.User.Delete)
	v1.PUT("/users/:id/role", d.User.ChangeRole)

	// The role listing is identical for every authorized viewer, so
	// it is served through the shared response cache.
	v1.GET("/roles", d.Role.List,
		middleware.RequirePermission(auth.PermRolesRead),
		middleware.NewRedisCache(d.CacheCfg, d.Redis))
	v1.GET("/roles/:id", d.Role.Get, middleware.RequirePermission(auth.PermRolesRead))
	v1.POST("/roles", d.Role.Create, middleware.RequirePermission(auth.PermRolesWrite))
	v1.PUT("/roles/:id", d.Role.Update, middleware.RequirePermission(auth.PermRolesWrite))
	v1.DELETE("/roles/:id", d.Role.Delete, middleware.RequirePermission(auth.PermRolesDelete))

	v1.POST("/payments", d.Payment.Create)
	v1.GET("/payments", d.Payment.List)
	v1.GET("/payments/:id", d.Payment.Get)
	v1.POST("/payments/:id/approve", d.Payment.Approve)
	v1.POST("/payments/:id/reject", d.Payment.Reject)
	v1.POST("/payments/:id/process", d.Payment.Process)
	v1.DELETE("/payments/:id", d.Payment.Delete)
}
