package api

import (
	"net"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/safedev/accessgate/docs"
	"github.com/safedev/accessgate/internal/api/handler"
	"github.com/safedev/accessgate/internal/api/middleware"
	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
	"github.com/safedev/accessgate/internal/infrastructure/http/handlers"
)

// Dependencies are the services the HTTP surface is wired to.
type Dependencies struct {
	Auth         ports.AuthService
	Registration ports.RegistrationService
	Invites      ports.InviteService
	Users        ports.UserService
	JWTSecret    string
	HealthChecks map[string]handlers.PingFunc
	Logger       zerolog.Logger
	// TrustedProxies may set X-Forwarded-For. Nil trusts no proxy.
	TrustedProxies []*net.IPNet
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)
	e.IPExtractor = ipExtractor(deps.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))

	authHandler := handler.NewAuthHandler(deps.Auth)
	registerHandler := handler.NewRegisterHandler(deps.Registration, deps.Logger)
	adminHandler := handler.NewAdminHandler(deps.Invites, deps.Users, deps.Logger)

	// --- Public routes ---
	e.POST("/auth", authHandler.Authenticate)
	e.POST("/register", registerHandler.Register)

	// --- Admin routes ---
	admin := e.Group("/admin", middleware.Auth(deps.JWTSecret))
	ownerOnly := middleware.RBAC(domain.RoleOwner)
	staff := middleware.RBAC(domain.RoleOwner, domain.RoleSupport)

	admin.POST("/invites", adminHandler.CreateInvite, ownerOnly)
	admin.POST("/invites/batch", adminHandler.CreateInviteBatch, ownerOnly)
	admin.GET("/invites", adminHandler.ListInvites, ownerOnly)
	admin.GET("/users", adminHandler.ListUsers, ownerOnly)
	admin.GET("/users/:uid", adminHandler.GetUser, staff)
	admin.POST("/users/:uid/ban", adminHandler.BanUser, staff)
	admin.POST("/users/:uid/unban", adminHandler.UnbanUser, staff)
	admin.POST("/users/:uid/reset-hwid", adminHandler.ResetHWID, staff)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.HealthChecks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// ipExtractor uses the peer address unless proxies are configured, in which
// case X-Forwarded-For is honoured only through those hops.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range trusted {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
