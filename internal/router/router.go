package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"caseflow/internal/auth"
	"caseflow/internal/config"
	"caseflow/internal/handler"
)

// Dependencies are the collaborators the routes are wired to.
type Dependencies struct {
	AuthHandler *handler.AuthHandler
	CaseHandler *handler.CaseHandler
	UserHandler *handler.UserHandler
	JWTService  *auth.JWTService
	TokenStore  auth.TokenStoreInterface
	Users       auth.UserFinder
	Gatherer    prometheus.Gatherer
	Logger      *zap.Logger
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, deps Dependencies) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	if deps.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", deps.AuthHandler.Login)
	api.POST("/cases/submit", deps.CaseHandler.Submit)

	// Secured routes (require JWT authentication)
	secured := api.Group("",
		auth.JWTMiddleware(deps.JWTService),
		auth.RequireActor(deps.Users, deps.TokenStore, log),
	)

	secured.POST("/auth/logout", deps.AuthHandler.Logout)
	secured.GET("/me", deps.AuthHandler.Me)

	// Case routes
	secured.GET("/cases", deps.CaseHandler.List)
	secured.GET("/cases/:id", deps.CaseHandler.Get)
	secured.POST("/cases/:id/workflow", deps.CaseHandler.Act)

	// User and dashboard routes
	secured.GET("/users", deps.UserHandler.ListUsers)
	secured.GET("/dashboard/stats", deps.UserHandler.DashboardStats)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
