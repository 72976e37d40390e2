package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/dipto-roy/courier-service-sub002/internal/api/handler"
	"github.com/dipto-roy/courier-service-sub002/internal/api/middleware"
	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
)

// Deps is everything the HTTP surface needs. Services are built by main.
type Deps struct {
	JWTSecret  string
	Shipments  ports.ShipmentService
	Lifecycle  ports.LifecycleService
	Locations  ports.LocationService
	Events     handler.EventDispatcher
	Tracking   handler.TrackingStats
	TrackingWS http.Handler
	Health     map[string]handler.Pinger
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("courier"))

	// --- Handlers ---
	shipments := handler.NewShipmentHandler(d.Shipments, d.Lifecycle)
	locations := handler.NewLocationHandler(d.Locations, d.Shipments)
	events := handler.NewEventHandler(d.Events)
	tracking := handler.NewTrackingHandler(d.Tracking)
	health := handler.NewHealthHandler(d.Health)

	// --- Unauthenticated ---
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/ws/tracking", echo.WrapHandler(d.TrackingWS))

	// --- API v1 ---
	v1 := e.Group("/v1", middleware.Auth(d.JWTSecret))
	writers := middleware.RBAC(domain.RoleAdmin, domain.RoleMerchant)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	v1.POST("/quotes", shipments.Quote)
	v1.POST("/shipments", shipments.Create, writers)
	v1.GET("/shipments/:awb", shipments.Get)
	v1.PATCH("/shipments/:awb", shipments.Update, writers)
	v1.DELETE("/shipments/:awb", shipments.Cancel, writers)
	v1.POST("/shipments/:awb/status", shipments.Transition, middleware.RBAC(domain.RoleAdmin, domain.RoleRider))
	v1.GET("/shipments/:awb/locations", locations.Recent)

	v1.POST("/locations", locations.Ingest, middleware.RBAC(domain.RoleRider))
	v1.GET("/riders/:id/location", locations.RiderPosition, adminOnly)

	v1.POST("/events", events.Receive, adminOnly)
	v1.POST("/events/batch", events.ReceiveBatch, adminOnly)
	v1.GET("/tracking/active", tracking.Active, adminOnly)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
