package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arl/statsviz"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/mikutaniguchi/ticket-collection/internal/lib/logger/sl"
	"github.com/mikutaniguchi/ticket-collection/internal/middleware"
	httprouters "github.com/mikutaniguchi/ticket-collection/internal/transport/http"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// HealthChecker is a dependency /health reports on.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Options configures the server. UploadsDir is served under the path of
// UploadsURL.
type Options struct {
	Host          string
	Port          string
	Timeout       time.Duration
	CORSOrigins   []string
	SessionSecret string
	JWTSecret     []byte
	LoginURL      string
	UploadsDir    string
	UploadsURL    string
	BodyLimit     string
}

type Server struct {
	m       *http.ServeMux
	log     *slog.Logger
	e       *echo.Echo
	routers *httprouters.Routers
	opts    Options
	checks  map[string]HealthChecker
}

func New(log *slog.Logger, opts Options, routers *httprouters.Routers, checks map[string]HealthChecker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(session.Middleware(sessions.NewCookieStore([]byte(opts.SessionSecret))))

	if len(opts.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowCredentials: true,
		}))
	} else {
		e.Use(echomw.CORS())
	}

	e.Use(echomw.Recover())
	e.Use(middleware.PrometheusMetrics("/metrics", "/debug/statsviz"))

	if opts.BodyLimit != "" {
		e.Use(echomw.BodyLimit(opts.BodyLimit))
	}

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogMethod:   true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote ip", v.RemoteIP),
			)

			return nil
		},
	}))

	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		log.Info("Statsviz start with error", sl.Err(err))
	}

	return &Server{
		m:       mux,
		log:     log,
		e:       e,
		routers: routers,
		opts:    opts,
		checks:  checks,
	}
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info(op, slog.String("Start", "server"), slog.String("port", s.opts.Port))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.opts.Host, s.opts.Port),
		ReadTimeout:  s.opts.Timeout,
		WriteTimeout: s.opts.Timeout,
	}

	if err := s.e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	optCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	s.log.Info("stopping", slog.String("op", op))

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

func (s *Server) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	result := make(map[string]string, len(s.checks))

	for name, check := range s.checks {
		if err := check.HealthCheck(ctx); err != nil {
			s.log.Warn("health check failed", slog.String("dependency", name), sl.Err(err))
			result[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		result[name] = "up"
	}

	return c.JSON(status, result)
}

func (s *Server) BuildRouters() {
	s.e.GET("/health", s.health)
	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if s.opts.UploadsDir != "" {
		prefix := uploadsPrefix(s.opts.UploadsURL)
		s.e.Static(prefix, s.opts.UploadsDir)
	}

	debug := s.e.Group("/debug")
	{
		debug.GET("/statsviz/", echo.WrapHandler(s.m))
		debug.GET("/statsviz/*", echo.WrapHandler(s.m))
	}

	swagger := s.e.Group("/swag")
	{
		swagger.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	api := s.e.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.GET("/google", s.routers.GoogleLogin)
			authGroup.GET("/google/callback", s.routers.GoogleCallback)
			authGroup.POST("/refresh", s.routers.Refresh)
		}

		api.GET("/artworks/random", s.routers.RandomArtwork)

		protected := api.Group("", echojwt.WithConfig(middleware.JWTConfig(s.opts.JWTSecret, s.opts.LoginURL)))
		{
			protected.POST("/auth/logout", s.routers.Logout)
			protected.GET("/me", s.routers.Me)
			protected.PATCH("/me", s.routers.UpdateMe)

			ticketGroup := protected.Group("/tickets")
			{
				ticketGroup.POST("", s.routers.CreateTicket)
				ticketGroup.GET("", s.routers.ListTickets)
				ticketGroup.GET("/:id", s.routers.GetTicket)
				ticketGroup.PUT("/:id", s.routers.UpdateTicket)
				ticketGroup.DELETE("/:id", s.routers.DeleteTicket)
				ticketGroup.GET("/:id/neighbors", s.routers.TicketNeighbors)
			}
		}
	}

	s.e.RouteNotFound("/*", s.routers.NotFound)
}

// uploadsPrefix extracts the path part of the public uploads URL, so
// "http://localhost:8080/uploads" is served under "/uploads".
func uploadsPrefix(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/uploads"
	}

	p := strings.Trim(u.Path, "/")
	if p == "" {
		return "/uploads"
	}

	return "/" + p
}
