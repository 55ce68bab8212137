// Package api provides the HTTP job API server for Solclone.
// It uses Echo framework to serve REST endpoints for submitting clone jobs
// and polling their progress and results.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/gisops/solclone/internal/auth"
	"github.com/gisops/solclone/internal/config"
	"github.com/gisops/solclone/internal/portal"
	"github.com/gisops/solclone/internal/solution"
	"github.com/gisops/solclone/internal/version"
	"github.com/gisops/solclone/models"
)

// Server represents the Solclone job API server.
type Server struct {
	echo       *echo.Echo
	config     *config.Config
	store      *JobStore
	runner     Runner
	authMiddle *auth.Middleware
}

// debugLog logs a message only if debug mode is enabled in config
func (s *Server) debugLog(format string, args ...interface{}) {
	if s.config.Server.Debug {
		log.Printf(format, args...)
	}
}

// requestValidator adapts go-playground/validator to Echo.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// New creates a new job API server instance.
func New(cfg *config.Config, runner Runner) *Server {
	e := echo.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Server.Debug
	e.Validator = &requestValidator{validate: validator.New()}

	// Set custom error handler
	e.HTTPErrorHandler = HTTPErrorHandler

	server := &Server{
		echo:       e,
		config:     cfg,
		store:      NewJobStore(),
		runner:     runner,
		authMiddle: auth.NewMiddleware(cfg),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// NewRunner builds the production clone runner from configuration. Each job
// opens its own source and destination clients so token changes in config do
// not affect jobs already running.
func NewRunner(cfg *config.Config) Runner {
	return func(ctx context.Context, req CloneRequest, progress models.ProgressFunc) ([]models.DeployedItem, error) {
		source, err := portal.New(cfg.Source.URL, cfg.Source.Username, cfg.Source.Token,
			portal.WithRateLimit(cfg.Source.RateLimit, 5),
			portal.WithTimeout(cfg.Source.Timeout),
			portal.WithDebug(cfg.Server.Debug))
		if err != nil {
			return nil, fmt.Errorf("failed to create source client: %w", err)
		}

		dest, err := portal.New(cfg.Destination.URL, cfg.Destination.Username, cfg.Destination.Token,
			portal.WithRateLimit(cfg.Destination.RateLimit, 5),
			portal.WithTimeout(cfg.Destination.Timeout),
			portal.WithDebug(cfg.Server.Debug))
		if err != nil {
			return nil, fmt.Errorf("failed to create destination client: %w", err)
		}

		name := req.SolutionName
		if name == "" {
			name = cfg.Deploy.SolutionName
		}
		folder := req.Folder
		if folder == "" {
			folder = cfg.Deploy.Folder
		}

		return solution.Clone(ctx, solution.CloneOptions{
			Source:       source,
			Destination:  dest,
			IDs:          req.IDs,
			SolutionName: name,
			FolderID:     folder,
			PortalURL:    dest.BaseURL(),
			Progress:     progress,
		})
	}
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	// Logger middleware
	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))

	// Recover middleware
	s.echo.Use(middleware.Recover())

	// Security headers middleware
	s.echo.Use(SecurityHeaders)

	// CORS middleware
	if len(s.config.Security.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.config.Security.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Rate limiting
	if s.config.Security.RateLimit > 0 {
		s.echo.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(s.config.Security.RateLimit),
		)))
	}

	// Content-Type validation middleware for API routes
	s.echo.Use(ValidateContentType)

	// Accept header validation middleware
	s.echo.Use(ValidateAcceptHeader)
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/", s.healthCheck)

	// API v1 group
	v1 := s.echo.Group("/api/v1")

	jobs := v1.Group("/jobs")
	jobs.GET("", s.listJobs, s.authMiddle.RequireAuth)
	jobs.GET("/:id", s.getJob, ValidateIDFormat, s.authMiddle.RequireAuth)
	jobs.POST("", s.createJob, s.authMiddle.RequireAuth)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	fmt.Printf("Starting Solclone job API server\n")
	fmt.Printf("   Address: http://%s\n", addr)
	fmt.Printf("   Source: %s\n", s.config.Source.URL)
	fmt.Printf("   Destination: %s\n", s.config.Destination.URL)
	fmt.Printf("   Debug: %v\n", s.config.Server.Debug)
	fmt.Println()

	// Configure server timeouts
	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout

	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	fmt.Println("\nShutting down Solclone job API server...")

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	fmt.Println("Server shutdown complete")
	return nil
}

// healthCheck handles health check requests.
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "solclone",
		"version": version.Get().Version,
		"jobs":    len(s.store.List()),
	})
}

// ServeHTTP allows Server to implement http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
