package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	api "github.com/GriffinCanCode/codefixlab/internal/api/http"
	"github.com/GriffinCanCode/codefixlab/internal/api/middleware"
	"github.com/GriffinCanCode/codefixlab/internal/api/ws"
	"github.com/GriffinCanCode/codefixlab/internal/domain/frame"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/config"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/codefixlab/internal/providers/assistant"
	"github.com/GriffinCanCode/codefixlab/internal/providers/catalog"
	"github.com/GriffinCanCode/codefixlab/internal/providers/contact"
	"github.com/GriffinCanCode/codefixlab/internal/sandbox"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	frames  *frame.Manager
	pool    *sandbox.Pool
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance. A nil logger is built from cfg.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logCfg := logging.DefaultConfig()
		if cfg.Logging.Development {
			logCfg = logging.DevelopmentConfig()
		}
		if cfg.Logging.Level != "" {
			logCfg.Level = cfg.Logging.Level
		}
		l, err := logging.New(logCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
	}

	logger.Info("Initializing CodeFixLab server",
		zap.String("port", cfg.Server.Port),
		zap.Duration("sandbox_timeout", cfg.Sandbox.Timeout),
		zap.Int("pool_size", cfg.Sandbox.PoolSize),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Sandbox execution
	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.Timeout = cfg.Sandbox.Timeout
	sandboxCfg.MaxTimers = cfg.Sandbox.MaxTimers

	pool := sandbox.NewPool(cfg.Sandbox.PoolSize, cfg.Sandbox.AcquireTimeout)
	breakerLog := logger.Component("breaker")
	breaker := resilience.New("sandbox-pool", resilience.Settings{
		Threshold: cfg.Sandbox.BreakerThreshold,
		Cooldown:  cfg.Sandbox.BreakerCooldown,
		IsFailure: func(err error) bool { return errors.Is(err, sandbox.ErrTimeout) },
		OnStateChange: func(name string, from, to resilience.State) {
			breakerLog.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	runner := sandbox.NewRunner(sandboxCfg, pool, logger.Component("sandbox")).
		WithBreaker(breaker).
		WithMetrics(metrics)

	var tracer *tracing.Tracer
	if cfg.Tracing.Enabled {
		tracer = tracing.NewWithBuffer("codefixlab", cfg.Tracing.Buffer, logger.Component("tracing"))
		runner.WithTracer(tracer)
	}
	frames := frame.NewManager(runner, cfg.Sandbox.MaxFrames).WithMetrics(metrics)

	// Providers
	cat := catalog.Builtin()
	if cfg.Catalog.Dir != "" {
		if err := cat.LoadOverlay(cfg.Catalog.Dir); err != nil {
			return nil, fmt.Errorf("failed to load catalog overlay: %w", err)
		}
		logger.Info("Catalog overlay loaded", zap.String("dir", cfg.Catalog.Dir))
	}
	helper := assistant.New(assistant.BuiltinTable(), cfg.Assistant.Delay, logger.Component("assistant")).
		WithMetrics(metrics)
	forms := contact.NewService(cfg.Contact.Delay, logger.Component("contact")).
		WithMetrics(metrics)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if tracer != nil {
		router.Use(tracing.HTTPMiddleware(tracer))
	}
	router.Use(middleware.Logger(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.CORS.Origins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	// Execution routes share one service-wide budget on top of per-client limits
	var runLimit gin.HandlerFunc
	var runBudget *rate.Limiter
	if cfg.RateLimit.Enabled && cfg.RateLimit.RunsPerSecond > 0 {
		runBudget = middleware.NewGlobalLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RunsPerSecond,
			Burst:             cfg.RateLimit.RunBurst,
		})
		runLimit = middleware.LimitWith(runBudget)
	}

	handlers := api.NewHandlers(frames, pool, helper, cat, forms, metrics, logger.Component("api"))
	wsHandler := ws.NewHandler(frames, logger.Component("ws")).WithMetrics(metrics).WithRunLimiter(runBudget)
	aggregator := api.NewMetricsAggregator(metrics, frames, pool)

	registerRoutes(router, handlers, wsHandler, aggregator, metrics, runLimit, cfg.Sandbox.MaxSourceBytes)

	// Runtime log level, e.g. PUT {"level":"debug"} while chasing a bad preview
	levels := gin.WrapH(logger.LevelHandler())
	router.GET("/log/level", levels)
	router.PUT("/log/level", levels)

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		httpSrv: &http.Server{
			Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		frames:  frames,
		pool:    pool,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

func registerRoutes(
	router *gin.Engine,
	handlers *api.Handlers,
	wsHandler *ws.Handler,
	aggregator *api.MetricsAggregator,
	metrics *monitoring.Metrics,
	runLimit gin.HandlerFunc,
	maxSource int64,
) {
	execute := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if runLimit == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{runLimit, h}
	}

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/metrics/json", aggregator.GetAggregatedMetrics)

	// Render targets
	frames := router.Group("/frames")
	frames.Use(api.LimitBody(maxSource))
	frames.GET("/defaults", handlers.Defaults)
	frames.POST("", handlers.CreateFrame)
	frames.GET("", handlers.ListFrames)
	frames.GET("/:id", handlers.GetFrame)
	frames.DELETE("/:id", handlers.DeleteFrame)
	frames.POST("/:id/run", execute(handlers.RunFrame)...)
	frames.POST("/:id/upload", execute(handlers.UploadSources)...)
	frames.POST("/:id/clear", handlers.ClearFrame)
	frames.GET("/:id/document", handlers.FrameDocument)
	frames.GET("/:id/query", handlers.QueryFrame)
	frames.POST("/:id/dispatch", execute(handlers.DispatchFrame)...)
	frames.GET("/:id/live", wsHandler.HandleConnection)

	// Assistant
	router.POST("/assistant/ask", handlers.Ask)
	router.GET("/assistant/links", handlers.AssistantLinks)

	// Catalog
	router.GET("/catalog/:kind", handlers.ListCatalog)
	router.GET("/catalog/:kind/:id", handlers.GetCatalogEntry)
	router.GET("/catalog/:kind/:id/code", handlers.CatalogCode)
	router.GET("/catalog/:kind/:id/download", handlers.DownloadProject)
	router.POST("/catalog/:kind/:id/preview", execute(handlers.PreviewCatalogEntry)...)
	router.GET("/downloads/projects.tar.gz", handlers.DownloadArchive)

	// Form demos
	router.POST("/contact", handlers.SubmitContact)
	router.GET("/contact/inbox", handlers.ContactInbox)
	router.POST("/login", handlers.Login)
}

// Router exposes the configured engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var shutdownErr error
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		shutdownErr = fmt.Errorf("failed to shut down http server: %w", err)
	}

	s.frames.Close()
	if err := s.pool.Close(); err != nil {
		s.logger.Error("Failed to close sandbox pool", zap.Error(err))
	}
	s.logger.Info("Closed sandbox frames")

	if s.tracer != nil {
		s.tracer.Close()
	}

	// Sync logger before exit
	s.logger.Sync()

	return shutdownErr
}
