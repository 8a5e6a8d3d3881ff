package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/franckalain/fooddiary/internal/analysis"
	"github.com/franckalain/fooddiary/internal/chat"
	"github.com/franckalain/fooddiary/internal/database"
	"github.com/franckalain/fooddiary/internal/ml"
	"github.com/franckalain/fooddiary/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// Options configures the HTTP surface
type Options struct {
	StaticDir string
	Debug     bool
	// JWTSecret signs bearer tokens. Empty enables the development mode where
	// the uid query parameter or the X-User-ID header names the user.
	JWTSecret string
	// Now replaces time.Now for the diary views
	Now func() time.Time
}

type Server struct {
	store        database.Store
	analyzer     analysis.ItemAnalyzer
	feedback     analysis.FeedbackGenerator
	orchestrator *analysis.Orchestrator
	chat         *chat.Service
	clients      sync.Map // connection id -> *connection
	opts         Options
	logger       *slog.Logger
}

func New(store database.Store, model ml.Model, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	analyzer := analysis.NewAnalyzer(model)
	feedback := analysis.NewFeedbackWriter(model)
	return &Server{
		store:        store,
		analyzer:     analyzer,
		feedback:     feedback,
		orchestrator: analysis.NewOrchestrator(analyzer, feedback),
		chat:         chat.NewService(store, model),
		opts:         opts,
		logger:       observability.WithFields("component", "server"),
	}
}

// Handler builds the gin engine serving every route
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)

	authed := r.Group("/")
	authed.Use(AuthMiddleware(s.opts.JWTSecret))
	{
		authed.GET("/ws", s.handleWebSocket)

		api := authed.Group("/api")
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/diary/:date", s.handleGetDay)
		api.GET("/profile", s.handleGetProfile)
		api.PUT("/profile", s.handleUpdateProfile)
		api.GET("/chat", s.handleGetChat)
		api.POST("/chat", s.handleSendChat)
		api.DELETE("/chat", s.handleClearChat)
	}

	if s.opts.StaticDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(s.opts.StaticDir))))
	}
	return r
}

// Start serves on port until ctx is done or SIGINT/SIGTERM arrives, then
// shuts down gracefully
func (s *Server) Start(ctx context.Context, port string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "port", port, "static_dir", s.opts.StaticDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// hijacked websocket connections are not closed by Shutdown
	s.clients.Range(func(key, value any) bool {
		value.(*connection).close()
		return true
	})
	return srv.Shutdown(shutdownCtx)
}

// requestLogger tags each request with an id and logs its outcome
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(observability.WithRequestID(c.Request.Context(), requestID))

		start := time.Now()
		c.Next()

		observability.LoggerFromContext(c.Request.Context()).Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
