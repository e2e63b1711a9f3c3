package controller

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"camRelay/api/internal/broadcaster"
	"camRelay/api/internal/config"
	"camRelay/api/internal/sink"
	"camRelay/api/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed pages/*.html
var pages embed.FS

type Server struct {
	cfg        *config.Config
	store      *store.Store
	viewers    *broadcaster.Registry
	dispatcher *sink.Dispatcher
	engine     *gin.Engine
	logger     *zap.Logger

	// streamCtx is cancelled on shutdown to end every /stream loop.
	streamCtx    context.Context
	cancelStream context.CancelFunc
}

func NewServer(cfg *config.Config, st *store.Store, dispatcher *sink.Dispatcher, logger *zap.Logger) *Server {
	r := &Server{
		cfg:        cfg,
		store:      st,
		viewers:    broadcaster.NewRegistry(cfg.Stream.MaxViewers),
		dispatcher: dispatcher,
		logger:     logger.Named("controller"),
	}
	r.streamCtx, r.cancelStream = context.WithCancel(context.Background())
	r.engine = r.newAPI()

	return r
}

func (r *Server) Handler() http.Handler {
	return r.engine
}

// Start serves until ctx is cancelled or the listener fails, then shuts down.
func (r *Server) Start(ctx context.Context) error {
	if err := r.dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	defer r.dispatcher.Stop()

	srv := &http.Server{
		Addr:              r.cfg.Addr(),
		Handler:           r.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	r.logger.Info("start server", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		r.closeStreams()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("stop server", zap.Int("viewers", r.viewers.Len()))

	r.closeStreams()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), r.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func (r *Server) newAPI() *gin.Engine {
	eng := gin.New()
	eng.Use(gin.Recovery(), r.accessLog())

	eng.GET("/", r.page("pages/index.html"))
	eng.GET("/camera", r.page("pages/camera.html"))
	eng.GET("/viewer", r.page("pages/viewer.html"))

	eng.POST("/upload", r.uploadFrame)
	eng.GET("/stream", r.stream)

	if r.cfg.Server.StaticDir != "" {
		eng.Static("/static", r.cfg.Server.StaticDir)
	}

	apiV1 := eng.Group("/v1")
	apiV1.GET("/health", r.health)
	apiV1.GET("/stats", r.stats)
	apiV1.GET("/frame/latest", r.latestFrame)

	return eng
}

func (r *Server) page(name string) gin.HandlerFunc {
	body, err := pages.ReadFile(name)
	if err != nil {
		panic(fmt.Errorf("read embedded page %s: %w", name, err))
	}

	return func(ctx *gin.Context) {
		ctx.Data(http.StatusOK, "text/html; charset=utf-8", body)
	}
}

func (r *Server) health(ctx *gin.Context) {
	ctx.Status(http.StatusOK)
}

// accessLog logs every request once it completes. /stream requests complete
// when the viewer disconnects.
func (r *Server) accessLog() gin.HandlerFunc {
	logger := r.logger.Named("http")

	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		logger.Debug("request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote", ctx.ClientIP()),
		)
	}
}
