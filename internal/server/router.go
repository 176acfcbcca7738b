package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spigell/talent-scout/internal/metrics"
	"github.com/spigell/talent-scout/internal/screening"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Store      *screening.Store
	Controller *screening.Controller
	Logger     *zap.Logger
	// Metrics is optional; when set it is exposed on /metrics.
	Metrics *metrics.Metrics
	// OnFinish is called once a session reaches END or is closed by the candidate.
	OnFinish func(screening.Snapshot)
}

func NewRouter(deps Deps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		success(c, http.StatusOK, "ok", gin.H{"sessions": deps.Store.Len()})
	})

	v1 := r.Group("/api/v1")
	NewSessionHandler(v1, deps.Store, deps.Controller, log, deps.Metrics, deps.OnFinish)

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// Run serves handler on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("shutting down api server")
	return srv.Shutdown(shutdownCtx)
}
