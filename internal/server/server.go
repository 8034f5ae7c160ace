package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fitsworks/primary-server/internal/config"
	"github.com/fitsworks/primary-server/internal/handlers"
	redisinfra "github.com/fitsworks/primary-server/internal/infrastructure/redis"
	"github.com/fitsworks/primary-server/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultShutdownTimeout = 10 * time.Second

// Server owns the process-wide resources: the redis client, the optional
// dispatcher and the HTTP listener.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	redis      *redis.Client
	queue      *redisinfra.Queue
	dispatcher *services.Dispatcher
	router     *gin.Engine
	http       *http.Server
}

// New connects to redis and builds the HTTP stack. An unreachable redis is
// logged, not returned: submissions are accepted and their enqueue fails later.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	gin.SetMode(cfg.Server.Mode)

	rdb, err := redisinfra.NewClient(redisinfra.Config{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		logger.Warn("Redis not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	} else {
		logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	queue := redisinfra.NewQueue(rdb, cfg.Queue.Name)
	jobService := services.NewJobService(queue, cfg.Queue.EnqueueTimeout, logger)

	s := &Server{cfg: cfg, logger: logger, redis: rdb, queue: queue}

	var submitter handlers.Submitter = jobService
	switch cfg.Queue.Delivery {
	case config.DeliveryAsync:
		s.dispatcher = services.NewDispatcher(jobService, services.DispatcherConfig{
			BufferSize:   cfg.Queue.BufferSize,
			Workers:      cfg.Queue.Workers,
			MaxRetries:   cfg.Queue.MaxRetries,
			RetryBackoff: cfg.Queue.RetryBackoff,
		}, logger)
		s.dispatcher.Start()
		submitter = s.dispatcher
	case config.DeliverySync:
	default:
		_ = rdb.Close()
		return nil, fmt.Errorf("unknown delivery mode %q", cfg.Queue.Delivery)
	}

	jobHandler := handlers.NewJobHandler(submitter, handlers.JobHandlerOptions{
		AwaitEnqueue: cfg.Queue.Delivery == config.DeliverySync,
		Strict:       cfg.Submit.Strict,
	}, logger)
	healthHandler := handlers.NewHealthHandler(queue, cfg.Queue.Name)

	s.router = NewRouter(cfg.CORS.AllowedOrigins, logger, jobHandler, healthHandler)
	s.http = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server",
			zap.String("addr", s.cfg.Server.Addr),
			zap.String("queue", s.cfg.Queue.Name),
			zap.String("delivery", s.cfg.Queue.Delivery))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = s.Close(context.Background())
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down API server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	return s.Close(shutdownCtx)
}

// Close drains the dispatcher and releases the redis client.
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if s.dispatcher != nil {
		if err := s.dispatcher.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to drain dispatcher: %w", err))
		}
	}
	if err := s.redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
	}
	return errors.Join(errs...)
}
