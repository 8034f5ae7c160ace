package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fitsworks/primary-server/internal/metrics"
	"github.com/fitsworks/primary-server/internal/models"
	"go.uber.org/zap"
)

var (
	ErrBufferFull       = errors.New("dispatch buffer is full")
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)

// Enqueuer performs one enqueue attempt.
type Enqueuer interface {
	Submit(ctx context.Context, sub models.JobSubmission) error
}

type DispatcherConfig struct {
	BufferSize   int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Dispatcher decouples accepting a submission from pushing it. Submissions
// wait in a bounded buffer and are pushed by a fixed pool of workers, each
// retrying a failed push MaxRetries times before dropping the record.
type Dispatcher struct {
	cfg    DispatcherConfig
	next   Enqueuer
	logger *zap.Logger

	jobs chan models.JobSubmission
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewDispatcher(next Enqueuer, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:    cfg,
		next:   next,
		logger: logger,
		jobs:   make(chan models.JobSubmission, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker pool. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.cfg.Workers; i++ {
			d.wg.Add(1)
			go d.worker(i + 1)
		}
		d.logger.Info("Dispatcher started",
			zap.Int("workers", d.cfg.Workers),
			zap.Int("buffer_size", d.cfg.BufferSize))
	})
}

// Submit buffers sub without blocking. The returned error only says whether
// the record was buffered; the push itself happens later.
func (d *Dispatcher) Submit(_ context.Context, sub models.JobSubmission) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.jobs <- sub:
		metrics.DispatchBufferDepth.Set(float64(len(d.jobs)))
		return nil
	default:
		metrics.IncEnqueue(metrics.EnqueueDropped)
		return ErrBufferFull
	}
}

// Stop refuses new submissions and waits for the buffer to drain. If ctx
// expires first, in-flight pushes are cancelled and ctx.Err is returned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	// workers that were never started would leave the buffer undrained
	d.Start()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.logger.Info("Dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		d.logger.Warn("Dispatcher stopped before draining",
			zap.Int("pending", len(d.jobs)),
			zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for sub := range d.jobs {
		metrics.DispatchBufferDepth.Set(float64(len(d.jobs)))
		d.deliver(id, sub)
	}
}

func (d *Dispatcher) deliver(workerID int, sub models.JobSubmission) {
	for attempt := 0; ; attempt++ {
		err := d.next.Submit(d.ctx, sub)
		if err == nil {
			return
		}

		if attempt >= d.cfg.MaxRetries || d.ctx.Err() != nil {
			metrics.IncEnqueue(metrics.EnqueueFailed)
			d.logger.Error("Dropping job after failed enqueue",
				zap.Int("worker", workerID),
				zap.Int("attempts", attempt+1),
				zap.ByteString("userId", sub.UserID),
				zap.ByteString("jobId", sub.JobID),
				zap.Error(err))
			return
		}

		metrics.IncEnqueue(metrics.EnqueueRetry)
		d.logger.Warn("Enqueue failed, retrying",
			zap.Int("worker", workerID),
			zap.Int("attempt", attempt+1),
			zap.ByteString("jobId", sub.JobID),
			zap.Error(err))

		select {
		case <-time.After(d.cfg.RetryBackoff * time.Duration(attempt+1)):
		case <-d.ctx.Done():
		}
	}
}
