package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fitsworks/primary-server/internal/metrics"
	"github.com/fitsworks/primary-server/internal/models"
	"go.uber.org/zap"
)

// Pusher appends a serialized record to the work queue.
type Pusher interface {
	Push(ctx context.Context, payload []byte) error
}

type JobService struct {
	queue   Pusher
	timeout time.Duration
	logger  *zap.Logger
}

func NewJobService(queue Pusher, timeout time.Duration, logger *zap.Logger) *JobService {
	return &JobService{queue: queue, timeout: timeout, logger: logger}
}

// Submit serializes the submission and pushes it onto the work queue.
func (s *JobService) Submit(ctx context.Context, sub models.JobSubmission) error {
	data, err := sub.Payload()
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.queue.Push(ctx, data); err != nil {
		metrics.IncEnqueue(metrics.EnqueueError)
		return fmt.Errorf("failed to push job to queue: %w", err)
	}

	metrics.IncEnqueue(metrics.EnqueueOK)
	s.logger.Info("Successfully added to queue", zap.ByteString("jobId", sub.JobID))
	return nil
}
