package handlers

import (
	"context"
	"net/http"

	"github.com/fitsworks/primary-server/internal/metrics"
	"github.com/fitsworks/primary-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	SubmittedMessage        = "Job submitted to queue!!"
	BadRequestMessage       = "Bad request"
	QueueUnavailableMessage = "Queue unavailable"
)

// Submitter accepts a submission for enqueueing. It is either the job
// service itself or the dispatcher sitting in front of it.
type Submitter interface {
	Submit(ctx context.Context, sub models.JobSubmission) error
}

type JobHandlerOptions struct {
	// AwaitEnqueue makes enqueue failures visible to the caller as 503.
	AwaitEnqueue bool
	// Strict requires all three fields to be non-empty strings.
	Strict bool
}

type JobHandler struct {
	submitter Submitter
	opts      JobHandlerOptions
	logger    *zap.Logger
}

func NewJobHandler(submitter Submitter, opts JobHandlerOptions, logger *zap.Logger) *JobHandler {
	return &JobHandler{submitter: submitter, opts: opts, logger: logger}
}

// SubmitJob handles POST /submit
func (h *JobHandler) SubmitJob(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.reject(c, err)
		return
	}
	sub, err := models.ParseJobSubmission(body)
	if err != nil {
		h.reject(c, err)
		return
	}

	h.logger.Info("Job submission received",
		zap.ByteString("userId", sub.UserID),
		zap.ByteString("jobId", sub.JobID),
		zap.ByteString("s3Address", sub.S3Address))

	if h.opts.Strict {
		if err := sub.Validate(); err != nil {
			h.reject(c, err)
			return
		}
	}

	if err := h.submitter.Submit(c.Request.Context(), sub); err != nil {
		if h.opts.AwaitEnqueue {
			metrics.IncSubmission(metrics.SubmissionRejected)
			h.logger.Error("Failed to enqueue job", zap.ByteString("jobId", sub.JobID), zap.Error(err))
			c.String(http.StatusServiceUnavailable, QueueUnavailableMessage)
			return
		}
		// the caller is still told the job was submitted
		h.logger.Error("Job not queued", zap.ByteString("jobId", sub.JobID), zap.Error(err))
	}

	metrics.IncSubmission(metrics.SubmissionAccepted)
	c.String(http.StatusOK, SubmittedMessage)
}

func (h *JobHandler) reject(c *gin.Context, err error) {
	metrics.IncSubmission(metrics.SubmissionRejected)
	h.logger.Error("Bad job submission", zap.Error(err))
	c.String(http.StatusBadRequest, BadRequestMessage)
}
