package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/fitsworks/primary-server/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSubmitter struct {
	mu  sync.Mutex
	got []models.JobSubmission
	err error
}

func (f *fakeSubmitter) Submit(_ context.Context, sub models.JobSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, sub)
	return f.err
}

func newJobRouter(s Submitter, opts JobHandlerOptions, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.POST("/submit", NewJobHandler(s, opts, logger).SubmitJob)
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSubmitJobAccepted(t *testing.T) {
	s := &fakeSubmitter{}
	rec := post(newJobRouter(s, JobHandlerOptions{}, zap.NewNop()),
		`{"userId":"u1","jobId":"j1","s3Address":"s3://bucket/key"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, SubmittedMessage, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	require.Len(t, s.got, 1)
	payload, err := s.got[0].Payload()
	require.NoError(t, err)
	assert.Equal(t, `{"userId":"u1","jobId":"j1","s3Address":"s3://bucket/key"}`, string(payload))
}

func TestSubmitJobMissingFieldsPassThrough(t *testing.T) {
	s := &fakeSubmitter{}
	rec := post(newJobRouter(s, JobHandlerOptions{}, zap.NewNop()), `{"jobId":7}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, s.got, 1)
	payload, err := s.got[0].Payload()
	require.NoError(t, err)
	assert.Equal(t, `{"userId":null,"jobId":7,"s3Address":null}`, string(payload))
}

func TestSubmitJobBadRequest(t *testing.T) {
	bodies := map[string]string{
		"malformed":   `{"userId":`,
		"empty":       ``,
		"not json":    `userId=u1`,
		"array":       `[1,2,3]`,
		"string":      `"hello"`,
		"null":        `null`,
		"trailing":    `{"a":1} trailing`,
		"two objects": `{"jobId":"j1"}{"jobId":"j2"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			s := &fakeSubmitter{}
			rec := post(newJobRouter(s, JobHandlerOptions{}, zap.New(core)), body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, BadRequestMessage, rec.Body.String())
			assert.Empty(t, s.got)
			assert.Equal(t, 1, logs.FilterMessage("Bad job submission").Len())
		})
	}
}

func TestSubmitJobAsyncHidesEnqueueFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := &fakeSubmitter{err: errors.New("dispatch buffer is full")}
	rec := post(newJobRouter(s, JobHandlerOptions{}, zap.New(core)),
		`{"userId":"u1","jobId":"j1","s3Address":"s3://bucket/key"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, SubmittedMessage, rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("Job not queued").Len())
}

func TestSubmitJobSyncSurfacesEnqueueFailure(t *testing.T) {
	s := &fakeSubmitter{err: errors.New("connection refused")}
	rec := post(newJobRouter(s, JobHandlerOptions{AwaitEnqueue: true}, zap.NewNop()),
		`{"userId":"u1","jobId":"j1","s3Address":"s3://bucket/key"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, QueueUnavailableMessage, rec.Body.String())
}

func TestSubmitJobStrict(t *testing.T) {
	s := &fakeSubmitter{}
	r := newJobRouter(s, JobHandlerOptions{Strict: true}, zap.NewNop())

	rec := post(r, `{"userId":"u1","jobId":1,"s3Address":"s3://bucket/key"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, BadRequestMessage, rec.Body.String())
	assert.Empty(t, s.got)

	rec = post(r, `{"userId":"u1","jobId":"j1","s3Address":"s3://bucket/key"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.got, 1)
}

func TestSubmitJobLogsReceivedFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	post(newJobRouter(&fakeSubmitter{}, JobHandlerOptions{}, zap.New(core)),
		`{"userId":"u1","jobId":"j1","s3Address":"s3://bucket/key"}`)

	entries := logs.FilterMessage("Job submission received").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, `"u1"`, fields["userId"])
	assert.Equal(t, `"s3://bucket/key"`, fields["s3Address"])
}
