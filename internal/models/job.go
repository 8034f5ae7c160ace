package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidSubmission = errors.New("invalid job submission")

// JobSubmission is the record pushed onto the work queue. Field values are
// kept as raw JSON so whatever the client sent reaches the workers unchanged;
// an absent field is encoded as null.
type JobSubmission struct {
	UserID    json.RawMessage `json:"userId"`
	JobID     json.RawMessage `json:"jobId"`
	S3Address json.RawMessage `json:"s3Address"`
}

// ParseJobSubmission decodes a request body. The body must be exactly one
// JSON object; null, arrays, scalars and trailing data are rejected.
func ParseJobSubmission(body []byte) (JobSubmission, error) {
	var sub JobSubmission
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return sub, fmt.Errorf("%w: empty body", ErrInvalidSubmission)
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return sub, fmt.Errorf("%w: body is not a JSON object", ErrInvalidSubmission)
	}
	if err := json.Unmarshal(trimmed, &sub); err != nil {
		return sub, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	return sub, nil
}

// Validate requires every field to be a non-empty JSON string.
func (s JobSubmission) Validate() error {
	fields := []struct {
		name  string
		value json.RawMessage
	}{
		{"userId", s.UserID},
		{"jobId", s.JobID},
		{"s3Address", s.S3Address},
	}
	for _, f := range fields {
		var v string
		if len(f.value) == 0 || json.Unmarshal(f.value, &v) != nil {
			return fmt.Errorf("%w: %s must be a string", ErrInvalidSubmission, f.name)
		}
		if v == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidSubmission, f.name)
		}
	}
	return nil
}

// Payload serializes the record in the queue wire format.
func (s JobSubmission) Payload() ([]byte, error) {
	return json.Marshal(s)
}
