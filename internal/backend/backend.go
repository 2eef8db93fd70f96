// Package backend defines the contract of a remote transcription job backend
// and the response shape every backend reports job status in.
package backend

import (
	"context"

	"github.com/embano1/whisper-blockifier/internal/types"
)

// MessageRunning is the message a backend reports for a job that has not finished.
const MessageRunning = "transcription is running"

// MessageSuccess is the message a backend reports for a finished job.
const MessageSuccess = "success"

// Client starts and checks remote transcription jobs. Each call performs a
// single attempt; retry cadence belongs to the caller.
type Client interface {
	// Start submits a job. The returned Ack always carries a non-empty job id.
	Start(ctx context.Context, media types.Media, opts types.JobOptions) (*Ack, error)
	// Check polls the job once.
	Check(ctx context.Context, jobID string) (*Response, error)
}

// Ack acknowledges a submitted job. Response is whatever status the backend
// returned inline with the acknowledgment and may be nil.
type Ack struct {
	JobID    string
	Response *Response
}
