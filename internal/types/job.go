package types

import (
	"fmt"
	"strings"
)

// ModelSize selects the Whisper model the backend runs.
type ModelSize string

const (
	ModelTiny   ModelSize = "tiny"
	ModelBase   ModelSize = "base"
	ModelSmall  ModelSize = "small"
	ModelMedium ModelSize = "medium"
)

// ModelSizes lists every accepted model size.
var ModelSizes = []ModelSize{ModelTiny, ModelBase, ModelSmall, ModelMedium}

// ParseModelSize returns the ModelSize for s. Matching is case-insensitive.
func ParseModelSize(s string) (ModelSize, error) {
	want := ModelSize(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range ModelSizes {
		if m == want {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid model size %q: must be one of %v", s, ModelSizes)
}

// JobOptions are the per-job settings sent along with the audio.
type JobOptions struct {
	ReturnSegments bool
	ModelSize      ModelSize
}

// Media is the payload of a fresh submission: raw bytes, a reachable URL, or both.
type Media struct {
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"default_mime_type,omitempty"`
}

// State is the coarse state of a remote transcription job.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// JobStatus is derived from the latest backend response. It is never stored.
type JobStatus struct {
	State  State
	Reason string
	Err    error
}

// Pending reports whether the job is still running.
func (s JobStatus) Pending() bool { return s.State == StatePending }
