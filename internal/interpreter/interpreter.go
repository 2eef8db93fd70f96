// Package interpreter classifies backend responses into job states and
// extracts transcript content from them.
package interpreter

import (
	"strings"

	"github.com/embano1/whisper-blockifier/internal/backend"
	"github.com/embano1/whisper-blockifier/internal/types"
)

// Classify derives the job status from the outcome of a start or check call.
//
// Responses that cannot be read are Pending: telling "still computing" apart
// from "backend returned garbage" is left to the caller's timeout.
func Classify(resp *backend.Response, err error) types.JobStatus {
	if err != nil {
		return types.JobStatus{State: types.StateFailed, Reason: err.Error(), Err: err}
	}
	if resp == nil || resp.Malformed != "" {
		return types.JobStatus{State: types.StatePending}
	}

	msg := strings.ToLower(strings.TrimSpace(resp.Message))
	switch {
	case strings.Contains(msg, "error"):
		return types.JobStatus{State: types.StateFailed, Reason: resp.Message}
	case msg == backend.MessageSuccess && resp.HasOutput():
		return types.JobStatus{State: types.StateSucceeded}
	default:
		return types.JobStatus{State: types.StatePending}
	}
}

// Text returns the trimmed text of the first model output.
func Text(resp *backend.Response) string {
	if !resp.HasOutput() {
		return ""
	}
	return strings.TrimSpace(resp.ModelOutputs[0].Text)
}

// Segments returns the segments of the first model output in backend order.
func Segments(resp *backend.Response) []types.Segment {
	if !resp.HasOutput() {
		return nil
	}
	out := resp.ModelOutputs[0].Segments
	segments := make([]types.Segment, 0, len(out))
	for _, s := range out {
		segments = append(segments, types.Segment{Text: s.Text, Start: s.Start, End: s.End})
	}
	return segments
}
