package types

// StatusToken is the caller-held state round-tripped across status checks.
type StatusToken struct {
	JobID   string `json:"transcription_id,omitempty"`
	Message string `json:"remote_status_message,omitempty"`
}

// Request is a single invocation from the host runtime.
type Request struct {
	IsStatusCheck bool         `json:"is_status_check"`
	Media         *Media       `json:"data,omitempty"`
	Status        *StatusToken `json:"status,omitempty"`
}

// TaskState is the caller-facing state of an invocation.
type TaskState string

const (
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
)

// Response is the outcome of a single invocation: either a running marker
// carrying the job id, or the finished transcript blocks.
type Response struct {
	State         TaskState `json:"state"`
	JobID         string    `json:"job_id,omitempty"`
	StatusMessage string    `json:"status_message,omitempty"`
	Blocks        []Block   `json:"blocks,omitempty"`
}

// Token returns the status token a caller should send on its next status check.
func (r *Response) Token() *StatusToken {
	if r == nil || r.JobID == "" {
		return nil
	}
	return &StatusToken{JobID: r.JobID, Message: r.StatusMessage}
}

// Block is a unit of text with optional tags.
type Block struct {
	Text string `json:"text"`
	Tags []Tag  `json:"tags,omitempty"`
}

// TagKindTimestamp marks a tag carrying segment time offsets.
const TagKindTimestamp = "timestamp"

// Tag annotates the [StartIdx, EndIdx) span of a block's text.
type Tag struct {
	Kind     string         `json:"kind"`
	StartIdx int            `json:"start_idx"`
	EndIdx   int            `json:"end_idx"`
	Name     string         `json:"name"`
	Value    TimestampValue `json:"value"`
}

// TimestampValue holds segment offsets in seconds.
type TimestampValue struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}
