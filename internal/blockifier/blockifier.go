// Package blockifier drives a remote transcription job through its life:
// it validates and submits media, re-checks running jobs on request, and
// turns finished jobs into transcript blocks.
//
// Each Run performs at most one backend call. A job that is still running is
// reported as such together with its id; the caller decides when to check
// again.
package blockifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/embano1/whisper-blockifier/internal/backend"
	apperrors "github.com/embano1/whisper-blockifier/internal/errors"
	"github.com/embano1/whisper-blockifier/internal/formatting"
	"github.com/embano1/whisper-blockifier/internal/interpreter"
	"github.com/embano1/whisper-blockifier/internal/media"
	"github.com/embano1/whisper-blockifier/internal/types"
)

const instrumentationName = "github.com/embano1/whisper-blockifier/internal/blockifier"

// StatusOngoing is the status message of a running job.
const StatusOngoing = "Transcription job ongoing."

const (
	outcomeRunning  = "running"
	outcomeComplete = "complete"
	outcomeError    = "error"
)

// Options configure a Blockifier.
type Options struct {
	ModelSize      string
	ReturnSegments bool
	MediaPolicy    string
	AllowedTypes   []string
}

// Blockifier is the job lifecycle controller. It holds no per-job state and
// is safe for concurrent use.
type Blockifier struct {
	client   backend.Client
	opts     types.JobOptions
	policy   media.Policy
	log      zerolog.Logger
	tracer   trace.Tracer
	outcomes metric.Int64Counter
}

// New creates a Blockifier. Invalid options fail here rather than on first use.
func New(cfg Options, client backend.Client, log zerolog.Logger) (*Blockifier, error) {
	if client == nil {
		return nil, apperrors.InvalidConfig("backend client is required")
	}
	size, err := types.ParseModelSize(cfg.ModelSize)
	if err != nil {
		return nil, apperrors.InvalidConfig(err.Error())
	}
	policy, err := media.NewPolicy(cfg.MediaPolicy, cfg.AllowedTypes)
	if err != nil {
		return nil, apperrors.InvalidConfig(err.Error())
	}

	outcomes, err := otel.Meter(instrumentationName).Int64Counter("blockifier.outcomes",
		metric.WithDescription("Invocation outcomes by kind"),
	)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("create outcome counter: %w", err))
	}

	return &Blockifier{
		client:   client,
		opts:     types.JobOptions{ReturnSegments: cfg.ReturnSegments, ModelSize: size},
		policy:   policy,
		log:      log.With().Str("component", "blockifier").Logger(),
		tracer:   otel.Tracer(instrumentationName),
		outcomes: outcomes,
	}, nil
}

// Run handles one invocation: a fresh submission, or a status check when
// req.IsStatusCheck is set. Every returned error is an *apperrors.AppError.
func (b *Blockifier) Run(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req == nil {
		return nil, apperrors.Internal(errors.New("nil request"))
	}
	if req.IsStatusCheck {
		return b.checkStatus(ctx, req.Status)
	}
	return b.startWork(ctx, req.Media)
}

func (b *Blockifier) startWork(ctx context.Context, m *types.Media) (*types.Response, error) {
	ctx, span := b.tracer.Start(ctx, "blockifier.start")
	defer span.End()

	if m == nil {
		return nil, b.reject(ctx, span, apperrors.UnsupportedMedia("", b.policy.Accepted()))
	}

	mimeType := media.Resolve(*m)
	span.SetAttributes(attribute.String("media.type", mimeType))
	if !b.policy.Accepts(mimeType) {
		declared := m.MimeType
		if declared == "" {
			declared = mimeType
		}
		return nil, b.reject(ctx, span, apperrors.UnsupportedMedia(declared, b.policy.Accepted()))
	}

	submitted := *m
	submitted.MimeType = mimeType
	b.inspect(submitted)

	ack, err := b.client.Start(ctx, submitted, b.opts)
	if err == nil && (ack == nil || ack.JobID == "") {
		err = errors.New("backend returned no job id")
	}
	if err != nil {
		b.log.Error().Err(err).Msg("could not schedule work")
		return nil, b.reject(ctx, span, apperrors.SchedulingFailed(err))
	}

	span.SetAttributes(attribute.String("job.id", ack.JobID))
	b.log.Info().Str("id", ack.JobID).Str("mime_type", mimeType).Msg("transcription job submitted")
	return b.interpret(ctx, span, ack.JobID, ack.Response, nil)
}

func (b *Blockifier) checkStatus(ctx context.Context, token *types.StatusToken) (*types.Response, error) {
	ctx, span := b.tracer.Start(ctx, "blockifier.check")
	defer span.End()

	if token == nil || strings.TrimSpace(token.JobID) == "" {
		return nil, b.reject(ctx, span, apperrors.MissingJobToken())
	}

	jobID := token.JobID
	span.SetAttributes(attribute.String("job.id", jobID))
	resp, err := b.client.Check(ctx, jobID)
	return b.interpret(ctx, span, jobID, resp, err)
}

// interpret is the single classification path shared by submissions and
// status checks.
func (b *Blockifier) interpret(ctx context.Context, span trace.Span, jobID string, resp *backend.Response, err error) (*types.Response, error) {
	if resp != nil && resp.Malformed != "" {
		b.log.Warn().Str("id", jobID).Str("reason", resp.Malformed).Msg("malformed backend response, treating job as pending")
	}

	status := interpreter.Classify(resp, classifyClientError(err))
	switch status.State {
	case types.StateSucceeded:
		b.record(ctx, outcomeComplete)
		b.log.Info().Str("id", jobID).Msg("transcription job complete")
		return &types.Response{
			State:  types.TaskSucceeded,
			JobID:  jobID,
			Blocks: formatting.Blocks(b.transcript(resp)),
		}, nil
	case types.StateFailed:
		return b.fail(ctx, span, jobID, status)
	default:
		return b.running(ctx, jobID), nil
	}
}

func (b *Blockifier) fail(ctx context.Context, span trace.Span, jobID string, status types.JobStatus) (*types.Response, error) {
	cause := status.Err
	if cause == nil {
		cause = apperrors.BackendRejected(status.Reason)
	}

	if apperrors.IsTransient(cause) {
		b.log.Warn().Str("id", jobID).Err(cause).Msg("transient backend failure, job still pending")
		return b.running(ctx, jobID), nil
	}

	appErr, _ := apperrors.As(cause)
	fatal := &apperrors.AppError{
		Code:       appErr.Code,
		Message:    fmt.Sprintf("transcription failed id=%q: %q", jobID, strings.ToLower(appErr.Message)),
		HTTPStatus: appErr.HTTPStatus,
		Cause:      appErr,
	}
	fatal.WithDetail("job_id", jobID)

	b.log.Error().Str("id", jobID).Err(cause).Msg("transcription failed")
	return nil, b.reject(ctx, span, fatal)
}

func (b *Blockifier) running(ctx context.Context, jobID string) *types.Response {
	b.record(ctx, outcomeRunning)
	b.log.Debug().Str("id", jobID).Msg("transcription job ongoing")
	return &types.Response{
		State:         types.TaskRunning,
		JobID:         jobID,
		StatusMessage: StatusOngoing,
	}
}

// transcript normalizes a successful response. Without usable segments the
// plain text is used.
func (b *Blockifier) transcript(resp *backend.Response) types.Transcript {
	if b.opts.ReturnSegments {
		if t := formatting.Assemble(interpreter.Segments(resp)); len(t.Segments) > 0 {
			return t
		}
	}
	return formatting.Plain(interpreter.Text(resp))
}

func (b *Blockifier) reject(ctx context.Context, span trace.Span, err *apperrors.AppError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Code))
	b.record(ctx, outcomeError)
	return err
}

func (b *Blockifier) record(ctx context.Context, outcome string) {
	b.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// inspect logs WAV header details. It never rejects input.
func (b *Blockifier) inspect(m types.Media) {
	if len(m.Data) == 0 || !media.IsWAV(m.MimeType) {
		return
	}
	info, err := media.InspectWAV(m.Data)
	if err != nil {
		b.log.Debug().Err(err).Msg("could not read wav header")
		return
	}
	b.log.Debug().
		Int("sample_rate", info.SampleRate).
		Int("channels", info.Channels).
		Dur("duration", info.Duration).
		Msg("wav payload")
}

// classifyClientError maps errors from a backend.Client onto the error
// taxonomy. Typed errors pass through unchanged.
func classifyClientError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if strings.Contains(strings.ToLower(err.Error()), "error") {
		return apperrors.BackendRejected(err.Error()).WithCause(err)
	}
	return apperrors.BackendUnavailable(err.Error(), err)
}
