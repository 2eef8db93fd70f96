// Package poller re-invokes the status-check path of a running job with
// exponential backoff until it finishes, fails, or runs out of time.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/embano1/whisper-blockifier/internal/types"
)

// ErrStillRunning is returned when the job has not finished within the timeout.
var ErrStillRunning = errors.New("transcription job still running")

// Runner handles a single invocation.
type Runner interface {
	Run(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Config is the polling cadence.
type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Timeout         time.Duration
}

// Poller drives a job to completion from the caller's side.
type Poller struct {
	runner Runner
	cfg    Config
	log    zerolog.Logger
}

// New creates a Poller.
func New(runner Runner, cfg Config, log zerolog.Logger) *Poller {
	return &Poller{
		runner: runner,
		cfg:    cfg,
		log:    log.With().Str("component", "poller").Logger(),
	}
}

// Transcribe submits m and waits for the transcript.
func (p *Poller) Transcribe(ctx context.Context, m types.Media) (*types.Response, error) {
	resp, err := p.runner.Run(ctx, &types.Request{Media: &m})
	if err != nil {
		return nil, err
	}
	if resp.State != types.TaskRunning {
		return resp, nil
	}
	p.log.Info().Str("id", resp.JobID).Msg("waiting for transcription job to complete")
	return p.Wait(ctx, resp.Token())
}

// Wait checks the job named by token until it leaves the running state.
// Errors from the runner end the wait immediately.
func (p *Poller) Wait(ctx context.Context, token *types.StatusToken) (*types.Response, error) {
	b := backoff.NewExponentialBackOff()
	if p.cfg.InitialInterval > 0 {
		b.InitialInterval = p.cfg.InitialInterval
	}
	if p.cfg.MaxInterval > 0 {
		b.MaxInterval = p.cfg.MaxInterval
	}

	checks := 0
	op := func() (*types.Response, error) {
		checks++
		resp, err := p.runner.Run(ctx, &types.Request{IsStatusCheck: true, Status: token})
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if resp.State == types.TaskRunning {
			token = resp.Token()
			p.log.Debug().Str("id", resp.JobID).Int("checks", checks).Msg("job status: running")
			return nil, ErrStillRunning
		}
		return resp, nil
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(b)}
	if p.cfg.Timeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.cfg.Timeout))
	}

	resp, err := backoff.Retry(ctx, op, opts...)
	if errors.Is(err, ErrStillRunning) {
		jobID := ""
		if token != nil {
			jobID = token.JobID
		}
		return nil, fmt.Errorf("job %q after %d checks: %w", jobID, checks, err)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
