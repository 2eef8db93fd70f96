// Package aws implements backend.Client on top of AWS Transcribe, with S3 as
// the staging and result store.
package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	transcribetypes "github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/embano1/whisper-blockifier/internal/backend"
	apperrors "github.com/embano1/whisper-blockifier/internal/errors"
	"github.com/embano1/whisper-blockifier/internal/formatting"
	"github.com/embano1/whisper-blockifier/internal/types"
)

const jobPrefix = "transcribe-"

// TranscribeAPI is the subset of the Transcribe client used here.
type TranscribeAPI interface {
	StartTranscriptionJob(ctx context.Context, in *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, in *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// TranscribeConfig holds the job settings.
type TranscribeConfig struct {
	OutputBucket  string
	LanguageCode  string
	SpeakerLabels bool
	MaxSpeakers   int
}

// TranscribeBackend runs jobs on AWS Transcribe.
type TranscribeBackend struct {
	client TranscribeAPI
	s3     *S3Service
	cfg    TranscribeConfig
	log    zerolog.Logger
}

var _ backend.Client = (*TranscribeBackend)(nil)

// NewTranscribeBackend creates a new Transcribe backend. Results are read
// from cfg.OutputBucket, or the staging bucket when unset.
func NewTranscribeBackend(client TranscribeAPI, s3svc *S3Service, cfg TranscribeConfig, log zerolog.Logger) *TranscribeBackend {
	if cfg.OutputBucket == "" {
		cfg.OutputBucket = s3svc.Bucket()
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = string(transcribetypes.LanguageCodeEnUs)
	}
	return &TranscribeBackend{
		client: client,
		s3:     s3svc,
		cfg:    cfg,
		log:    log.With().Str("component", "transcribe").Logger(),
	}
}

// Start implements backend.Client. The job name is derived from the audio
// content, so resubmitting a file attaches to the existing job.
func (t *TranscribeBackend) Start(ctx context.Context, media types.Media, _ types.JobOptions) (*backend.Ack, error) {
	var mediaURI, jobName string
	switch {
	case len(media.Data) > 0:
		key, err := t.s3.EnsureAudio(ctx, media.Data, media.MimeType)
		if err != nil {
			return nil, classifyError("stage audio", err)
		}
		mediaURI = fmt.Sprintf("s3://%s/%s", t.s3.Bucket(), key)
		jobName = jobPrefix + ContentHash(media.Data)
	case strings.HasPrefix(media.URL, "s3://"):
		mediaURI = media.URL
		jobName = jobPrefix + ContentHash([]byte(media.URL))
	default:
		return nil, errors.New("transcribe requires audio bytes or an s3:// url")
	}

	exists, status, err := t.getTranscriptionJobStatus(ctx, jobName)
	if err != nil {
		return nil, classifyError("get transcription job", err)
	}
	if exists {
		t.log.Info().Str("id", jobName).Str("status", status).Msg("transcription job already exists")
		return &backend.Ack{JobID: jobName}, nil
	}

	if err := t.startTranscriptionJob(ctx, jobName, mediaURI, media.MimeType); err != nil {
		return nil, classifyError("start transcription job", err)
	}
	t.log.Info().Str("id", jobName).Msg("transcription job started")
	return &backend.Ack{
		JobID:    jobName,
		Response: &backend.Response{Message: backend.MessageRunning},
	}, nil
}

// Check implements backend.Client.
func (t *TranscribeBackend) Check(ctx context.Context, jobID string) (*backend.Response, error) {
	out, err := t.client.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: &jobID,
	})
	if err != nil {
		return nil, classifyError("get transcription job", err)
	}
	if out.TranscriptionJob == nil {
		return nil, apperrors.ServerError("missing transcription job %q", jobID)
	}

	job := out.TranscriptionJob
	t.log.Debug().Str("id", jobID).Str("status", string(job.TranscriptionJobStatus)).Msg("job status")

	switch job.TranscriptionJobStatus {
	case transcribetypes.TranscriptionJobStatusCompleted:
		return t.fetchResult(ctx, jobID)
	case transcribetypes.TranscriptionJobStatusFailed:
		reason := "transcription job failed"
		if job.FailureReason != nil {
			reason = *job.FailureReason
		}
		return nil, apperrors.BackendRejected("error: " + reason)
	default:
		return &backend.Response{Message: backend.MessageRunning}, nil
	}
}

// fetchResult reads <jobName>.json, the key Transcribe writes results to.
func (t *TranscribeBackend) fetchResult(ctx context.Context, jobName string) (*backend.Response, error) {
	key := jobName + ".json"
	result, err := t.s3.GetTranscript(ctx, t.cfg.OutputBucket, key)
	if err != nil {
		return nil, classifyError("get transcript", err)
	}
	if len(result.Results.Transcripts) == 0 {
		return nil, apperrors.BackendRejected("error: no transcript found in result")
	}

	text := result.Results.Transcripts[0].Transcript
	if t.cfg.SpeakerLabels && result.Results.SpeakerLabels != nil {
		text = formatting.FormatTranscriptWithSpeakers(result)
	}

	items := formatting.SegmentsFromItems(result.Results.Items, t.cfg.SpeakerLabels)
	segments := make([]backend.Segment, 0, len(items))
	for _, s := range items {
		segments = append(segments, backend.Segment{Text: s.Text, Start: s.Start, End: s.End})
	}

	return &backend.Response{
		Message:      backend.MessageSuccess,
		ModelOutputs: []backend.ModelOutput{{Text: text, Segments: segments}},
	}, nil
}

// getTranscriptionJobStatus checks whether the transcription job exists and returns its status.
func (t *TranscribeBackend) getTranscriptionJobStatus(ctx context.Context, jobName string) (bool, string, error) {
	out, err := t.client.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: &jobName,
	})
	if err != nil {
		if isNotFoundError(err) || strings.Contains(err.Error(), "The requested job couldn't be found") {
			return false, "", nil
		}
		return false, "", err
	}
	if out.TranscriptionJob == nil {
		return false, "", nil
	}
	return true, string(out.TranscriptionJob.TranscriptionJobStatus), nil
}

// startTranscriptionJob starts a transcription job for the staged media.
func (t *TranscribeBackend) startTranscriptionJob(ctx context.Context, jobName, mediaURI, mimeType string) error {
	input := &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: &jobName,
		LanguageCode:         transcribetypes.LanguageCode(t.cfg.LanguageCode),
		Media: &transcribetypes.Media{
			MediaFileUri: &mediaURI,
		},
		OutputBucketName: &t.cfg.OutputBucket,
	}
	if format := mediaFormat(mimeType); format != "" {
		input.MediaFormat = format
	}

	if t.cfg.SpeakerLabels {
		show := true
		maxSpeakers := int32(t.cfg.MaxSpeakers)
		input.Settings = &transcribetypes.Settings{
			ShowSpeakerLabels: &show,
			MaxSpeakerLabels:  &maxSpeakers,
		}
	}
	_, err := t.client.StartTranscriptionJob(ctx, input)
	return err
}

// mediaFormat maps a MIME type to a Transcribe media format. Transcribe
// detects the format itself when none is given.
func mediaFormat(mimeType string) transcribetypes.MediaFormat {
	switch strings.ToLower(mimeType) {
	case "audio/mpeg", "audio/mp3":
		return transcribetypes.MediaFormat("mp3")
	case "audio/mp4", "video/mp4":
		return transcribetypes.MediaFormat("mp4")
	case "audio/x-m4a", "audio/m4a":
		return transcribetypes.MediaFormat("m4a")
	case "audio/wav", "audio/x-wav", "audio/wave":
		return transcribetypes.MediaFormat("wav")
	case "audio/flac", "audio/x-flac":
		return transcribetypes.MediaFormat("flac")
	case "audio/ogg":
		return transcribetypes.MediaFormat("ogg")
	case "audio/webm", "video/webm":
		return transcribetypes.MediaFormat("webm")
	default:
		return ""
	}
}

// classifyError maps an AWS error onto the backend error taxonomy: throttling
// and server faults are transient, client faults are rejections.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case isThrottle(code) || apiErr.ErrorFault() == smithy.FaultServer:
			return apperrors.ServerError("%s: %s", op, code).WithCause(err)
		case isNotFoundError(err) || apiErr.ErrorFault() == smithy.FaultClient:
			return apperrors.BackendRejected(fmt.Sprintf("error: %s: %s", op, code)).WithCause(err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch sc := respErr.HTTPStatusCode(); {
		case sc >= 500:
			return apperrors.ServerError("%s: status code %d", op, sc).WithCause(err)
		case sc >= 400:
			return apperrors.BackendRejected(fmt.Sprintf("error: %s: status code %d", op, sc)).WithCause(err)
		}
	}

	return apperrors.BackendUnavailable(fmt.Sprintf("%s: %v", op, err), err)
}

func isThrottle(code string) bool {
	switch code {
	case "ThrottlingException", "Throttling", "TooManyRequestsException", "LimitExceededException", "SlowDown", "RequestLimitExceeded":
		return true
	}
	return false
}
