package aws

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/embano1/whisper-blockifier/internal/types"
)

const (
	uploadPrefix      = "uploads/"
	defaultPresignTTL = 15 * time.Minute
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Presigner signs GET requests for staged objects.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Service stages audio and reads transcription results.
type S3Service struct {
	client  S3API
	presign Presigner
	bucket  string
	ttl     time.Duration
	log     zerolog.Logger
}

// NewS3Service creates a new S3 service staging into bucket. presign may be
// nil when presigned URLs are not needed.
func NewS3Service(client S3API, presign Presigner, bucket string, ttl time.Duration, log zerolog.Logger) *S3Service {
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	return &S3Service{
		client:  client,
		presign: presign,
		bucket:  bucket,
		ttl:     ttl,
		log:     log.With().Str("component", "s3").Logger(),
	}
}

// Bucket returns the staging bucket.
func (s *S3Service) Bucket() string { return s.bucket }

// ContentHash returns the first 16 hex digits of the SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// ObjectKey returns the staging key for audio, derived from its content so
// repeated submissions of the same file reuse one object.
func ObjectKey(data []byte, mimeType string) string {
	key := uploadPrefix + ContentHash(data)
	if m := mimetype.Lookup(mimeType); m != nil {
		key += m.Extension()
	}
	return key
}

// CheckObjectExists uses HeadObject to determine if the object already exists.
func (s *S3Service) CheckObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Upload writes data to bucket/key.
func (s *S3Service) Upload(ctx context.Context, bucket, key string, data []byte, mimeType string) error {
	in := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	}
	if mimeType != "" {
		in.ContentType = awssdk.String(mimeType)
	}
	_, err := s.client.PutObject(ctx, in)
	return err
}

// EnsureAudio uploads data to the staging bucket unless an object with the
// same content is already there, and returns its key.
func (s *S3Service) EnsureAudio(ctx context.Context, data []byte, mimeType string) (string, error) {
	key := ObjectKey(data, mimeType)
	exists, err := s.CheckObjectExists(ctx, s.bucket, key)
	if err != nil {
		return "", fmt.Errorf("check s3 object: %w", err)
	}
	if exists {
		s.log.Debug().Str("key", key).Msg("audio already staged, skipping upload")
		return key, nil
	}

	s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("uploading audio")
	if err := s.Upload(ctx, s.bucket, key, data, mimeType); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	return key, nil
}

// StageAudio stages data and returns a presigned GET URL for it.
func (s *S3Service) StageAudio(ctx context.Context, data []byte, mimeType string) (string, error) {
	if s.presign == nil {
		return "", errors.New("no presigner configured")
	}
	key, err := s.EnsureAudio(ctx, data, mimeType)
	if err != nil {
		return "", err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign audio: %w", err)
	}
	return req.URL, nil
}

// GetTranscript downloads the transcription result JSON from S3.
func (s *S3Service) GetTranscript(ctx context.Context, bucket, key string) (*types.TranscriptionResult, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = out.Body.Close()
	}()

	var result types.TranscriptionResult
	if err := json.NewDecoder(out.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return &result, nil
}

// isNotFoundError determines if an error from AWS indicates a "not found" condition.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var (
		notFound *s3types.NotFound
		noKey    *s3types.NoSuchKey
	)
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFoundException", "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return strings.Contains(err.Error(), "NotFound:")
}
