package aws

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

func TestObjectKey(t *testing.T) {
	data := []byte("audio")
	key := ObjectKey(data, "audio/mpeg")
	if !strings.HasPrefix(key, "uploads/"+ContentHash(data)) {
		t.Errorf("unexpected key prefix: %s", key)
	}
	if !strings.HasSuffix(key, ".mp3") {
		t.Errorf("expected .mp3 extension, got %s", key)
	}
	if got := ObjectKey(data, ""); got != "uploads/"+ContentHash(data) {
		t.Errorf("expected bare key, got %s", got)
	}
	if len(ContentHash(data)) != 16 {
		t.Errorf("expected 16 hex digits, got %q", ContentHash(data))
	}
}

func TestS3Service_StageAudio(t *testing.T) {
	fs3 := newFakeS3()
	presign := &fakePresigner{}
	svc := NewS3Service(fs3, presign, "bucket", 0, zerolog.Nop())

	ctx := context.Background()
	u, err := svc.StageAudio(ctx, []byte("audio"), "audio/wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(u, "https://bucket.s3.amazonaws.com/uploads/") {
		t.Errorf("unexpected url: %s", u)
	}
	if len(fs3.puts) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(fs3.puts))
	}
	if ct := fs3.puts[0].ContentType; ct == nil || *ct != "audio/wav" {
		t.Errorf("unexpected content type: %v", ct)
	}

	// same content is not uploaded twice
	if _, err := svc.StageAudio(ctx, []byte("audio"), "audio/wav"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs3.puts) != 1 {
		t.Errorf("expected upload to be skipped, got %d uploads", len(fs3.puts))
	}
	if len(presign.keys) != 2 {
		t.Errorf("expected 2 presign calls, got %d", len(presign.keys))
	}
}

func TestS3Service_StageAudioNoPresigner(t *testing.T) {
	svc := NewS3Service(newFakeS3(), nil, "bucket", 0, zerolog.Nop())
	if _, err := svc.StageAudio(context.Background(), []byte("a"), ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestS3Service_CheckObjectExistsError(t *testing.T) {
	fs3 := newFakeS3()
	fs3.headErr = errors.New("access denied")
	svc := NewS3Service(fs3, nil, "bucket", 0, zerolog.Nop())

	if _, err := svc.CheckObjectExists(context.Background(), "bucket", "key"); err == nil {
		t.Fatal("expected error")
	}
}

func TestS3Service_GetTranscript(t *testing.T) {
	fs3 := newFakeS3()
	fs3.objects["out/job.json"] = `{"jobName":"job","results":{"transcripts":[{"transcript":"hi there"}]},"status":"COMPLETED"}`
	svc := NewS3Service(fs3, nil, "bucket", 0, zerolog.Nop())

	res, err := svc.GetTranscript(context.Background(), "out", "job.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.JobName != "job" || res.Results.Transcripts[0].Transcript != "hi there" {
		t.Errorf("unexpected result: %+v", res)
	}

	if _, err := svc.GetTranscript(context.Background(), "out", "missing.json"); err == nil {
		t.Error("expected error for missing object")
	}
}

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"api not found", &smithy.GenericAPIError{Code: "NotFoundException"}, true},
		{"api 404", &smithy.GenericAPIError{Code: "404"}, true},
		{"no such key", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"string match", errors.New("operation error S3: HeadObject, NotFound: Not Found"), true},
		{"other", errors.New("access denied"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFoundError(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
