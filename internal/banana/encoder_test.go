package banana

import (
	"context"
	"errors"
	"testing"

	"github.com/embano1/whisper-blockifier/internal/types"
)

type fakeStager struct {
	url   string
	err   error
	calls int
}

func (f *fakeStager) StageAudio(context.Context, []byte, string) (string, error) {
	f.calls++
	return f.url, f.err
}

func TestInlineEncoder(t *testing.T) {
	got, err := InlineEncoder{}.Encode(context.Background(), types.Media{Data: []byte("hi")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["audio"] != "aGk=" {
		t.Errorf("expected aGk=, got %v", got["audio"])
	}

	if _, err := (InlineEncoder{}).Encode(context.Background(), types.Media{URL: "https://x"}); err == nil {
		t.Error("expected error for missing bytes")
	}
}

func TestURLEncoder(t *testing.T) {
	t.Run("pass through", func(t *testing.T) {
		s := &fakeStager{}
		got, err := URLEncoder{Stager: s}.Encode(context.Background(), types.Media{URL: "https://cdn/a.mp3", Data: []byte("x")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got["url"] != "https://cdn/a.mp3" {
			t.Errorf("unexpected url: %v", got["url"])
		}
		if s.calls != 0 {
			t.Errorf("expected no staging, got %d calls", s.calls)
		}
	})

	t.Run("stage bytes", func(t *testing.T) {
		s := &fakeStager{url: "https://bucket/signed"}
		got, err := URLEncoder{Stager: s}.Encode(context.Background(), types.Media{Data: []byte("x")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got["url"] != "https://bucket/signed" || s.calls != 1 {
			t.Errorf("unexpected result %v after %d calls", got, s.calls)
		}
	})

	t.Run("stage error", func(t *testing.T) {
		s := &fakeStager{err: errors.New("denied")}
		if _, err := (URLEncoder{Stager: s}).Encode(context.Background(), types.Media{Data: []byte("x")}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("no stager", func(t *testing.T) {
		if _, err := (URLEncoder{}).Encode(context.Background(), types.Media{Data: []byte("x")}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestNewEncoder(t *testing.T) {
	if _, ok := mustEncoder(t, ModeInline).(InlineEncoder); !ok {
		t.Error("expected InlineEncoder")
	}
	if _, ok := mustEncoder(t, ModeURL).(URLEncoder); !ok {
		t.Error("expected URLEncoder")
	}
	if _, err := NewEncoder("carrier-pigeon", nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func mustEncoder(t *testing.T, mode string) Encoder {
	t.Helper()
	e, err := NewEncoder(mode, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}
