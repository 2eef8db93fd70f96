package banana

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/embano1/whisper-blockifier/internal/types"
)

// Payload transmission modes.
const (
	ModeInline = "inline"
	ModeURL    = "url"
)

// Encoder turns submitted media into the audio fields of modelInputs.
type Encoder interface {
	Encode(ctx context.Context, media types.Media) (map[string]any, error)
}

// Stager uploads audio somewhere the backend can fetch it from and returns
// a URL for it.
type Stager interface {
	StageAudio(ctx context.Context, data []byte, mimeType string) (string, error)
}

// InlineEncoder sends the audio bytes base64-encoded.
type InlineEncoder struct{}

// Encode implements Encoder.
func (InlineEncoder) Encode(_ context.Context, media types.Media) (map[string]any, error) {
	if len(media.Data) == 0 {
		return nil, errors.New("inline payload mode requires audio bytes")
	}
	return map[string]any{"audio": base64.StdEncoding.EncodeToString(media.Data)}, nil
}

// URLEncoder sends a URL the backend downloads the audio from. A URL given
// by the caller is passed through; otherwise the bytes are staged first.
type URLEncoder struct {
	Stager Stager
}

// Encode implements Encoder.
func (e URLEncoder) Encode(ctx context.Context, media types.Media) (map[string]any, error) {
	if media.URL != "" {
		return map[string]any{"url": media.URL}, nil
	}
	if len(media.Data) == 0 {
		return nil, errors.New("url payload mode requires an audio url or audio bytes")
	}
	if e.Stager == nil {
		return nil, errors.New("url payload mode has no stager for raw audio")
	}
	u, err := e.Stager.StageAudio(ctx, media.Data, media.MimeType)
	if err != nil {
		return nil, fmt.Errorf("stage audio: %w", err)
	}
	return map[string]any{"url": u}, nil
}

// NewEncoder returns the Encoder for mode. stager may be nil in inline mode.
func NewEncoder(mode string, stager Stager) (Encoder, error) {
	switch mode {
	case ModeInline, "":
		return InlineEncoder{}, nil
	case ModeURL:
		return URLEncoder{Stager: stager}, nil
	default:
		return nil, fmt.Errorf("unknown payload mode %q", mode)
	}
}
