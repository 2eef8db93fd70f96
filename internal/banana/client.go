// Package banana implements backend.Client against the banana.dev v4
// start/check API.
package banana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/embano1/whisper-blockifier/internal/backend"
	apperrors "github.com/embano1/whisper-blockifier/internal/errors"
	"github.com/embano1/whisper-blockifier/internal/types"
)

const (
	// DefaultEndpoint is the public banana.dev API.
	DefaultEndpoint = "https://api.banana.dev/"

	routeStart = "start/v4/"
	routeCheck = "check/v4/"

	defaultTimeout = 60 * time.Second
)

// Config holds the backend credentials and request settings.
type Config struct {
	Endpoint  string
	APIKey    string
	ModelKey  string
	StartOnly bool
	Timeout   time.Duration
}

// Client is a banana.dev backend client.
type Client struct {
	cfg     Config
	encoder Encoder
	http    *http.Client
	log     zerolog.Logger
	now     func() time.Time
}

// NewClient creates a Client. The encoder decides how audio is transmitted.
func NewClient(cfg Config, encoder Encoder, log zerolog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(cfg.Endpoint, "/") {
		cfg.Endpoint += "/"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:     cfg,
		encoder: encoder,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log.With().Str("component", "banana").Logger(),
		now:     time.Now,
	}
}

type startRequest struct {
	ID          string         `json:"id"`
	Created     int64          `json:"created"`
	APIKey      string         `json:"apiKey"`
	ModelKey    string         `json:"modelKey"`
	ModelInputs map[string]any `json:"modelInputs"`
	StartOnly   bool           `json:"startOnly"`
}

type checkRequest struct {
	ID       string `json:"id"`
	Created  int64  `json:"created"`
	LongPoll bool   `json:"longPoll"`
	CallID   string `json:"callID"`
	APIKey   string `json:"apiKey"`
}

// Start implements backend.Client.
func (c *Client) Start(ctx context.Context, media types.Media, opts types.JobOptions) (*backend.Ack, error) {
	inputs, err := c.encoder.Encode(ctx, media)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	inputs["return_segments"] = opts.ReturnSegments
	inputs["model_size"] = string(opts.ModelSize)

	body, err := c.post(ctx, routeStart, startRequest{
		ID:          uuid.NewString(),
		Created:     c.now().Unix(),
		APIKey:      c.cfg.APIKey,
		ModelKey:    c.cfg.ModelKey,
		ModelInputs: inputs,
		StartOnly:   c.cfg.StartOnly,
	})
	if err != nil {
		return nil, err
	}

	var ack struct {
		CallID string `json:"callID"`
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, apperrors.ServerError("returned invalid json")
	}
	if ack.CallID == "" {
		return nil, apperrors.ServerError("missing call id")
	}

	resp, err := c.decode(body)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("id", ack.CallID).Str("message", resp.Message).Msg("job acknowledged")
	return &backend.Ack{JobID: ack.CallID, Response: resp}, nil
}

// Check implements backend.Client.
func (c *Client) Check(ctx context.Context, jobID string) (*backend.Response, error) {
	body, err := c.post(ctx, routeCheck, checkRequest{
		ID:       uuid.NewString(),
		Created:  c.now().Unix(),
		LongPoll: true,
		CallID:   jobID,
		APIKey:   c.cfg.APIKey,
	})
	if err != nil {
		return nil, err
	}
	return c.decode(body)
}

func (c *Client) post(ctx context.Context, route string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+route, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.BackendUnavailable(fmt.Sprintf("banana request failed: %v", err), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ServerError("status code %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ServerError("read body: %v", err)
	}
	return body, nil
}

// decode parses a status body and rejects bodies that signal an error.
func (c *Client) decode(body []byte) (*backend.Response, error) {
	resp, err := backend.Decode(body)
	if err != nil {
		return nil, apperrors.ServerError("returned invalid json")
	}
	if resp.Malformed != "" {
		c.log.Warn().Str("reason", resp.Malformed).Msg("unexpected response shape")
	}
	if strings.Contains(strings.ToLower(resp.Message), "error") {
		return nil, apperrors.BackendRejected(resp.Message)
	}
	return resp, nil
}
