package media

import (
	"bytes"
	"encoding/binary"
	"slices"
	"testing"

	"github.com/embano1/whisper-blockifier/internal/types"
)

var defaultTypes = []string{"audio/mpeg", "audio/wav", "video/mp4", "audio/mp4"}

func TestAllowList(t *testing.T) {
	p, err := NewPolicy(PolicyAllowList, defaultTypes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		mime string
		want bool
	}{
		{"audio/mpeg", true},
		{"audio/wav", true},
		{"video/mp4", true},
		{"audio/mp4", true},
		{"AUDIO/MPEG", true},
		{"audio/wav; codecs=1", true},
		{"text/plain", false},
		{"audio/ogg", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := p.Accepts(tt.mime); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if got := p.Accepted(); !slices.Equal(got, defaultTypes) {
		t.Errorf("unexpected accepted list: %v", got)
	}
}

func TestFamilies(t *testing.T) {
	p, err := NewPolicy(PolicyFamilies, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for mime, want := range map[string]bool{
		"audio/ogg":       true,
		"video/webm":      true,
		"text/plain":      false,
		"application/pdf": false,
	} {
		if got := p.Accepts(mime); got != want {
			t.Errorf("Accepts(%q): expected %v, got %v", mime, want, got)
		}
	}
}

func TestNewPolicy_Errors(t *testing.T) {
	if _, err := NewPolicy(PolicyAllowList, nil); err == nil {
		t.Error("expected error for empty allowlist")
	}
	if _, err := NewPolicy("anything", defaultTypes); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":                         "",
		"  audio/MPEG ":            "audio/mpeg",
		"audio/wav; codecs=1":      "audio/wav",
		"text/plain;charset=utf-8": "text/plain",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve(types.Media{MimeType: "audio/mpeg; x=y", Data: wavBytes(t, 16000, 10)}); got != "audio/mpeg" {
		t.Errorf("expected declared type, got %q", got)
	}
	if got := Resolve(types.Media{Data: wavBytes(t, 16000, 10)}); !IsWAV(got) {
		t.Errorf("expected sniffed wav type, got %q", got)
	}
	if got := Resolve(types.Media{URL: "https://x/a.mp3"}); got != "" {
		t.Errorf("expected empty type, got %q", got)
	}
}

func TestInspectWAV(t *testing.T) {
	info, err := InspectWAV(wavBytes(t, 16000, 16000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 || info.BitDepth != 16 {
		t.Errorf("unexpected info: %+v", info)
	}

	if _, err := InspectWAV([]byte("definitely not a wav")); err == nil {
		t.Error("expected error for invalid wav")
	}
}

// wavBytes builds a mono 16-bit PCM WAV with the given number of samples.
func wavBytes(t *testing.T, sampleRate, samples int) []byte {
	t.Helper()
	dataLen := samples * 2
	var buf bytes.Buffer
	write := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	buf.WriteString("RIFF")
	write(uint32(36 + dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1)) // PCM
	write(uint16(1))
	write(uint32(sampleRate))
	write(uint32(sampleRate * 2))
	write(uint16(2))
	write(uint16(16))
	buf.WriteString("data")
	write(uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}
