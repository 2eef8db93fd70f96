package media

import (
	"bytes"
	"errors"
	"time"

	"github.com/go-audio/wav"
)

// WAVInfo is the header information of a WAV payload.
type WAVInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// InspectWAV reads the header of a WAV blob. Duration is zero when it
// cannot be computed.
func InspectWAV(b []byte) (*WAVInfo, error) {
	dec := wav.NewDecoder(bytes.NewReader(b))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}

	info := &WAVInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if d, err := dec.Duration(); err == nil {
		info.Duration = d
	}
	return info, nil
}

// IsWAV reports whether mimeType names a WAV container.
func IsWAV(mimeType string) bool {
	switch Normalize(mimeType) {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return true
	}
	return false
}
