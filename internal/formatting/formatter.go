package formatting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/embano1/whisper-blockifier/internal/types"
)

const (
	itemPunctuation   = "punctuation"
	itemPronunciation = "pronunciation"
)

// FormatTranscriptWithSpeakers formats the transcript with speaker labels for better readability
func FormatTranscriptWithSpeakers(result *types.TranscriptionResult) string {
	var formatted strings.Builder
	currentSpeaker := ""

	for _, item := range result.Results.Items {
		if len(item.Alternatives) == 0 {
			continue
		}
		word := item.Alternatives[0].Content

		switch item.Type {
		case itemPunctuation:
			formatted.WriteString(word)
		case itemPronunciation:
			if item.SpeakerLabel != "" && item.SpeakerLabel != currentSpeaker {
				currentSpeaker = item.SpeakerLabel
				if formatted.Len() > 0 {
					formatted.WriteString("\n\n")
				}
				fmt.Fprintf(&formatted, "Speaker %s:", strings.TrimPrefix(currentSpeaker, "spk_"))
			}
			if formatted.Len() > 0 {
				formatted.WriteString(" ")
			}
			formatted.WriteString(word)
		}
	}

	return formatted.String()
}

// SegmentsFromItems groups word items into segments. A segment ends after
// sentence punctuation, and on a speaker change when splitOnSpeaker is set.
// Segment times span the first to the last pronounced word.
func SegmentsFromItems(items []types.Item, splitOnSpeaker bool) []types.Segment {
	var (
		segments []types.Segment
		current  *types.Segment
		text     strings.Builder
		speaker  string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(text.String())
		if current.Text != "" {
			segments = append(segments, *current)
		}
		current = nil
		text.Reset()
	}

	for _, item := range items {
		if len(item.Alternatives) == 0 {
			continue
		}
		word := item.Alternatives[0].Content

		switch item.Type {
		case itemPunctuation:
			if current == nil {
				continue
			}
			text.WriteString(word)
			if isSentenceEnd(word) {
				flush()
			}
		case itemPronunciation:
			if splitOnSpeaker && item.SpeakerLabel != "" && item.SpeakerLabel != speaker {
				flush()
				speaker = item.SpeakerLabel
			}
			start, end := parseSeconds(item.StartTime), parseSeconds(item.EndTime)
			if current == nil {
				current = &types.Segment{Start: start}
			} else {
				text.WriteString(" ")
			}
			current.End = end
			text.WriteString(word)
		}
	}
	flush()

	return segments
}

func isSentenceEnd(p string) bool {
	return p == "." || p == "?" || p == "!"
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
