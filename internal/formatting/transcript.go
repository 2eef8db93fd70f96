// Package formatting turns backend output into caller-facing transcripts:
// assembled text with timestamp tags, or a single plain block.
package formatting

import (
	"strings"
	"unicode/utf8"

	"github.com/embano1/whisper-blockifier/internal/types"
)

// Plain builds an unsegmented transcript.
func Plain(text string) types.Transcript {
	return types.Transcript{Text: strings.TrimSpace(text)}
}

// Assemble joins segment texts with single spaces and records where each
// trimmed segment lands in the result. Segments that trim to nothing are dropped.
func Assemble(segments []types.Segment) types.Transcript {
	var (
		b      strings.Builder
		length int
		out    = make([]types.Segment, 0, len(segments))
	)

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if length > 0 {
			b.WriteString(" ")
			length++
		}
		start := length
		b.WriteString(text)
		length += utf8.RuneCountInString(text)

		out = append(out, types.Segment{
			Text:     text,
			Start:    seg.Start,
			End:      seg.End,
			StartIdx: start,
			EndIdx:   length,
		})
	}

	return types.Transcript{Text: b.String(), Segments: out}
}

// TimestampTag creates a timestamp tag for an assembled segment.
func TimestampTag(seg types.Segment) types.Tag {
	return types.Tag{
		Kind:     types.TagKindTimestamp,
		StartIdx: seg.StartIdx,
		EndIdx:   seg.StartIdx + utf8.RuneCountInString(seg.Text),
		Name:     seg.Text,
		Value:    types.TimestampValue{StartTime: seg.Start, EndTime: seg.End},
	}
}

// Blocks renders a transcript as a single block, tagged per segment.
func Blocks(t types.Transcript) []types.Block {
	block := types.Block{Text: t.Text}
	for _, seg := range t.Segments {
		block.Tags = append(block.Tags, TimestampTag(seg))
	}
	return []types.Block{block}
}
