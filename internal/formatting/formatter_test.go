package formatting

import (
	"testing"

	"github.com/embano1/whisper-blockifier/internal/types"
)

func word(content, start, end, speaker string) types.Item {
	return types.Item{
		Type:         "pronunciation",
		StartTime:    start,
		EndTime:      end,
		SpeakerLabel: speaker,
		Alternatives: []types.Alternative{{Content: content}},
	}
}

func punct(content string) types.Item {
	return types.Item{Type: "punctuation", Alternatives: []types.Alternative{{Content: content}}}
}

func testItems() []types.Item {
	return []types.Item{
		word("Why", "1.03", "1.40", "spk_0"),
		punct(","),
		word("hello", "1.50", "2.30", "spk_0"),
		punct("."),
		word("General", "2.40", "3.00", "spk_1"),
		word("Kenobi", "3.10", "4.03", "spk_1"),
		punct("!"),
	}
}

func TestSegmentsFromItems(t *testing.T) {
	got := SegmentsFromItems(testItems(), false)
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(got), got)
	}
	if got[0].Text != "Why, hello." || got[0].Start != 1.03 || got[0].End != 2.30 {
		t.Errorf("unexpected first segment: %+v", got[0])
	}
	if got[1].Text != "General Kenobi!" || got[1].Start != 2.40 || got[1].End != 4.03 {
		t.Errorf("unexpected second segment: %+v", got[1])
	}
}

func TestSegmentsFromItems_SplitOnSpeaker(t *testing.T) {
	items := []types.Item{
		word("yes", "0.5", "0.9", "spk_0"),
		word("no", "1.0", "1.2", "spk_1"),
	}
	if got := SegmentsFromItems(items, false); len(got) != 1 {
		t.Errorf("expected a single segment without speaker split, got %+v", got)
	}
	got := SegmentsFromItems(items, true)
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %+v", got)
	}
	if got[1].Text != "no" || got[1].Start != 1.0 {
		t.Errorf("unexpected second segment: %+v", got[1])
	}
}

func TestFormatTranscriptWithSpeakers(t *testing.T) {
	var result types.TranscriptionResult
	result.Results.Items = testItems()

	want := "Speaker 0: Why, hello.\n\nSpeaker 1: General Kenobi!"
	if got := FormatTranscriptWithSpeakers(&result); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
