package formatting

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/embano1/whisper-blockifier/internal/types"
)

func TestAssemble(t *testing.T) {
	got := Assemble([]types.Segment{
		{Start: 1.034, End: 2.30, Text: "why, hello"},
		{Start: 2.30, End: 4.0345, Text: "there!"},
	})

	if got.Text != "why, hello there!" {
		t.Fatalf("unexpected text: %q", got.Text)
	}
	want := []struct{ start, end int }{{0, 10}, {11, 17}}
	if len(got.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(got.Segments))
	}
	for i, w := range want {
		if got.Segments[i].StartIdx != w.start || got.Segments[i].EndIdx != w.end {
			t.Errorf("segment %d: expected [%d,%d), got [%d,%d)", i, w.start, w.end, got.Segments[i].StartIdx, got.Segments[i].EndIdx)
		}
	}
}

func TestAssemble_OffsetInvariant(t *testing.T) {
	segments := []types.Segment{
		{Text: "  leading"},
		{Text: "trailing   "},
		{Text: "   "},
		{Text: "ünïcödé wörds"},
		{Text: "\tlast\n"},
	}
	got := Assemble(segments)

	runes := []rune(got.Text)
	for i, seg := range got.Segments {
		if seg.EndIdx-seg.StartIdx != utf8.RuneCountInString(strings.TrimSpace(seg.Text)) {
			t.Errorf("segment %d: span length mismatch", i)
		}
		if string(runes[seg.StartIdx:seg.EndIdx]) != seg.Text {
			t.Errorf("segment %d: span %q does not match text %q", i, string(runes[seg.StartIdx:seg.EndIdx]), seg.Text)
		}
		if i > 0 && seg.StartIdx < got.Segments[i-1].EndIdx {
			t.Errorf("segment %d overlaps its predecessor", i)
		}
	}
	if got.Text != "leading trailing ünïcödé wörds last" {
		t.Errorf("unexpected text: %q", got.Text)
	}
	if len(got.Segments) != 4 {
		t.Errorf("expected blank segment to be dropped, got %d segments", len(got.Segments))
	}
}

func TestAssemble_Empty(t *testing.T) {
	got := Assemble(nil)
	if got.Text != "" || len(got.Segments) != 0 {
		t.Errorf("expected empty transcript, got %+v", got)
	}
}

func TestBlocks(t *testing.T) {
	blocks := Blocks(Assemble([]types.Segment{
		{Start: 1.034, End: 2.30, Text: "why, hello"},
		{Start: 2.30, End: 4.0345, Text: "there!"},
	}))
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	tags := blocks[0].Tags
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	want := types.Tag{
		Kind:     types.TagKindTimestamp,
		StartIdx: 11,
		EndIdx:   17,
		Name:     "there!",
		Value:    types.TimestampValue{StartTime: 2.30, EndTime: 4.0345},
	}
	if tags[1] != want {
		t.Errorf("expected %+v, got %+v", want, tags[1])
	}
}

func TestBlocks_Plain(t *testing.T) {
	blocks := Blocks(Plain("  why, hello there! "))
	if len(blocks) != 1 || blocks[0].Text != "why, hello there!" {
		t.Fatalf("unexpected blocks: %+v", blocks)
	}
	if len(blocks[0].Tags) != 0 {
		t.Errorf("expected no tags, got %+v", blocks[0].Tags)
	}
}
