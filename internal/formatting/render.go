package formatting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/embano1/whisper-blockifier/internal/types"
)

// Render writes blocks as text. With timestamps, every tagged segment is
// written on its own "[start-end] text" line; untagged blocks are written as is.
func Render(blocks []types.Block, timestamps bool) string {
	var b strings.Builder
	for _, block := range blocks {
		if !timestamps || len(block.Tags) == 0 {
			b.WriteString(block.Text)
			b.WriteString("\n")
			continue
		}
		for _, tag := range block.Tags {
			if tag.Kind != types.TagKindTimestamp {
				continue
			}
			fmt.Fprintf(&b, "[%s-%s] %s\n", seconds(tag.Value.StartTime), seconds(tag.Value.EndTime), tag.Name)
		}
	}
	return b.String()
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
