package specfile

import (
	"fmt"
	"sort"
	"strings"
)

// edit replaces txt[start:end] with text.
type edit struct {
	start, end int
	text       string
}

func insertAt(offset int, text string) edit {
	return edit{start: offset, end: offset, text: text}
}

// removeLine drops line i together with its newline.
func (l *layout) removeLine(i int) edit {
	return edit{start: l.lines[i].start, end: l.lines[i].next}
}

// insertLineAfter places text as a new line right after line i.
func (l *layout) insertLineAfter(i int, text string) edit {
	if i < 0 {
		return insertAt(0, text+"\n")
	}
	if !l.endsWithNewline(i) {
		return insertAt(l.lines[i].end, "\n"+text)
	}
	return insertAt(l.lines[i].next, text+"\n")
}

// applyEdits splices non-overlapping edits into txt.
func applyEdits(txt string, edits []edit) (string, error) {
	if len(edits) == 0 {
		return txt, nil
	}
	sorted := make([]edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	var b strings.Builder
	b.Grow(len(txt))
	pos := 0
	for _, e := range sorted {
		if e.start < pos || e.end < e.start || e.end > len(txt) {
			return "", fmt.Errorf("overlapping or out-of-range edit [%d:%d]", e.start, e.end)
		}
		b.WriteString(txt[pos:e.start])
		b.WriteString(e.text)
		pos = e.end
	}
	b.WriteString(txt[pos:])
	return b.String(), nil
}
