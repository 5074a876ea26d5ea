package specfile

import (
	"fmt"
	"strings"
)

// ApplyMethod is the way a spec applies its patch series in %prep.
type ApplyMethod string

const (
	ApplyGitAm     ApplyMethod = "git-am"
	ApplyAutosetup ApplyMethod = "autosetup"
	ApplyRPM       ApplyMethod = "rpm"
)

func (l *layout) applyMethod() ApplyMethod {
	method := ApplyRPM
	for _, ln := range l.lines {
		if strings.HasPrefix(ln.text, "git am %{patches}") {
			return ApplyGitAm
		}
		if ln.kind == kindSetup && ln.key == "autosetup" {
			method = ApplyAutosetup
		}
	}
	return method
}

// PatchApplyMethod detects git-am, %autosetup or per-patch %patch lines.
func (s *Spec) PatchApplyMethod() ApplyMethod {
	return scan(s.txt).applyMethod()
}

// PatchFilenames lists the PatchN: values in document order.
func (s *Spec) PatchFilenames() []string {
	var fns []string
	for _, ln := range scan(s.txt).lines {
		if ln.isPatchTag() && ln.value != "" && !strings.ContainsAny(ln.value, " \t") {
			fns = append(fns, ln.value)
		}
	}
	return fns
}

// NPatches counts the PatchN: lines.
func (s *Spec) NPatches() int {
	n := 0
	for _, ln := range scan(s.txt).lines {
		if ln.isPatchTag() {
			n++
		}
	}
	return n
}

// wipeEdits removes PatchN: and %patchN lines along with the blank lines
// right before each of them.
func (l *layout) wipeEdits() []edit {
	var edits []edit
	removed := make([]bool, len(l.lines))
	for i, ln := range l.lines {
		if !ln.isPatchTag() && ln.kind != kindApply {
			continue
		}
		for j := i - 1; j >= 0 && l.lines[j].kind == kindBlank && !removed[j]; j-- {
			removed[j] = true
		}
		removed[i] = true
	}
	for i, r := range removed {
		if r {
			edits = append(edits, l.removeLine(i))
		}
	}
	return edits
}

// WipePatches drops the whole patch series and its apply lines.
func (s *Spec) WipePatches() error {
	l := scan(s.txt)
	return s.commit(l, "wipe-patches", l.wipeEdits())
}

// SetNewPatches replaces the patch series with fns, numbered from 0001 in
// the given order. %patch lines are written after %setup only for specs
// that apply patches one by one.
func (s *Spec) SetNewPatches(fns []string) error {
	l := scan(s.txt)
	wiped, err := applyEdits(l.txt, l.wipeEdits())
	if err != nil {
		return s.parseError("set-new-patches", "%v", err)
	}
	if len(fns) == 0 {
		s.txt = wiped
		return nil
	}

	w := scan(wiped)
	method := w.applyMethod()

	var ps, pa strings.Builder
	for i, fn := range fns {
		fmt.Fprintf(&ps, "Patch%04d: %s\n", i+1, fn)
		if method == ApplyRPM {
			fmt.Fprintf(&pa, "%%patch%04d -p1\n", i+1)
		}
	}

	var edits []edit
	e, ok := w.patchTagsInsert(ps.String())
	if !ok {
		return s.parseError("set-new-patches", "failed to append PatchXXXX: lines: no magic comment block and no Source tag in the preamble")
	}
	edits = append(edits, e)

	if method == ApplyRPM {
		e, ok := w.applyLinesInsert(pa.String())
		if !ok {
			return s.parseError("set-new-patches", "failed to append %%patchXXXX lines: no %%setup line in %%prep")
		}
		edits = append(edits, e)
	}

	return s.commit(w, "set-new-patches", edits)
}

// patchTagsInsert places the PatchN: block after the last magic comment
// block of the preamble, or else after the Source tags.
func (l *layout) patchTagsInsert(ps string) (edit, bool) {
	pe := l.preambleEnd()

	last := l.findLast(0, pe, func(ln line) bool { return ln.kind == kindMagic })
	if last >= 0 {
		_, to := l.commentBlock(last)
		end := to - 1
		if !l.endsWithNewline(end) {
			return insertAt(l.lines[end].end, "\n"+ps), true
		}
		stop := to
		for stop < pe && l.lines[stop].kind == kindBlank {
			stop++
		}
		return edit{start: l.offsetAfter(end), end: l.offsetAfter(stop - 1), text: ps + "\n"}, true
	}

	k := l.findLast(0, pe, line.isSourceTag)
	if k < 0 {
		return edit{}, false
	}
	if !l.endsWithNewline(k) {
		return insertAt(l.lines[k].end, "\n\n"+ps), true
	}
	lead := "\n"
	if k+1 < len(l.lines) && l.lines[k+1].kind == kindBlank {
		k++
		lead = ""
	}
	pos := l.offsetAfter(k)
	trail := ""
	if pos < len(l.txt) && l.txt[pos] != '\n' {
		trail = "\n"
	}
	return insertAt(pos, lead+ps+trail), true
}

// applyLinesInsert places the %patchN lines after the first %setup,
// framed by blank lines and replacing the whitespace that followed it.
func (l *layout) applyLinesInsert(pa string) (edit, bool) {
	i := l.find(0, func(ln line) bool { return ln.kind == kindSetup && ln.key == "setup" })
	if i < 0 {
		return edit{}, false
	}
	if !l.endsWithNewline(i) {
		return insertAt(l.lines[i].end, "\n\n"+pa+"\n"), true
	}
	start := l.offsetAfter(i)
	end := start
	for end < len(l.txt) && strings.IndexByte(" \t\r\n\f\v", l.txt[end]) >= 0 {
		end++
	}
	return edit{start: start, end: end, text: "\n" + pa + "\n"}, true
}
