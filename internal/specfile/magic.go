package specfile

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Magic comments with a meaning of their own.
const (
	PatchesBaseComment   = "patches_base"
	PatchesIgnoreComment = "patches_ignore"
)

// magicLines returns the main-preamble magic comments called name.
func (l *layout) magicLines(name string) []int {
	var idx []int
	for i, ln := range l.lines {
		if ln.kind == kindMagic && ln.section == "" && ln.key == name {
			idx = append(idx, i)
		}
	}
	return idx
}

func isCommentLine(ln line) bool {
	return ln.kind == kindComment || ln.kind == kindMagic
}

// commentBlock returns the contiguous run of comment lines around i as [from, to).
func (l *layout) commentBlock(i int) (int, int) {
	from, to := i, i+1
	for from > 0 && isCommentLine(l.lines[from-1]) {
		from--
	}
	for to < len(l.lines) && isCommentLine(l.lines[to]) {
		to++
	}
	return from, to
}

// GetMagicComment returns the value of the first "# name=value" comment.
func (s *Spec) GetMagicComment(name string, expand bool) (string, bool, error) {
	l := scan(s.txt)
	for _, i := range l.magicLines(name) {
		v := l.lines[i].value
		if v == "" {
			continue
		}
		if expand {
			ev, err := s.expandIfNeeded(l, "get-magic-comment", v)
			if err != nil {
				return "", false, err
			}
			v = ev
		}
		return v, true, nil
	}
	return "", false, nil
}

// SetMagicComment creates, replaces or (with an empty value) removes the
// "# name=value" comment.
func (s *Spec) SetMagicComment(name, value string) error {
	l := scan(s.txt)
	idx := l.magicLines(name)

	switch {
	case value == "":
		return s.removeMagicComment(l, name, idx)
	case len(idx) == 0:
		return s.createMagicComment(l, name, value)
	default:
		return s.replaceMagicComment(l, name, value, idx)
	}
}

func (s *Spec) removeMagicComment(l *layout, name string, idx []int) error {
	if len(idx) == 0 {
		return nil
	}

	remove := make(map[int]bool)
	for _, i := range idx {
		remove[i] = true
	}
	for _, i := range idx {
		from, to := l.commentBlock(i)
		orphaned := true
		for j := from; j < to; j++ {
			if !remove[j] && !l.lines[j].isSeparator() {
				orphaned = false
				break
			}
		}
		if orphaned {
			for j := from; j < to; j++ {
				remove[j] = true
			}
			// keep a single blank line where the block was
			if from > 0 && to < len(l.lines) &&
				l.lines[from-1].kind == kindBlank && l.lines[to].kind == kindBlank {
				remove[to] = true
			}
			continue
		}
		// "#" / "# name=value" / "#" framing: drop the closing separator too
		if i > from && i+1 < to && l.lines[i-1].isSeparator() && l.lines[i+1].isSeparator() {
			remove[i+1] = true
		}
	}

	lines := make([]int, 0, len(remove))
	for i := range remove {
		lines = append(lines, i)
	}
	sort.Ints(lines)
	edits := make([]edit, len(lines))
	for k, i := range lines {
		edits[k] = l.removeLine(i)
	}

	if err := s.commit(l, "remove-magic-comment", edits); err != nil {
		return err
	}
	s.logger.Debug("removed magic comment",
		zap.String("operation", "set-magic-comment"),
		zap.String("name", name),
		zap.Int("lines", len(lines)),
	)
	return nil
}

func (s *Spec) createMagicComment(l *layout, name, value string) error {
	entry := fmt.Sprintf("# %s=%s", name, value)
	pe := l.preambleEnd()
	lastSource := l.findLast(0, pe, line.isSourceTag)
	firstPatch := l.find(0, func(ln line) bool { return ln.section == "" && ln.isPatchTag() })

	// (a) top of an existing magic block between the sources and the patches
	hi := pe
	if firstPatch >= 0 {
		hi = firstPatch
	}
	for i := lastSource + 1; i < hi; i++ {
		if !l.lines[i].isSeparator() || (i > 0 && isCommentLine(l.lines[i-1])) {
			continue
		}
		j := i
		for j < hi && l.lines[j].isSeparator() {
			j++
		}
		if j < hi && l.lines[j].kind == kindMagic {
			return s.commit(l, "create-magic-comment", []edit{insertAt(l.lines[j].start, entry+"\n")})
		}
	}

	// (b) a new block right before the first patch
	if firstPatch >= 0 {
		block := "#\n" + entry + "\n#\n"
		return s.commit(l, "create-magic-comment", []edit{insertAt(l.lines[firstPatch].start, block)})
	}

	// (c) after the Source block
	first := l.find(0, func(ln line) bool { return ln.section == "" && ln.isSourceTag() })
	if first < 0 {
		return s.parseError("set-magic-comment", "unable to create new #%s magic comment", name)
	}
	k := first
	for k+1 < len(l.lines) && l.lines[k+1].isSourceTag() {
		k++
	}
	block := "#\n" + entry + "\n#\n\n"
	if !l.endsWithNewline(k) {
		return s.commit(l, "create-magic-comment", []edit{insertAt(l.lines[k].end, "\n"+block)})
	}
	if k+1 < len(l.lines) && l.lines[k+1].kind == kindBlank {
		k++
	}
	return s.commit(l, "create-magic-comment", []edit{insertAt(l.offsetAfter(k), block)})
}

func (s *Spec) replaceMagicComment(l *layout, name, value string, idx []int) error {
	first := idx[0]
	kept := []int{first}
	edits := []edit{{start: l.lines[first].valStart, end: l.lines[first].end, text: value}}

	for _, i := range idx[1:] {
		if l.lines[i].depth > 0 {
			// conditional duplicates are not ours to drop
			kept = append(kept, i)
			continue
		}
		edits = append(edits, l.removeLine(i))
	}
	if len(kept) > 1 {
		return s.parseError("set-magic-comment", "multiple magic comments #%s", name)
	}
	return s.commit(l, "set-magic-comment", edits)
}

// PatchesBase parses "# patches_base=REF[+N]" into the base ref and the
// number of commits to skip. A missing or malformed count is 0.
func (s *Spec) PatchesBase(expand bool) (string, int, error) {
	v, ok, err := s.GetMagicComment(PatchesBaseComment, expand)
	if err != nil || !ok {
		return "", 0, err
	}
	ref, count, _ := strings.Cut(v, "+")
	n, err := strconv.Atoi(count)
	if err != nil {
		n = 0
	}
	return ref, n, nil
}

// NExcludedPatches is the +N part of patches_base.
func (s *Spec) NExcludedPatches() int {
	_, n, _ := s.PatchesBase(false)
	return n
}

// PatchesIgnoreRegex compiles "# patches_ignore=REGEX"; nil when the comment
// is missing or the pattern does not compile.
func (s *Spec) PatchesIgnoreRegex() *regexp.Regexp {
	v, ok, _ := s.GetMagicComment(PatchesIgnoreComment, false)
	if !ok {
		return nil
	}
	re, err := regexp.Compile(v)
	if err != nil {
		s.logger.Debug("ignoring invalid patches_ignore", zap.String("pattern", v), zap.Error(err))
		return nil
	}
	return re
}

// SetPatchesBase sets patches_base. Clearing it while patches_ignore is set
// falls back to the expanded Version, since patches_ignore needs a base.
func (s *Spec) SetPatchesBase(base string) error {
	if base == "" {
		if _, ok, _ := s.GetMagicComment(PatchesIgnoreComment, false); ok {
			v, err := s.GetTagExpanded("Version")
			if err != nil {
				return err
			}
			base = v
		}
	}
	return s.SetMagicComment(PatchesBaseComment, base)
}

// SetPatchesBaseVersion points patches_base at version, keeping the +N
// suffix. A macro-based patches_base is left alone when ignoreMacros is set.
func (s *Spec) SetPatchesBaseVersion(version string, ignoreMacros bool) (bool, error) {
	old, n, err := s.PatchesBase(false)
	if err != nil {
		return false, err
	}
	if ignoreMacros && old != "" && HasMacros(old) {
		return false, nil
	}
	if n > 0 {
		version += "+" + strconv.Itoa(n)
	}
	if err := s.SetPatchesBase(version); err != nil {
		return false, err
	}
	return true, nil
}
