package specfile

import (
	"regexp"
	"strings"
)

type lineKind int

const (
	kindOther lineKind = iota
	kindBlank
	kindTag
	kindComment
	kindMagic
	kindMacroDef
	kindPackage
	kindSection
	kindIf
	kindElse
	kindEndif
	kindSetup
	kindApply
)

var (
	tagRe      = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_()-]*):([ \t]*)(.*)$`)
	magicRe    = regexp.MustCompile(`^#\s*([A-Za-z_][\w.-]*)\s?=\s?(\S*)`)
	macroDefRe = regexp.MustCompile(`^%(?:global|define)\s+(\w+)(?:\s+(.*))?$`)
	directRe   = regexp.MustCompile(`^%(\w+)`)
	applyRe    = regexp.MustCompile(`^%patch(?:\d+|\s+-P\s*\d+)\b`)
	patchTagRe = regexp.MustCompile(`^Patch\d+$`)
	sourceRe   = regexp.MustCompile(`^Source\d*$`)
)

// sections maps directives that open a new spec section.
var sections = map[string]bool{
	"description": true, "prep": true, "build": true, "install": true,
	"check": true, "clean": true, "files": true, "changelog": true,
	"pre": true, "post": true, "preun": true, "postun": true,
	"pretrans": true, "posttrans": true, "verifyscript": true,
	"triggerin": true, "triggerun": true, "triggerpostun": true,
	"generate_buildrequires": true, "conf": true,
	"patchlist": true, "sourcelist": true,
}

// line is one classified line of the document.
type line struct {
	num   int
	start int // offset of the first byte
	end   int // offset just past the text, excluding '\n'
	next  int // offset of the following line
	text  string
	kind  lineKind

	// section is "" in the main preamble, otherwise the directive that
	// opened the enclosing section ("package", "prep", "changelog", ...).
	section string
	// depth is the %if nesting level; conditional lines carry the outer level.
	depth int

	key      string // tag, magic comment, macro or directive name
	value    string
	ws       string // whitespace after a tag's colon
	valStart int    // offset where value begins (tags and magic comments)
}

func (l line) isPreamble() bool {
	return l.section == "" || l.section == "package"
}

func (l line) isPatchTag() bool {
	return l.kind == kindTag && patchTagRe.MatchString(l.key)
}

func (l line) isSourceTag() bool {
	return l.kind == kindTag && sourceRe.MatchString(l.key)
}

// isSeparator reports a bare "#" comment line.
func (l line) isSeparator() bool {
	return l.kind == kindComment && strings.TrimSpace(l.text) == "#"
}

// layout is the structural view of one version of the text. Line indices
// and offsets stay valid only for that exact text.
type layout struct {
	txt   string
	lines []line
}

func scan(txt string) *layout {
	l := &layout{txt: txt}
	if txt == "" {
		return l
	}

	section := ""
	depth := 0
	// a trailing '\n' does not start another line
	for num, offset := 0, 0; offset < len(txt); num++ {
		end := strings.IndexByte(txt[offset:], '\n')
		next := len(txt)
		if end < 0 {
			end = len(txt)
		} else {
			end += offset
			next = end + 1
		}
		// CRLF: the '\r' stays in the text but outside the line
		if end > offset && txt[end-1] == '\r' {
			end--
		}

		ln := line{
			num:   num,
			start: offset,
			end:   end,
			next:  next,
			text:  txt[offset:end],
		}
		classify(&ln, &section, &depth)
		l.lines = append(l.lines, ln)
		offset = next
	}
	return l
}

func classify(ln *line, section *string, depth *int) {
	text := ln.text
	ln.section = *section
	ln.depth = *depth

	switch {
	case strings.TrimSpace(text) == "":
		ln.kind = kindBlank

	case strings.HasPrefix(text, "#"):
		ln.kind = kindComment
		if m := magicRe.FindStringSubmatchIndex(text); m != nil {
			ln.kind = kindMagic
			ln.key = text[m[2]:m[3]]
			ln.value = text[m[4]:m[5]]
			ln.valStart = ln.start + m[4]
		}

	case strings.HasPrefix(text, "%if"):
		ln.kind = kindIf
		*depth++

	case strings.HasPrefix(text, "%else"), strings.HasPrefix(text, "%elif"):
		ln.kind = kindElse
		ln.depth = max(*depth-1, 0)

	case strings.HasPrefix(text, "%endif"):
		ln.kind = kindEndif
		*depth = max(*depth-1, 0)
		ln.depth = *depth

	case macroDefRe.MatchString(text):
		m := macroDefRe.FindStringSubmatch(text)
		ln.kind = kindMacroDef
		ln.key = m[1]
		ln.value = strings.TrimSpace(m[2])

	case applyRe.MatchString(text):
		ln.kind = kindApply

	case strings.HasPrefix(text, "%"):
		ln.kind = kindOther
		m := directRe.FindStringSubmatch(text)
		if m == nil {
			break
		}
		ln.key = m[1]
		switch {
		case m[1] == "package":
			ln.kind = kindPackage
			*section = "package"
			ln.section = "package"
		case sections[m[1]]:
			ln.kind = kindSection
			*section = m[1]
			ln.section = m[1]
		case m[1] == "setup" || m[1] == "autosetup":
			ln.kind = kindSetup
		}

	default:
		if !ln.isPreamble() {
			ln.kind = kindOther
			break
		}
		if m := tagRe.FindStringSubmatchIndex(text); m != nil {
			ln.kind = kindTag
			ln.key = text[m[2]:m[3]]
			ln.ws = text[m[4]:m[5]]
			ln.value = strings.TrimRight(text[m[6]:m[7]], " \t")
			ln.valStart = ln.start + m[6]
		}
	}
}

// find returns the index of the first line matching fn at or after from.
func (l *layout) find(from int, fn func(line) bool) int {
	for i := max(from, 0); i < len(l.lines); i++ {
		if fn(l.lines[i]) {
			return i
		}
	}
	return -1
}

// findLast returns the index of the last line in [from, to) matching fn.
func (l *layout) findLast(from, to int, fn func(line) bool) int {
	to = min(to, len(l.lines))
	for i := to - 1; i >= max(from, 0); i-- {
		if fn(l.lines[i]) {
			return i
		}
	}
	return -1
}

// tag returns the first preamble tag line called name.
func (l *layout) tag(name string) (line, bool) {
	i := l.find(0, func(ln line) bool { return ln.kind == kindTag && ln.key == name })
	if i < 0 {
		return line{}, false
	}
	return l.lines[i], true
}

// preambleEnd is the index of the first line past the main preamble.
func (l *layout) preambleEnd() int {
	i := l.find(0, func(ln line) bool { return ln.section != "" })
	if i < 0 {
		return len(l.lines)
	}
	return i
}

// offsetAfter is the offset just past line i including its newline.
func (l *layout) offsetAfter(i int) int {
	if i < 0 {
		return 0
	}
	return l.lines[i].next
}

// endsWithNewline reports whether line i is terminated by '\n'.
func (l *layout) endsWithNewline(i int) bool {
	return l.txt[l.lines[i].next-1] == '\n'
}
