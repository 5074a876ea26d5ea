package specfile

import (
	"path"
	"strings"
)

// LookupTag returns the value of the first Name: line in the preamble.
func (s *Spec) LookupTag(name string) (string, bool) {
	ln, ok := scan(s.txt).tag(name)
	if !ok || ln.value == "" {
		return "", false
	}
	return ln.value, true
}

// GetTag is LookupTag that fails with a ParseError when the tag is missing.
func (s *Spec) GetTag(name string) (string, error) {
	if v, ok := s.LookupTag(name); ok {
		return v, nil
	}
	return "", s.parseError("get-tag", "%s tag not found", name)
}

// GetTagDefault is LookupTag falling back to def.
func (s *Spec) GetTagDefault(name, def string) string {
	if v, ok := s.LookupTag(name); ok {
		return v
	}
	return def
}

// GetTagExpanded returns the tag value with its macros expanded. The oracle
// is only consulted when the value contains a macro.
func (s *Spec) GetTagExpanded(name string) (string, error) {
	return s.getTagExpanded(scan(s.txt), name)
}

func (s *Spec) getTagExpanded(l *layout, name string) (string, error) {
	ln, ok := l.tag(name)
	if !ok || ln.value == "" {
		return "", s.parseError("get-tag", "%s tag not found", name)
	}
	return s.expandIfNeeded(l, "get-tag", ln.value)
}

// SetTag replaces the value of the first Name: line, keeping the
// alignment after the colon. It never creates a missing tag.
func (s *Spec) SetTag(name, value string) bool {
	l := scan(s.txt)
	ln, ok := l.tag(name)
	if !ok {
		return false
	}
	e := edit{start: ln.valStart, end: ln.valStart + len(ln.value), text: value}
	return s.commit(l, "set-tag", []edit{e}) == nil
}

// TagAlignWS returns the whitespace between a tag's colon and its value.
func (s *Spec) TagAlignWS(name string) string {
	name = strings.TrimSuffix(name, ":")
	ln, ok := scan(s.txt).tag(name)
	if !ok {
		return ""
	}
	return ln.ws
}

// Name returns the expanded Name tag.
func (s *Spec) Name() (string, error) {
	return s.GetTagExpanded("Name")
}

// SourceURLs returns the expanded Source0 (or unnumbered Source) URL.
func (s *Spec) SourceURLs() ([]string, error) {
	l := scan(s.txt)
	ln, ok := l.tag("Source0")
	if !ok {
		ln, ok = l.tag("Source")
	}
	if !ok {
		if l.find(0, line.isSourceTag) < 0 {
			return nil, s.parseError("source-urls", "no sources found")
		}
		return nil, s.parseError("source-urls", "Source0 not found")
	}
	url, err := s.expandIfNeeded(l, "source-urls", ln.value)
	if err != nil {
		return nil, err
	}
	return []string{url}, nil
}

// SourceFilenames returns the base names of SourceURLs.
func (s *Spec) SourceFilenames() ([]string, error) {
	urls, err := s.SourceURLs()
	if err != nil {
		return nil, err
	}
	fns := make([]string, len(urls))
	for i, u := range urls {
		fns[i] = path.Base(u)
	}
	return fns, nil
}
