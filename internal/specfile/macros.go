package specfile

import (
	"fmt"
	"regexp"
	"strings"
)

var commitRe = regexp.MustCompile(`^%global commit \w+`)

func (l *layout) macroDef(name string) int {
	return l.find(0, func(ln line) bool {
		return ln.kind == kindMacroDef && ln.key == name && strings.HasPrefix(ln.text, "%global")
	})
}

// GetMacro returns the literal body of a %global definition.
func (s *Spec) GetMacro(name string) (string, bool) {
	l := scan(s.txt)
	i := l.macroDef(name)
	if i < 0 {
		return "", false
	}
	return strings.Trim(l.lines[i].value, " \t\""), true
}

// GetMacroExpanded asks the oracle for %{?name}.
func (s *Spec) GetMacroExpanded(name string) (string, error) {
	return s.expand(scan(s.txt), "get-macro", "%{?"+name+"}")
}

// SetMacro rewrites the %global definition of name in place, prepends one
// when missing, and removes it when value is empty.
func (s *Spec) SetMacro(name, value string) error {
	l := scan(s.txt)
	i := l.macroDef(name)

	var e edit
	switch {
	case value == "" && i < 0:
		return nil
	case value == "":
		e = l.removeLine(i)
	case i < 0:
		e = insertAt(0, fmt.Sprintf("%%global %s %s\n", name, value))
	default:
		ln := l.lines[i]
		prefix := macroPrefix(ln.text, name)
		e = edit{start: ln.start + len(prefix), end: ln.end, text: value}
	}
	return s.commit(l, "set-macro", []edit{e})
}

// macroPrefix returns "%global<ws>name<ws>" of a definition line.
func macroPrefix(text, name string) string {
	re := regexp.MustCompile(`^%global\s+` + regexp.QuoteMeta(name) + `\s*`)
	return re.FindString(text)
}

// GetMilestone returns the milestone macro, treating the self-referencing
// %{?milestone} left behind by old tooling as unset.
func (s *Spec) GetMilestone() string {
	ms, _ := s.GetMacro("milestone")
	if ms == "%{?milestone}" {
		return ""
	}
	return ms
}

func (s *Spec) SetMilestone(milestone string) error {
	return s.SetMacro("milestone", milestone)
}

// SetCommitRef rewrites every "%global commit <sha>" line.
func (s *Spec) SetCommitRef(ref string) error {
	l := scan(s.txt)
	var edits []edit
	for _, ln := range l.lines {
		if loc := commitRe.FindStringIndex(ln.text); loc != nil {
			edits = append(edits, edit{start: ln.start, end: ln.start + loc[1], text: "%global commit " + ref})
		}
	}
	return s.commit(l, "set-commit-ref", edits)
}
