package specfile

import (
	"regexp"
	"strings"

	rerrors "github.com/jcapiitao/rdopkg/internal/errors"
)

var (
	packageRe     = regexp.MustCompile(`^%package\s+(-n\s+)?(.*)$`)
	requiresEqRe  = regexp.MustCompile(`^Requires:\s+(.*)\s+=\s+(.*)`)
	pythonDepRe   = regexp.MustCompile(`^python-(.*)$`)
	dependencyFor = []string{"Requires", "BuildRequires", "BuildArch"}
)

// Region is a half-open line range [Start, End) of the document.
type Region struct {
	Start int
	End   int
}

// Subpackage is one %package declaration. Its region runs from the
// %package line up to, not including, the next %description line.
type Subpackage struct {
	Name   string
	Region Region
}

// Subpackages lists the declared subpackages in document order.
type Subpackages struct {
	list []Subpackage
}

func (sp *Subpackages) All() []Subpackage {
	return sp.list
}

func (sp *Subpackages) Len() int {
	return len(sp.list)
}

func (sp *Subpackages) Names() []string {
	names := make([]string, len(sp.list))
	for i, p := range sp.list {
		names[i] = p.Name
	}
	return names
}

// Get returns the region of the first subpackage called name.
func (sp *Subpackages) Get(name string) (Region, bool) {
	for _, p := range sp.list {
		if p.Name == name {
			return p.Region, true
		}
	}
	return Region{}, false
}

// Main is the region before the first %package, i.e. the main package.
func (sp *Subpackages) Main() Region {
	return Region{Start: 0, End: sp.list[0].Region.Start}
}

// Subpackages enumerates the %package declarations. It returns nil, not an
// empty value, when the document declares none. Names given without -n are
// prefixed with the expanded main package Name.
func (s *Spec) Subpackages() (*Subpackages, error) {
	return s.subpackages(scan(s.txt))
}

func (s *Spec) subpackages(l *layout) (*Subpackages, error) {
	var (
		sp       *Subpackages
		mainName string
	)
	for i, ln := range l.lines {
		if ln.kind != kindPackage {
			continue
		}
		m := packageRe.FindStringSubmatch(ln.text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[2])
		if m[1] == "" {
			if mainName == "" {
				n, err := s.getTagExpanded(l, "Name")
				if err != nil {
					return nil, err
				}
				mainName = n
			}
			name = mainName + "-" + name
		}

		end := l.find(i+1, func(ln line) bool { return strings.HasPrefix(ln.text, "%description") })
		if end < 0 {
			end = len(l.lines)
		}
		if sp == nil {
			sp = &Subpackages{}
		}
		sp.list = append(sp.list, Subpackage{Name: name, Region: Region{Start: i, End: end}})
	}
	return sp, nil
}

// GuessMainPythonSubpackage picks the python subpackage with the fewest
// dashes (or the first subpackage), then follows "Requires: X = ..." lines
// to the declared subpackage it re-exports. An empty name means the
// document has no subpackages.
func (s *Spec) GuessMainPythonSubpackage() (string, error) {
	l := scan(s.txt)
	sp, err := s.subpackages(l)
	if err != nil || sp == nil {
		return "", err
	}

	current := ""
	dashes := -1
	for _, p := range sp.list {
		if !strings.HasPrefix(p.Name, "python") {
			continue
		}
		if n := strings.Count(p.Name, "-"); dashes < 0 || n < dashes {
			current, dashes = p.Name, n
		}
	}
	if current == "" {
		current = sp.list[0].Name
	}

	var (
		name    string
		chain   []string
		visited = make(map[string]bool)
	)
	for {
		if visited[current] {
			return "", rerrors.CyclicSubpackage(s.path, append(chain, current))
		}
		visited[current] = true
		chain = append(chain, current)

		r, _ := sp.Get(current)
		next := ""
		for _, ln := range l.lines[r.Start:r.End] {
			text := ln.text
			if strings.Contains(text, "%{name}") {
				if name == "" {
					if name, err = s.getTagExpanded(l, "Name"); err != nil {
						return "", err
					}
				}
				text = strings.ReplaceAll(text, "%{name}", name)
			}
			m := requiresEqRe.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			candidate := m[1]
			if _, ok := sp.Get(candidate); ok &&
				!strings.HasPrefix(candidate, "python-") &&
				!strings.HasPrefix(candidate, current) {
				next = candidate
				break
			}
		}
		if next == "" {
			return current, nil
		}
		current = next
	}
}

// FindLastDependency returns the line index of the last "Kind:" line in r
// (the whole document when r is nil), ignoring lines nested in a %if block
// opened inside the range. -1 means none.
func (s *Spec) FindLastDependency(kind string, r *Region) int {
	return scan(s.txt).findLastDependency(kind, r)
}

func (l *layout) findLastDependency(kind string, r *Region) int {
	from, to := 0, len(l.lines)
	if r != nil {
		from, to = r.Start, min(r.End, len(l.lines))
	}
	if from >= to {
		return -1
	}
	base := l.lines[from].depth
	prefix := kind + ":"
	return l.findLast(from, to, func(ln line) bool {
		return ln.depth <= base && strings.HasPrefix(ln.text, prefix)
	})
}

// InsertDependencyAfter adds "Kind:<ws>entry" right after line pos, reusing
// the whitespace that follows the colon on line pos.
func (s *Spec) InsertDependencyAfter(entry string, pos int, kind string) error {
	l := scan(s.txt)
	if pos < 0 || pos >= len(l.lines) {
		return s.parseError("insert-dependency", "line %d out of range", pos)
	}
	return s.commit(l, "insert-dependency", []edit{l.dependencyInsert(entry, pos, kind)})
}

func (l *layout) dependencyInsert(entry string, pos int, kind string) edit {
	ws := " "
	text := l.lines[pos].text
	if c := strings.IndexByte(text, ':'); c >= 0 {
		rest := text[c+1:]
		ws = rest[:len(rest)-len(strings.TrimLeft(rest, " \t"))]
	}
	return l.insertLineAfter(pos, kind+":"+ws+entry)
}

// AddRequires adds "Requires: entry" after the last Requires, BuildRequires
// or BuildArch line of the subpackage region, or of the main package when
// subpkg is empty or not declared.
func (s *Spec) AddRequires(entry, subpkg string) error {
	l := scan(s.txt)
	sp, err := s.subpackages(l)
	if err != nil {
		return err
	}

	var r *Region
	if sp != nil {
		region, ok := sp.Get(subpkg)
		if !ok || subpkg == "" {
			region = sp.Main()
		}
		r = &region
	}

	for _, kind := range dependencyFor {
		if pos := l.findLastDependency(kind, r); pos >= 0 {
			return s.commit(l, "add-requires", []edit{l.dependencyInsert(entry, pos, "Requires")})
		}
	}
	return rerrors.CouldNotAddRequires(s.path, entry)
}

// AddPythonRequires is AddRequires with a python-foo entry renamed to
// python<major>-foo for pyVersion.
func (s *Spec) AddPythonRequires(entry, subpkg, pyVersion string) error {
	return s.AddRequires(PythonDependency(entry, pyVersion), subpkg)
}

// PythonDependency maps python-foo to python3-foo for pyVersion "3.x".
func PythonDependency(dep, pyVersion string) string {
	major, _, _ := strings.Cut(pyVersion, ".")
	if major == "" {
		major = "3"
	}
	return pythonDepRe.ReplaceAllString(dep, "python"+major+"-$1")
}

func pythonRequiresRe(name, tail string) *regexp.Regexp {
	if _, short, ok := strings.Cut(name, "-"); ok {
		name = short
	}
	return regexp.MustCompile(`^(Requires:\s+python.*-` + regexp.QuoteMeta(name) + `)` + tail)
}

// EditPythonRequiresVersion rewrites the version constraint of every
// "Requires: python*-<name>" line; an empty version drops it.
func (s *Spec) EditPythonRequiresVersion(name, version string) bool {
	re := pythonRequiresRe(name, `\s*([<>=!]*\s[,.\d\w]*)?$`)
	l := scan(s.txt)
	var edits []edit
	for _, ln := range l.lines {
		m := re.FindStringSubmatch(ln.text)
		if m == nil {
			continue
		}
		repl := m[1]
		if version != "" {
			repl += " " + version
		}
		edits = append(edits, edit{start: ln.start, end: ln.end, text: repl})
	}
	return len(edits) > 0 && s.commit(l, "edit-python-requires", edits) == nil
}

// RemovePythonRequires drops every "Requires: python*-<name>" line.
func (s *Spec) RemovePythonRequires(name string) bool {
	re := pythonRequiresRe(name, `(\s+[<>=!]*\s[,.\d\w]*)?$`)
	l := scan(s.txt)
	var edits []edit
	for i, ln := range l.lines {
		if re.MatchString(ln.text) {
			edits = append(edits, l.removeLine(i))
		}
	}
	return len(edits) > 0 && s.commit(l, "remove-python-requires", edits) == nil
}
