// Package specfile is a lazy parser and editor for RPM .spec files.
//
// A Spec owns the raw text of one document. There is no persistent parse
// tree: every operation scans the current text, derives the structure it
// needs and splices its edits back in, so bytes outside the edited region
// are never touched and external edits between calls are picked up.
//
// A Spec is not safe for concurrent use.
package specfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	rerrors "github.com/jcapiitao/rdopkg/internal/errors"
	"github.com/jcapiitao/rdopkg/internal/oracle"

	"go.uber.org/zap"
)

var macroRe = regexp.MustCompile(`(?:^|[^%])%[\w{]`)

// HasMacros reports whether s contains an unescaped macro reference.
func HasMacros(s string) bool {
	return macroRe.MatchString(s)
}

type Spec struct {
	path     string
	txt      string
	original string
	read     bool

	oracle  oracle.Oracle
	defines map[string]string
	logger  *zap.Logger
}

type Option func(*Spec)

// WithOracle injects the macro/version oracle. Without it every operation
// that needs macro expansion fails with OracleUnavailable.
func WithOracle(o oracle.Oracle) Option {
	return func(s *Spec) { s.oracle = o }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Spec) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPath sets the backing file of a Spec created from literal text.
func WithPath(path string) Option {
	return func(s *Spec) { s.path = path }
}

// WithDefine adds a macro definition to this document's environment only.
func WithDefine(name, value string) Option {
	return func(s *Spec) { s.defines[name] = value }
}

func newSpec(opts []Option) *Spec {
	s := &Spec{
		defines: make(map[string]string),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New creates a Spec from literal text.
func New(txt string, opts ...Option) *Spec {
	s := newSpec(opts)
	s.txt = txt
	return s
}

// Open reads the .spec file at path.
func Open(path string, opts ...Option) (*Spec, error) {
	s := newSpec(append([]Option{WithPath(path)}, opts...))
	if err := s.Reload(); err != nil {
		return nil, err
	}
	if _, ok := s.defines["_sourcedir"]; !ok {
		if abs, err := filepath.Abs(path); err == nil {
			s.defines["_sourcedir"] = filepath.Dir(abs)
		}
	}
	return s, nil
}

// Reload replaces the buffer with the current file contents.
func (s *Spec) Reload() error {
	if s.path == "" {
		return rerrors.InvalidSaveTarget()
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return rerrors.SpecFileNotFound(s.path, err)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}
	s.txt = string(data)
	s.original = s.txt
	s.read = true
	return nil
}

func (s *Spec) Path() string { return s.path }

func (s *Spec) Text() string { return s.txt }

// Original returns the text as last read from or written to disk.
func (s *Spec) Original() string { return s.original }

// Dirty reports whether Save would write anything.
func (s *Spec) Dirty() bool {
	return !s.read || s.txt != s.original
}

// Save writes the buffer to its file when it changed since the last read.
func (s *Spec) Save() error {
	if s.path == "" {
		return rerrors.InvalidSaveTarget()
	}
	if !s.Dirty() {
		return nil
	}
	if err := os.WriteFile(s.path, []byte(s.txt), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	s.original = s.txt
	s.read = true
	s.logger.Debug("saved spec", zap.String("path", s.path), zap.Int("bytes", len(s.txt)))
	return nil
}

// HasOracle reports whether a macro/version oracle was injected.
func (s *Spec) HasOracle() bool {
	return s.oracle != nil
}

// Oracle returns the injected oracle, or nil.
func (s *Spec) Oracle() oracle.Oracle {
	return s.oracle
}

// commit replaces the buffer with the result of applying edits to l.
func (s *Spec) commit(l *layout, op string, edits []edit) error {
	txt, err := applyEdits(l.txt, edits)
	if err != nil {
		return rerrors.ParseError(s.path, op, err.Error())
	}
	s.txt = txt
	return nil
}

func (s *Spec) parseError(op, format string, args ...any) error {
	return rerrors.ParseError(s.path, op, fmt.Sprintf(format, args...))
}

// MacroEnv derives this document's macro environment from its top-level
// %global/%define lines, the Name/Version/Release/Epoch tags and the
// WithDefine values, in increasing order of precedence.
func (s *Spec) MacroEnv() *oracle.Env {
	return s.macroEnv(scan(s.txt))
}

func (s *Spec) macroEnv(l *layout) *oracle.Env {
	env := oracle.NewEnv()
	for _, tag := range []string{"Name", "Version", "Release", "Epoch"} {
		if ln, ok := l.tag(tag); ok {
			env.Define(strings.ToLower(tag), ln.value)
		}
	}
	for _, ln := range l.lines {
		if ln.kind == kindMacroDef && ln.depth == 0 {
			env.Define(ln.key, ln.value)
		}
	}
	for k, v := range s.defines {
		env.Define(k, v)
	}
	return env
}

// Expand expands text through the oracle against this document's macros.
func (s *Spec) Expand(text string) (string, error) {
	return s.expand(scan(s.txt), "expand", text)
}

func (s *Spec) expand(l *layout, op, text string) (string, error) {
	if s.oracle == nil {
		return "", rerrors.OracleUnavailable(op)
	}
	out, err := s.oracle.Expand(s.macroEnv(l), text)
	if err != nil {
		return "", rerrors.OracleFailed(op, err)
	}
	return out, nil
}

// expandIfNeeded only consults the oracle when text has macros.
func (s *Spec) expandIfNeeded(l *layout, op, text string) (string, error) {
	if !HasMacros(text) {
		return text, nil
	}
	return s.expand(l, op, text)
}
