// internal/workspace/workspace.go
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jcapiitao/rdopkg/internal/diff"
	rerrors "github.com/jcapiitao/rdopkg/internal/errors"
	"github.com/jcapiitao/rdopkg/internal/journal"
	"github.com/jcapiitao/rdopkg/internal/logging"
	"github.com/jcapiitao/rdopkg/internal/oracle"
	"github.com/jcapiitao/rdopkg/internal/specfile"

	"go.uber.org/zap"
)

const diffContext = 3

// FindSpecFile returns the only .spec file in dir.
func FindSpecFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.spec"))
	if err != nil {
		return "", fmt.Errorf("searching %s: %w", dir, err)
	}
	switch len(matches) {
	case 0:
		return "", rerrors.SpecFileNotFound(dir, nil)
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = filepath.Base(m)
	}
	sort.Strings(names)
	return "", rerrors.MultipleSpecFiles(dir, names)
}

// Options configures Open
type Options struct {
	Oracle  oracle.Oracle
	Logger  *logging.Logger
	Journal *journal.Journal // nil disables snapshots
	Keep    int              // snapshots kept per file, 0 keeps all
	Session string
	Defines map[string]string
}

// Workspace is a package directory holding one .spec file and its patches.
type Workspace struct {
	Dir  string
	Spec *specfile.Spec

	journal *journal.Journal
	keep    int
	session string
	logger  *zap.Logger
}

// Open loads the .spec file at path. A directory is searched for its only
// .spec file.
func Open(path string, opts Options) (*Workspace, error) {
	if path == "" {
		path = "."
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	info, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}
	if err == nil && info.IsDir() {
		if path, err = FindSpecFile(path); err != nil {
			return nil, err
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for %s: %w", path, err)
	}

	logger := opts.Logger.ForSpec(abs)
	specOpts := []specfile.Option{specfile.WithLogger(logger)}
	if opts.Oracle != nil {
		specOpts = append(specOpts, specfile.WithOracle(opts.Oracle))
	}
	for name, value := range opts.Defines {
		specOpts = append(specOpts, specfile.WithDefine(name, value))
	}

	spec, err := specfile.Open(abs, specOpts...)
	if err != nil {
		return nil, err
	}

	return &Workspace{
		Dir:     filepath.Dir(abs),
		Spec:    spec,
		journal: opts.Journal,
		keep:    opts.Keep,
		session: opts.Session,
		logger:  logger,
	}, nil
}

// Diff returns the unified diff between the file on disk and the buffer.
func (w *Workspace) Diff() (string, error) {
	result, err := diff.NewEngine(diffContext).Diff([]byte(w.Spec.Original()), []byte(w.Spec.Text()))
	if err != nil {
		return "", err
	}
	name := filepath.Base(w.Spec.Path())
	return result.Unified("a/"+name, "b/"+name), nil
}

// Save writes the buffer when it changed. The content it replaces is
// recorded in the journal first, tagged with op.
func (w *Workspace) Save(op string) (*journal.Snapshot, error) {
	if !w.Spec.Dirty() {
		return nil, nil
	}

	var snap *journal.Snapshot
	if w.journal != nil {
		previous, err := os.ReadFile(w.Spec.Path())
		switch {
		case err == nil:
			if snap, err = w.journal.Record(w.Spec.Path(), previous, op, w.session); err != nil {
				return nil, fmt.Errorf("recording snapshot: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading %s: %w", w.Spec.Path(), err)
		}
	}

	if err := w.Spec.Save(); err != nil {
		return nil, err
	}
	w.logger.Info("saved spec", zap.String("operation", op))

	if snap != nil && w.keep > 0 {
		if _, err := w.journal.Prune(w.Spec.Path(), w.keep); err != nil {
			return snap, fmt.Errorf("pruning journal: %w", err)
		}
	}
	return snap, nil
}

// History lists the journal snapshots of the spec file, newest first.
func (w *Workspace) History() ([]journal.Snapshot, error) {
	if w.journal == nil {
		return nil, nil
	}
	return w.journal.List(w.Spec.Path())
}

// Restore writes a snapshot back to the spec file. The current content is
// recorded first so the restore can itself be undone.
func (w *Workspace) Restore(id string) (*journal.Snapshot, error) {
	if w.journal == nil {
		return nil, rerrors.SnapshotNotFound(id)
	}

	snap, err := w.journal.Get(id)
	if err != nil {
		return nil, err
	}
	if snap.Path != w.Spec.Path() {
		return nil, fmt.Errorf("snapshot %s belongs to %s", id, snap.Path)
	}
	content, err := w.journal.Content(id)
	if err != nil {
		return nil, err
	}

	current, err := os.ReadFile(w.Spec.Path())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", w.Spec.Path(), err)
	}
	if string(current) == string(content) {
		return snap, w.Spec.Reload()
	}
	if _, err := w.journal.Record(w.Spec.Path(), current, "restore", w.session); err != nil {
		return nil, fmt.Errorf("recording snapshot: %w", err)
	}
	if err := os.WriteFile(w.Spec.Path(), content, 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", w.Spec.Path(), err)
	}
	w.logger.Info("restored spec", zap.String("snapshot", id))
	return snap, w.Spec.Reload()
}

// Undo restores the newest snapshot of the spec file.
func (w *Workspace) Undo() (*journal.Snapshot, error) {
	if w.journal == nil {
		return nil, rerrors.SnapshotNotFound("latest")
	}
	snap, err := w.journal.Latest(w.Spec.Path())
	if err != nil {
		return nil, err
	}
	return w.Restore(snap.ID)
}

// SeriesPatches returns the patch files of the package directory in file
// name order, minus those whose subject matches the patches_ignore comment.
func (w *Workspace) SeriesPatches() ([]PatchFile, error) {
	patches, err := PatchFiles(w.Dir)
	if err != nil {
		return nil, err
	}
	ignore := w.Spec.PatchesIgnoreRegex()
	if ignore == nil {
		return patches, nil
	}
	kept := patches[:0]
	for _, p := range patches {
		if p.Subject != "" && ignore.MatchString(p.Subject) {
			w.logger.Debug("ignoring patch", zap.String("patch", p.Name), zap.String("subject", p.Subject))
			continue
		}
		kept = append(kept, p)
	}
	return kept, nil
}

// SyncPatches makes the spec's patch series match SeriesPatches. It reports
// whether the buffer changed.
func (w *Workspace) SyncPatches() (bool, error) {
	patches, err := w.SeriesPatches()
	if err != nil {
		return false, err
	}
	names := make([]string, len(patches))
	for i, p := range patches {
		names[i] = p.Name
	}

	if strings.Join(names, "\n") == strings.Join(w.Spec.PatchFilenames(), "\n") {
		return false, nil
	}
	before := w.Spec.Text()
	if err := w.Spec.SetNewPatches(names); err != nil {
		return false, err
	}
	return w.Spec.Text() != before, nil
}
