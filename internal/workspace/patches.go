package workspace

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// headerLines bounds how much of a patch is read for its metadata
const headerLines = 64

// PatchFile is a git format-patch file found next to the spec
type PatchFile struct {
	Name    string
	Commit  string
	Subject string
}

// PatchFiles lists the *.patch files in dir sorted by name.
func PatchFiles(dir string) ([]PatchFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.patch"))
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", dir, err)
	}
	sort.Strings(matches)

	patches := make([]PatchFile, 0, len(matches))
	for _, m := range matches {
		p, err := readPatchHeader(m)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p)
	}
	return patches, nil
}

func readPatchHeader(path string) (PatchFile, error) {
	p := PatchFile{Name: filepath.Base(path)}

	f, err := os.Open(path)
	if err != nil {
		return p, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for n := 0; n < headerLines && sc.Scan(); n++ {
		line := sc.Text()
		switch {
		case n == 0 && strings.HasPrefix(line, "From "):
			if fields := strings.Fields(line); len(fields) > 1 {
				p.Commit = fields[1]
			}
		case strings.HasPrefix(line, "Subject: "):
			p.Subject = trimPatchPrefix(strings.TrimPrefix(line, "Subject: "))
		case line == "" && p.Subject != "":
			return p, nil
		}
	}
	if err := sc.Err(); err != nil {
		return p, fmt.Errorf("reading %s: %w", path, err)
	}
	return p, nil
}

// trimPatchPrefix drops a leading "[PATCH ...]" marker
func trimPatchPrefix(subject string) string {
	if strings.HasPrefix(subject, "[") {
		if i := strings.Index(subject, "]"); i > 0 {
			return strings.TrimSpace(subject[i+1:])
		}
	}
	return subject
}
