package specfile

import (
	"regexp"
	"strings"
	"time"

	rerrors "github.com/jcapiitao/rdopkg/internal/errors"
)

// ChangelogDateFormat is the date layout of a %changelog entry header.
const ChangelogDateFormat = "Mon Jan 02 2006"

var entrySepRe = regexp.MustCompile(`\n\n+`)

// changelogLine returns the index of the %changelog line, or -1.
func (s *Spec) changelogLine(l *layout) (int, error) {
	found := -1
	for i, ln := range l.lines {
		if !strings.EqualFold(ln.text, "%changelog") {
			continue
		}
		if found >= 0 {
			return -1, rerrors.MultipleChangelog(s.path)
		}
		found = i
	}
	return found, nil
}

// NewChangelogEntry puts a new entry on top of %changelog:
//
//	* Mon Jan 02 2006 user <email> [epoch:]version-release
//	- change
func (s *Spec) NewChangelogEntry(user, email string, changes []string, date time.Time) error {
	l := scan(s.txt)
	i, err := s.changelogLine(l)
	if err != nil {
		return err
	}
	if i < 0 {
		return s.parseError("new-changelog-entry", "%%changelog not found")
	}
	vr, err := s.GetVR(EpochDefault)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("* " + date.Format(ChangelogDateFormat) + " " + user + " <" + email + "> " + vr + "\n")
	for _, c := range changes {
		b.WriteString("- " + c + "\n")
	}
	b.WriteString("\n")
	entry := b.String()

	if !l.endsWithNewline(i) {
		return s.commit(l, "new-changelog-entry", []edit{insertAt(l.lines[i].end, "\n"+strings.TrimSuffix(entry, "\n"))})
	}
	return s.commit(l, "new-changelog-entry", []edit{insertAt(l.offsetAfter(i), entry)})
}

// LastChangelogEntry returns the header and body lines of the newest
// %changelog entry. strip removes the leading "* " and "- " markers.
func (s *Spec) LastChangelogEntry(strip bool) (string, []string, error) {
	l := scan(s.txt)
	i, err := s.changelogLine(l)
	if err != nil {
		return "", nil, err
	}

	changelog := ""
	if i >= 0 {
		changelog = strings.TrimSpace(l.txt[l.offsetAfter(i):])
	}
	entry := entrySepRe.Split(changelog, 2)[0]
	lines := strings.Split(entry, "\n")
	if strip {
		for k, ln := range lines {
			lines[k] = strings.TrimLeft(ln, " -*\t")
		}
	}
	return lines[0], lines[1:], nil
}
