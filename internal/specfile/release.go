package specfile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	rerrors "github.com/jcapiitao/rdopkg/internal/errors"
)

// Well-known Release bump indices.
const (
	BumpLastNumeric = "LAST-NUMERIC"
	BumpMajor       = "MAJOR"
	BumpMinor       = "MINOR"
	BumpPatch       = "PATCH"
	BumpNone        = "0"
)

const milestoneMacro = "%{?milestone}"

var (
	numericPrefixRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)([.%]|$)(.*)$`)
	milestoneRe     = regexp.MustCompile(`^(\.?(?:%\{\?milestone\}|[^%.]+))(.*)$`)
	distPrefixRe    = regexp.MustCompile(`^%\{\??dist\}`)
	distAnywhereRe  = regexp.MustCompile(`%\{\??dist\}`)
	distSuffixRe    = regexp.MustCompile(`%\{?\??dist\}?$`)

	semverIndex = map[string]int{BumpMajor: 1, BumpMinor: 2, BumpPatch: 3}
)

// SplitNumericPrefix splits a Version or Release into its leading X.Y.Z part
// and the rest. The numeric run must be followed by '.', '%' or the end of
// the string, backing off to a shorter run when needed. A value without
// such a prefix is returned whole as the numeric part.
func SplitNumericPrefix(s string) (string, string) {
	m := numericPrefixRe.FindStringSubmatch(s)
	if m == nil {
		return s, ""
	}
	return m[1], m[2] + m[3]
}

// ReleaseParts is a Release value split into numbers, milestone and the
// verbatim remainder (usually %{?dist}).
type ReleaseParts struct {
	Numeric   string
	Milestone string
	Rest      string
}

// DecomposeRelease splits a Release value. A Release that is entirely a
// macro ends up in Rest.
func DecomposeRelease(release string) ReleaseParts {
	numeric, tail := SplitNumericPrefix(release)
	if numeric != "" && (numeric[0] < '0' || numeric[0] > '9') {
		tail = numeric
		numeric = ""
	}
	p := ReleaseParts{Numeric: numeric, Rest: tail}
	if m := milestoneRe.FindStringSubmatch(tail); m != nil {
		p.Milestone = m[1]
		p.Rest = m[2]
	}
	return p
}

// Recognized reports whether the remainder is something automated bumps
// know how to carry over.
func (p ReleaseParts) Recognized() bool {
	return p.Rest == "" || distPrefixRe.MatchString(p.Rest)
}

func (p ReleaseParts) String() string {
	return p.Numeric + p.Milestone + p.Rest
}

// BumpRelease increments one numeric component of release.
//
// The default index (empty or LAST-NUMERIC) bumps the last number of the
// numeric part and drops an inline milestone. MAJOR, MINOR, PATCH or a
// 1-based position N bump that component of the numbers plus a literal
// inline milestone. "0" returns release unchanged. Other components are never
// reset. When milestone is set the %{?milestone} placeholder is written
// between the numbers and the remainder.
func BumpRelease(release, milestone, index string) (string, error) {
	if index == BumpNone {
		return release, nil
	}
	p := DecomposeRelease(release)
	numbers, err := bumpNumbers(p, index)
	if err != nil {
		return "", err
	}
	return recompose(numbers, milestone, p.Rest), nil
}

func recompose(numbers, milestone, rest string) string {
	if milestone != "" {
		numbers += milestoneMacro
	}
	return numbers + rest
}

func bumpNumbers(p ReleaseParts, index string) (string, error) {
	index = strings.ToUpper(index)

	if index == "" || index == BumpLastNumeric {
		parts := strings.Split(p.Numeric, ".")
		i := len(parts) - 1
		if strings.HasSuffix(p.Numeric, ".") && i > 0 {
			i--
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return "", rerrors.InvalidBumpIndex(rerrors.BumpIndexNotNumeric,
				fmt.Sprintf("last part of Release numbers %q isn't numeric", p.Numeric))
		}
		parts[i] = strconv.Itoa(n + 1)
		return strings.Join(parts, "."), nil
	}

	pos, ok := semverIndex[index]
	if !ok {
		n, err := strconv.Atoi(index)
		if err != nil {
			return "", rerrors.InvalidBumpIndex(rerrors.BumpIndexInvalid, index)
		}
		if n < 1 {
			return "", rerrors.InvalidBumpIndex(rerrors.BumpIndexInvalid,
				index+" (positive integer required)")
		}
		pos = n
	}

	// the placeholder is written back by recompose
	release := p.Numeric
	if p.Milestone != milestoneMacro {
		release += p.Milestone
	}
	parts := strings.Split(release, ".")
	if pos > len(parts) {
		return "", rerrors.InvalidBumpIndex(rerrors.BumpIndexOutOfRange,
			fmt.Sprintf("%d (Release: %s)", pos, release))
	}
	n, err := strconv.Atoi(parts[pos-1])
	if err != nil || n < 0 {
		return "", rerrors.InvalidBumpIndex(rerrors.BumpIndexNotNumeric,
			fmt.Sprintf("%d. part of Release %q isn't numeric: %s", pos, release, parts[pos-1]))
	}
	parts[pos-1] = strconv.Itoa(n + 1)
	return strings.Join(parts, "."), nil
}

// GetReleaseParts decomposes the literal Release tag.
func (s *Spec) GetReleaseParts() (ReleaseParts, error) {
	release, err := s.GetTag("Release")
	if err != nil {
		return ReleaseParts{}, err
	}
	return DecomposeRelease(release), nil
}

// RecognizedRelease reports whether the Release tag is safe to bump.
func (s *Spec) RecognizedRelease() (bool, error) {
	p, err := s.GetReleaseParts()
	if err != nil {
		return false, err
	}
	return p.Recognized(), nil
}

// SetRelease writes numbers (plus %{?milestone} when milestone is set) and
// postfix into the Release tag, and syncs the milestone macro. A nil postfix
// keeps the current remainder. %{?dist} is appended when missing.
func (s *Spec) SetRelease(numbers, milestone string, postfix *string) (bool, error) {
	rest := ""
	if postfix != nil {
		rest = *postfix
	} else {
		p, err := s.GetReleaseParts()
		if err != nil {
			return false, err
		}
		rest = p.Rest
	}

	release := recompose(numbers, milestone, rest)
	if !distAnywhereRe.MatchString(release) {
		release += "%{?dist}"
	}

	// both edits or neither
	saved := s.txt
	if err := s.SetMilestone(milestone); err != nil {
		return false, err
	}
	if !s.SetTag("Release", release) {
		s.txt = saved
		return false, s.parseError("set-release", "Release tag not found")
	}
	return true, nil
}

// BumpRelease bumps the Release tag. An empty milestone keeps the current
// milestone macro.
func (s *Spec) BumpRelease(milestone, index string) error {
	if index == BumpNone {
		return nil
	}
	if milestone == "" {
		milestone = s.GetMilestone()
	}
	p, err := s.GetReleaseParts()
	if err != nil {
		return err
	}
	numbers, err := bumpNumbers(p, index)
	if err != nil {
		return err
	}
	_, err = s.SetRelease(numbers, milestone, &p.Rest)
	return err
}

// EpochPolicy controls the epoch prefix of GetVR and GetNVR.
type EpochPolicy int

const (
	// EpochDefault prefixes the epoch only when an Epoch tag exists.
	EpochDefault EpochPolicy = iota
	// EpochAlways prefixes the epoch, using 0 when there is no Epoch tag.
	EpochAlways
	// EpochOmit never prefixes the epoch.
	EpochOmit
)

// GetVR returns "[epoch:]version-release" with the dist suffix stripped from
// Release and the remaining macros expanded.
func (s *Spec) GetVR(policy EpochPolicy) (string, error) {
	l := scan(s.txt)
	version, err := s.getTagExpanded(l, "Version")
	if err != nil {
		return "", err
	}

	if policy != EpochOmit {
		epoch := ""
		if ln, ok := l.tag("Epoch"); ok {
			epoch = ln.value
		}
		if epoch == "" && policy == EpochAlways {
			epoch = "0"
		}
		if epoch != "" {
			version = epoch + ":" + version
		}
	}

	ln, ok := l.tag("Release")
	if !ok || ln.value == "" {
		return "", s.parseError("get-vr", "Release tag not found")
	}
	release := distSuffixRe.ReplaceAllString(ln.value, "")
	release, err = s.expandIfNeeded(l, "get-vr", release)
	if err != nil {
		return "", err
	}
	if release == "" {
		return version, nil
	}
	return version + "-" + release, nil
}

// GetNVR returns "name-[epoch:]version-release".
func (s *Spec) GetNVR(policy EpochPolicy) (string, error) {
	name, err := s.Name()
	if err != nil {
		return "", err
	}
	vr, err := s.GetVR(policy)
	if err != nil {
		return "", err
	}
	return name + "-" + vr, nil
}
