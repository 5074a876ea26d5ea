package oracle

import "strings"

// NVR holds the parts of a [name-][epoch:]version[-release] string.
type NVR struct {
	Name    string
	Epoch   string
	Version string
	Release string
}

// ParseNVR splits s from the right: the last dash-separated field is the
// release, the one before it the version, anything left is the name. A
// string with a single dash is read as version-release.
func ParseNVR(s string) NVR {
	var n NVR
	fields := strings.Split(s, "-")
	switch len(fields) {
	case 1:
		n.Version = fields[0]
	case 2:
		n.Version, n.Release = fields[0], fields[1]
	default:
		n.Release = fields[len(fields)-1]
		n.Version = fields[len(fields)-2]
		n.Name = strings.Join(fields[:len(fields)-2], "-")
	}

	if e, v, ok := strings.Cut(n.Version, ":"); ok {
		n.Epoch, n.Version = e, v
	}
	if e, name, ok := strings.Cut(n.Name, ":"); ok && isDigits(e) {
		n.Epoch, n.Name = e, name
	}
	return n
}

// EVR renders epoch:version-release, omitting empty parts.
func (n NVR) EVR() string {
	s := n.Version
	if n.Epoch != "" {
		s = n.Epoch + ":" + s
	}
	if n.Release != "" {
		s += "-" + n.Release
	}
	return s
}

// StringToVersion returns (epoch, version, release) of an [epoch:]version-release
// string; the epoch defaults to "0".
func StringToVersion(s string) (epoch, version, release string) {
	epoch = "0"
	if e, rest, ok := strings.Cut(s, ":"); ok {
		epoch, s = e, rest
	}
	version, release, _ = strings.Cut(s, "-")
	return epoch, version, release
}

// SplitFilename splits a package file name such as foo-1.0-1.i386.rpm or
// 1:bar-9-123a.ia64.rpm into its name, version, release, epoch and arch.
func SplitFilename(filename string) (name, version, release, epoch, arch string) {
	s := strings.TrimSuffix(filename, ".rpm")

	if e, rest, ok := strings.Cut(s, ":"); ok {
		epoch, s = e, rest
	}

	if i := strings.LastIndex(s, "."); i >= 0 {
		arch = s[i+1:]
		s = s[:i]
	}

	fields := strings.Split(s, "-")
	if len(fields) < 3 {
		return s, "", "", epoch, arch
	}
	release = fields[len(fields)-1]
	version = fields[len(fields)-2]
	name = strings.Join(fields[:len(fields)-2], "-")
	return name, version, release, epoch, arch
}

// NVRToVersion returns the version field of an NVR.
func NVRToVersion(nvr string) string {
	return ParseNVR(nvr).Version
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
