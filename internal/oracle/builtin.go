package oracle

import (
	"fmt"
	"strings"

	version "github.com/knqyf263/go-rpm-version"
)

const maxExpandDepth = 64

// Builtin expands plain, conditional and alternative macro references from
// the Env alone. Anything richer (%(shell), %{lua:}, parametric macros) is
// left verbatim.
type Builtin struct{}

func NewBuiltin() *Builtin {
	return &Builtin{}
}

func (b *Builtin) Expand(env *Env, text string) (string, error) {
	return expand(env, text, 0)
}

func (b *Builtin) CompareNVR(nvr1, nvr2 string) (Order, error) {
	a, b2 := ParseNVR(nvr1), ParseNVR(nvr2)
	return orderOf(version.NewVersion(a.EVR()).Compare(version.NewVersion(b2.EVR()))), nil
}

func (b *Builtin) CompareVersions(v1, v2 string) (Order, error) {
	if strings.Contains(v1, "-") || strings.Contains(v2, "-") {
		return Equal, fmt.Errorf("version strings must not contain a release: %q, %q", v1, v2)
	}
	return orderOf(version.NewVersion(v1).Compare(version.NewVersion(v2))), nil
}

func expand(env *Env, s string, depth int) (string, error) {
	if depth > maxExpandDepth {
		return "", fmt.Errorf("macro expansion nested deeper than %d levels", maxExpandDepth)
	}

	var out strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c != '%' || i+1 >= len(s) {
			out.WriteByte(c)
			i++
			continue
		}

		next := s[i+1]
		switch {
		case next == '%':
			out.WriteByte('%')
			i += 2

		case next == '{':
			end := matchBrace(s, i+1)
			if end < 0 {
				out.WriteString(s[i:])
				return out.String(), nil
			}
			v, err := expandBraced(env, s[i+2:end], s[i:end+1], depth)
			if err != nil {
				return "", err
			}
			out.WriteString(v)
			i = end + 1

		case isNameStart(next):
			j := i + 1
			for j < len(s) && isNameChar(s[j]) {
				j++
			}
			if val, ok := env.Lookup(s[i+1 : j]); ok {
				v, err := expand(env, val, depth+1)
				if err != nil {
					return "", err
				}
				out.WriteString(v)
			} else {
				out.WriteString(s[i:j])
			}
			i = j

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), nil
}

// expandBraced handles the inside of %{...}; raw is the whole reference.
func expandBraced(env *Env, body, raw string, depth int) (string, error) {
	cond, negate := false, false
	switch {
	case strings.HasPrefix(body, "!?"), strings.HasPrefix(body, "?!"):
		cond, negate = true, true
		body = body[2:]
	case strings.HasPrefix(body, "?"):
		cond = true
		body = body[1:]
	}

	name, alt, hasAlt := strings.Cut(body, ":")
	if !validName(name) {
		return raw, nil
	}
	val, defined := env.Lookup(name)

	if !cond {
		if !defined || hasAlt {
			return raw, nil
		}
		return expand(env, val, depth+1)
	}

	if negate {
		if !defined && hasAlt {
			return expand(env, alt, depth+1)
		}
		return "", nil
	}
	if !defined {
		return "", nil
	}
	if hasAlt {
		return expand(env, alt, depth+1)
	}
	return expand(env, val, depth+1)
}

// matchBrace returns the index of the '}' closing the '{' at open, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func validName(name string) bool {
	if name == "" || !isNameStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isNameChar(name[i]) {
			return false
		}
	}
	return true
}
