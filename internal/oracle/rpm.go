package oracle

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// RPM answers oracle queries by running the rpm(8) binary. Each call is a
// fresh process seeded with the caller's Env through --define.
type RPM struct {
	binary string
	logger *zap.Logger
}

// NewRPM fails when binary cannot be found in PATH.
func NewRPM(binary string, logger *zap.Logger) (*RPM, error) {
	if binary == "" {
		binary = "rpm"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("locating %s: %w", binary, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPM{binary: path, logger: logger}, nil
}

func (r *RPM) Expand(env *Env, text string) (string, error) {
	args := defineArgs(env)
	args = append(args, "--eval", text)
	return r.run(args...)
}

func (r *RPM) CompareVersions(v1, v2 string) (Order, error) {
	n, err := r.vercmp(v1, v2)
	if err != nil {
		return Equal, err
	}
	return orderOf(n), nil
}

// CompareNVR compares epoch, version and release in turn, the way
// rpm's labelCompare does.
func (r *RPM) CompareNVR(nvr1, nvr2 string) (Order, error) {
	a, b := ParseNVR(nvr1), ParseNVR(nvr2)

	ea, err := epochNumber(a.Epoch)
	if err != nil {
		return Equal, err
	}
	eb, err := epochNumber(b.Epoch)
	if err != nil {
		return Equal, err
	}
	if ea != eb {
		return orderOf(ea - eb), nil
	}

	n, err := r.vercmp(a.Version, b.Version)
	if err != nil || n != 0 {
		return orderOf(n), err
	}
	if a.Release == "" || b.Release == "" {
		return Equal, nil
	}
	n, err = r.vercmp(a.Release, b.Release)
	return orderOf(n), err
}

func (r *RPM) vercmp(a, b string) (int, error) {
	expr := fmt.Sprintf("%%{lua: print(rpm.vercmp(%s, %s))}", luaString(a), luaString(b))
	out, err := r.run("--eval", expr)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("unexpected rpm.vercmp output %q: %w", out, err)
	}
	return n, nil
}

func (r *RPM) run(args ...string) (string, error) {
	cmd := exec.Command(r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", r.binary, err, strings.TrimSpace(stderr.String()))
	}
	r.logger.Debug("rpm query", zap.Strings("args", args))
	return strings.TrimRight(string(out), "\n"), nil
}

func defineArgs(env *Env) []string {
	var args []string
	for _, name := range env.Names() {
		v, _ := env.Lookup(name)
		if strings.ContainsAny(v, "\n") {
			continue
		}
		if v == "" {
			v = "%{nil}"
		}
		args = append(args, "--define", name+" "+v)
	}
	return args
}

// luaString quotes s for rpm's lua and escapes it from macro expansion.
func luaString(s string) string {
	return strings.ReplaceAll(strconv.Quote(s), "%", "%%")
}

func epochNumber(e string) (int, error) {
	if e == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(e)
	if err != nil {
		return 0, fmt.Errorf("invalid epoch %q", e)
	}
	return n, nil
}
