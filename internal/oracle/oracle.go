// Package oracle is the macro expansion and RPM version comparison capability
// consumed by the spec-document engine.
//
// Macro state is never process-wide: every call receives the Env it should
// expand against, so two documents open in one process cannot observe each
// other's definitions.
package oracle

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Order is the result of a version comparison.
type Order int

const (
	Less    Order = -1
	Equal   Order = 0
	Greater Order = 1
)

func (o Order) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "equal"
	}
}

func orderOf(n int) Order {
	switch {
	case n < 0:
		return Less
	case n > 0:
		return Greater
	default:
		return Equal
	}
}

// Oracle expands macros and orders RPM versions.
type Oracle interface {
	// Expand returns text with its macros expanded against env.
	Expand(env *Env, text string) (string, error)
	// CompareNVR orders two [name-][epoch:]version-release strings.
	CompareNVR(nvr1, nvr2 string) (Order, error)
	// CompareVersions orders two bare version strings (no epoch, no release).
	CompareVersions(v1, v2 string) (Order, error)
}

// Env is an explicit macro table for a single document.
type Env struct {
	defs map[string]string
}

func NewEnv() *Env {
	return &Env{defs: make(map[string]string)}
}

// Define sets name to value, replacing any earlier definition.
func (e *Env) Define(name, value string) {
	e.defs[name] = value
}

func (e *Env) Undefine(name string) {
	delete(e.defs, name)
}

func (e *Env) Lookup(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.defs[name]
	return v, ok
}

// Names returns the defined macro names in sorted order.
func (e *Env) Names() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.defs))
	for n := range e.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (e *Env) Clone() *Env {
	c := NewEnv()
	if e == nil {
		return c
	}
	for k, v := range e.defs {
		c.defs[k] = v
	}
	return c
}

// Kinds accepted by Resolve.
const (
	KindAuto    = "auto"
	KindRPM     = "rpm"
	KindBuiltin = "builtin"
	KindNone    = "none"
)

// Resolve builds the oracle named by kind. KindNone yields a nil Oracle,
// which callers treat as the capability being absent.
func Resolve(kind, rpmBinary string, logger *zap.Logger) (Oracle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(kind) {
	case KindNone:
		return nil, nil
	case KindBuiltin:
		return NewBuiltin(), nil
	case KindRPM:
		return NewRPM(rpmBinary, logger)
	case KindAuto, "":
		r, err := NewRPM(rpmBinary, logger)
		if err != nil {
			logger.Debug("rpm oracle unavailable, using builtin", zap.Error(err))
			return NewBuiltin(), nil
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown oracle kind %q", kind)
	}
}
