// internal/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

type ErrorType string

const (
	ErrorTypeSpecFileNotFound     ErrorType = "SPEC_FILE_NOT_FOUND"
	ErrorTypeMultipleSpecFiles    ErrorType = "MULTIPLE_SPEC_FILES_FOUND"
	ErrorTypeParse                ErrorType = "PARSE"
	ErrorTypeOracleUnavailable    ErrorType = "ORACLE_UNAVAILABLE"
	ErrorTypeOracleFailed         ErrorType = "ORACLE_FAILED"
	ErrorTypeInvalidBumpIndex     ErrorType = "INVALID_BUMP_INDEX"
	ErrorTypeMultipleChangelog    ErrorType = "MULTIPLE_CHANGELOG_SECTIONS"
	ErrorTypeCouldNotAddRequires  ErrorType = "COULD_NOT_ADD_REQUIRES"
	ErrorTypeInvalidSaveTarget    ErrorType = "INVALID_SAVE_TARGET"
	ErrorTypeCyclicSubpackage     ErrorType = "CYCLIC_SUBPACKAGE_DEPENDENCY"
	ErrorTypeSnapshotNotFound     ErrorType = "SNAPSHOT_NOT_FOUND"
)

// BumpIndexReason tells apart the ways a Release bump index can be rejected.
type BumpIndexReason string

const (
	BumpIndexInvalid    BumpIndexReason = "invalid-index"
	BumpIndexNotNumeric BumpIndexReason = "not-numeric"
	BumpIndexOutOfRange BumpIndexReason = "out-of-range"
)

// Error is the error value surfaced by every rdopkg package.
type Error struct {
	Type    ErrorType `json:"type"`
	Op      string    `json:"op,omitempty"`
	File    string    `json:"file,omitempty"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	var parts []string
	if e.File != "" {
		parts = append(parts, e.File)
	}
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(strings.ReplaceAll(string(e.Type), "_", " "))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	parts = append(parts, msg)
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on the error type so the kind values below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Kind values for errors.Is comparisons.
var (
	ErrSpecFileNotFound    = &Error{Type: ErrorTypeSpecFileNotFound}
	ErrMultipleSpecFiles   = &Error{Type: ErrorTypeMultipleSpecFiles}
	ErrParse               = &Error{Type: ErrorTypeParse}
	ErrOracleUnavailable   = &Error{Type: ErrorTypeOracleUnavailable}
	ErrOracleFailed        = &Error{Type: ErrorTypeOracleFailed}
	ErrInvalidBumpIndex    = &Error{Type: ErrorTypeInvalidBumpIndex}
	ErrMultipleChangelog   = &Error{Type: ErrorTypeMultipleChangelog}
	ErrCouldNotAddRequires = &Error{Type: ErrorTypeCouldNotAddRequires}
	ErrInvalidSaveTarget   = &Error{Type: ErrorTypeInvalidSaveTarget}
	ErrCyclicSubpackage    = &Error{Type: ErrorTypeCyclicSubpackage}
	ErrSnapshotNotFound    = &Error{Type: ErrorTypeSnapshotNotFound}
)

// TypeOf returns the ErrorType carried by err, or "" for foreign errors.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

func SpecFileNotFound(path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeSpecFileNotFound,
		File:    path,
		Message: "no .spec file found",
		Err:     err,
	}
}

func MultipleSpecFiles(dir string, names []string) *Error {
	return &Error{
		Type:    ErrorTypeMultipleSpecFiles,
		File:    dir,
		Message: fmt.Sprintf("multiple .spec files found: %s", strings.Join(names, ", ")),
		Details: names,
	}
}

func ParseError(file, op, detail string) *Error {
	return &Error{
		Type:    ErrorTypeParse,
		File:    file,
		Op:      op,
		Message: detail,
	}
}

func OracleUnavailable(op string) *Error {
	return &Error{
		Type:    ErrorTypeOracleUnavailable,
		Op:      op,
		Message: "macro/version oracle is not available",
	}
}

func OracleFailed(op string, err error) *Error {
	return &Error{
		Type:    ErrorTypeOracleFailed,
		Op:      op,
		Message: "oracle call failed",
		Err:     err,
	}
}

func InvalidBumpIndex(reason BumpIndexReason, what string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidBumpIndex,
		Op:      "bump-release",
		Message: fmt.Sprintf("invalid Release bump index (%s): %s", reason, what),
		Details: reason,
	}
}

// BumpReason extracts the BumpIndexReason from an InvalidBumpIndex error.
func BumpReason(err error) BumpIndexReason {
	var e *Error
	if stderrors.As(err, &e) && e.Type == ErrorTypeInvalidBumpIndex {
		if r, ok := e.Details.(BumpIndexReason); ok {
			return r
		}
	}
	return ""
}

func MultipleChangelog(file string) *Error {
	return &Error{
		Type:    ErrorTypeMultipleChangelog,
		File:    file,
		Op:      "changelog",
		Message: "more than one %changelog section",
	}
}

func CouldNotAddRequires(file, entry string) *Error {
	return &Error{
		Type:    ErrorTypeCouldNotAddRequires,
		File:    file,
		Op:      "add-requires",
		Message: fmt.Sprintf("no Requires, BuildRequires or BuildArch anchor for %q", entry),
	}
}

func InvalidSaveTarget() *Error {
	return &Error{
		Type:    ErrorTypeInvalidSaveTarget,
		Op:      "save",
		Message: "can't save .spec file without its file name specified",
	}
}

func CyclicSubpackage(file string, chain []string) *Error {
	return &Error{
		Type:    ErrorTypeCyclicSubpackage,
		File:    file,
		Op:      "guess-main-python-subpackage",
		Message: fmt.Sprintf("ambiguous or cyclic subpackage dependency: %s", strings.Join(chain, " -> ")),
		Details: chain,
	}
}

func SnapshotNotFound(id string) *Error {
	return &Error{
		Type:    ErrorTypeSnapshotNotFound,
		Op:      "journal",
		Message: fmt.Sprintf("snapshot %s not found", id),
	}
}
