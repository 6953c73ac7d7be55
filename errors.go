package native

import (
	"strings"
)

// Kind categorizes a bootstrap failure.
type Kind string

const (
	KindManifest         Kind = "manifest"           // no entries for a platform, or a broken table
	KindResourceNotFound Kind = "resource_not_found" // packaged library absent
	KindExtraction       Kind = "extraction"         // temp dir or copy failure
	KindLibraryLoad      Kind = "library_load"       // dynamic loader rejected a file
	KindBootstrap        Kind = "bootstrap"          // initialize failed, wraps one of the above
	KindMissingSymbol    Kind = "missing_symbol"     // exported function not found
)

// Error is the structured error returned by every bootstrap phase.
//
// Sentinels below carry only a Kind, so errors.Is(err, ErrLibraryLoad) matches any
// *Error of that kind anywhere in the chain.
type Error struct {
	Kind   Kind
	Path   string // logical resource path or absolute file path
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Kind))
	b.WriteByte(']')
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Path == "" && t.Cause == nil
}

var (
	// ErrManifest occurs when a resolved platform has no manifest entries or violates the single core rule.
	ErrManifest = &Error{Kind: KindManifest}
	// ErrResourceNotFound occurs when a required packaged library is absent.
	ErrResourceNotFound = &Error{Kind: KindResourceNotFound}
	// ErrExtraction occurs on filesystem failures while extracting.
	ErrExtraction = &Error{Kind: KindExtraction}
	// ErrLibraryLoad occurs when the dynamic loader rejects a file.
	ErrLibraryLoad = &Error{Kind: KindLibraryLoad}
	// ErrBootstrap wraps any failure of Bootstrap.Initialize.
	ErrBootstrap = &Error{Kind: KindBootstrap}
	// ErrMissingSymbol occurs when a symbol can't be found in a loaded library.
	ErrMissingSymbol = &Error{Kind: KindMissingSymbol}
)

func newError(kind Kind, path, detail string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Detail: detail, Cause: cause}
}
