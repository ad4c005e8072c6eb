package db

import "golang.org/x/xerrors"

// ErrorKind classifies the failure modes a map database transaction can
// surface, the sum type called for at the database boundary.
type ErrorKind int

const (
	// IoErrorKind wraps an underlying storage failure (bbolt/file system).
	IoErrorKind ErrorKind = iota
	// NoPathExistsKind means two versions share no common ancestor.
	NoPathExistsKind
	// NoPathExistsToRootKind means a version's ancestor chain could not be
	// walked to a root.
	NoPathExistsToRootKind
	// MissingVersionChangesKind means a version-changes record referenced
	// by the graph is absent from the version-changes bucket.
	MissingVersionChangesKind
)

func (k ErrorKind) String() string {
	switch k {
	case IoErrorKind:
		return "io error"
	case NoPathExistsKind:
		return "no path exists"
	case NoPathExistsToRootKind:
		return "no path exists to root"
	case MissingVersionChangesKind:
		return "missing version changes"
	default:
		return "unknown"
	}
}

// Error is a database-boundary error carrying its ErrorKind alongside the
// wrapped cause, so callers can distinguish failure modes with errors.As
// while still getting a %w-wrapped chain for logging.
type Error struct {
	Kind  ErrorKind
	cause error
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, cause: xerrors.Errorf(format, args...)}
}

func (e *Error) Error() string { return e.cause.Error() }
func (e *Error) Unwrap() error { return e.cause }

func IoError(format string, args ...interface{}) *Error {
	return newError(IoErrorKind, format, args...)
}

func NoPathExists(format string, args ...interface{}) *Error {
	return newError(NoPathExistsKind, format, args...)
}

func NoPathExistsToRoot(format string, args ...interface{}) *Error {
	return newError(NoPathExistsToRootKind, format, args...)
}

func MissingVersionChanges(format string, args ...interface{}) *Error {
	return newError(MissingVersionChangesKind, format, args...)
}
