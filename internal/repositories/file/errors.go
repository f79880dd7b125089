package file

import "fmt"

// Error implements repositories.RepositoryError for file backed repositories.
type Error struct {
	op          string
	err         error
	notFound    bool
	unavailable bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsNotFound reports whether the error represents a missing entry.
func (e *Error) IsNotFound() bool {
	return e != nil && e.notFound
}

// IsConflict reports whether the error represents a conflicting update.
func (e *Error) IsConflict() bool {
	return false
}

// IsUnavailable reports whether the error represents a backend failure.
func (e *Error) IsUnavailable() bool {
	return e != nil && e.unavailable
}

func notFoundError(op string, err error) *Error {
	return &Error{op: op, err: err, notFound: true}
}

func unavailableError(op string, err error) *Error {
	return &Error{op: op, err: err, unavailable: true}
}
