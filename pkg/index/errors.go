package index

import "github.com/pkg/errors"

// Error kinds a caller can test for with errors.Is. IOFailure is not a
// single sentinel: underlying read/write/seek errors are wrapped with
// context and remain inspectable via errors.Cause/errors.As.
var (
	// ErrNotAnIndex means the file exists but does not begin with the
	// magic tag.
	ErrNotAnIndex = errors.New("index: file is not a valid index")

	// ErrFileNotFound means the path does not exist when opening or
	// loading.
	ErrFileNotFound = errors.New("index: file not found")

	// ErrFileExists means a create/extract target already exists and
	// the caller declined to overwrite it.
	ErrFileExists = errors.New("index: file already exists")

	// ErrInvalidInput means a non-integer where an integer was
	// required. Malformed bulk-load lines are logged and skipped by
	// Session.Load rather than returned as this error.
	ErrInvalidInput = errors.New("index: invalid input")

	// ErrNoSessionOpen means an operation was attempted with no open
	// index file.
	ErrNoSessionOpen = errors.New("index: no session open")
)
