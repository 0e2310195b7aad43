package sheets

import "errors"

// ErrNotFound covers both a missing file and an ownership mismatch. The
// two cases are deliberately indistinguishable so that one manager cannot
// probe for the existence of another's files.
var ErrNotFound = errors.New("File not found")

// ValidationError reports malformed input; the message is returned to the
// client verbatim with a 400 status.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
