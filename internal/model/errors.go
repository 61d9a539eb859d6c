package model

import "errors"

// ErrorKind enumerates the ways generator output can fail to be applied.
type ErrorKind string

// Malformed tool call kinds.
const (
	KindJSONInvalid   ErrorKind = "json_invalid"
	KindSchemaInvalid ErrorKind = "schema_invalid"
	KindNotFound      ErrorKind = "not_found"
	KindAmbiguous     ErrorKind = "ambiguous"
	KindOverlapping   ErrorKind = "overlapping"
)

// MalformedError reports generator output that cannot be deterministically
// and safely applied: unparseable payload, schema mismatch, a replacement
// that is missing or ambiguous outside forbidden regions, or overlapping
// edits. Reason is written to be fed back into the next generation attempt.
type MalformedError struct {
	Kind   ErrorKind
	Reason string
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	return e.Reason
}

// Malformed constructs a MalformedError with the given kind and reason.
func Malformed(kind ErrorKind, reason string) *MalformedError {
	return &MalformedError{Kind: kind, Reason: reason}
}

// AsMalformed unwraps err into a MalformedError if it carries one.
func AsMalformed(err error) (*MalformedError, bool) {
	var me *MalformedError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
