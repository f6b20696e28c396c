package sizefile

import "errors"

const (
	// headerComment is the first line of every archive. Purely informational,
	// a loader only requires the leading '#'.
	headerComment = "# Created by binsize"

	// FormatMarker is the literal version marker on the second line of an
	// archive. A reader requires an exact match; there is no migration path
	// for older or newer formats, a mismatched archive must be regenerated
	// from source.
	FormatMarker = "Binary Size Archive v1"
)

// ErrVersionMismatch is returned by Load when the version marker line does
// not equal FormatMarker.
var ErrVersionMismatch = errors.New("size archive version marker mismatch")
