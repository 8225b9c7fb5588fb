package trace

import (
	"errors"
	"fmt"
)

// FormatErrorCode categorizes malformed trace input.
type FormatErrorCode string

const (
	// ErrCodeTruncated indicates a record reads past the end of its chunk.
	ErrCodeTruncated FormatErrorCode = "TRUNCATED_RECORD"

	// ErrCodeBadOrigin indicates a creation record whose nested origin
	// record carries the wrong tag.
	ErrCodeBadOrigin FormatErrorCode = "BAD_ORIGIN_TAG"
)

// FormatError reports a malformed chunk. It is fatal to the Decode call
// that returned it only; records decoded before the failure stay committed.
type FormatError struct {
	// Code identifies the error category.
	Code FormatErrorCode

	// Tag is the tag of the offending record.
	Tag Tag

	// Offset is where the offending record starts within the chunk.
	Offset int

	// Missing is the number of bytes the record needed beyond the chunk end.
	Missing int

	// ChunkLen is the length of the chunk being decoded.
	ChunkLen int

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s (tag=%s, offset=%d, chunk_len=%d)",
		e.Code, e.Message, e.Tag, e.Offset, e.ChunkLen)
}

// IsFormatError returns true if err is or wraps a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// truncated builds a FormatError for a record starting at off that needed
// size bytes and was short by missing bytes.
func truncated(chunk []byte, off, size, missing int) *FormatError {
	var tag Tag
	if off < len(chunk) {
		tag = Tag(chunk[off])
	}
	return &FormatError{
		Code:     ErrCodeTruncated,
		Tag:      tag,
		Offset:   off,
		Missing:  missing,
		ChunkLen: len(chunk),
		Message:  fmt.Sprintf("record of %d bytes exceeds chunk by %d", size, missing),
	}
}

func badOrigin(chunk []byte, off, originOff int) *FormatError {
	return &FormatError{
		Code:     ErrCodeBadOrigin,
		Tag:      Tag(chunk[off]),
		Offset:   off,
		ChunkLen: len(chunk),
		Message:  fmt.Sprintf("expected origin tag %d at offset %d, found %d", TagActivityOrigin, originOff, chunk[originOff]),
	}
}
