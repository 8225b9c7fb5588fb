package ir

// Version constants for the trace format and the decoder.
const (
	// FormatVersion is the trace record format understood by the decoder.
	FormatVersion = "1"

	// DecoderVersion is the causeway decoder version, recorded with sessions.
	DecoderVersion = "0.1.0"
)
