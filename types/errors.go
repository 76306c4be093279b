package types

import (
	"context"
	"errors"
)

// Failure taxonomy. Adapters and the audio pipeline wrap these sentinels so
// callers can classify failures with errors.Is regardless of the upstream
// cause.
var (
	// ErrSourceUnavailable means the upstream endpoint or page was
	// unreachable or returned a non-success status.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrParse means the upstream response no longer matches the shape the
	// adapter expects.
	ErrParse = errors.New("parse error")

	// ErrNotFound means the target URL belongs to no registered adapter, or
	// the adapter cannot locate the item.
	ErrNotFound = errors.New("not found")

	// ErrExtractionFailed means the audio pipeline could not retrieve or
	// assemble a stream.
	ErrExtractionFailed = errors.New("extraction failed")
)

// ErrorLabel maps an error to its taxonomy name for API responses.
// Timeouts are folded into SourceUnavailable; the audio controller maps its
// own timeouts to ExtractionFailed before calling this.
func ErrorLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrParse):
		return "ParseError"
	case errors.Is(err, ErrExtractionFailed):
		return "ExtractionFailed"
	case errors.Is(err, ErrSourceUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "SourceUnavailable"
	default:
		return "SourceUnavailable"
	}
}
