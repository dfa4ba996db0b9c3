package models

import (
	"fmt"
	"strings"
)

// ValidationError reports missing or malformed input. It is raised before
// any browser resource is acquired.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// NotFoundError means the record genuinely does not exist under any of the
// attempted categories.
type NotFoundError struct {
	Identification string
	Categories     []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no record found for %s in categories: %s",
		e.Identification, strings.Join(e.Categories, ", "))
}

// UpstreamUnavailableError means the remote site's in-flight indicator
// never resolved for any category. Retry later, the input is not wrong.
type UpstreamUnavailableError struct {
	Identification string
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("registry service did not respond for %s in any category", e.Identification)
}

// PageStateError means the target page reported or implied a failure: a
// modal or toast message, an unexpected return to the starting screen, or
// a dead page session. Message carries the most specific captured text.
type PageStateError struct {
	Message string
}

func (e *PageStateError) Error() string {
	return e.Message
}

// ConversionError means the encrypted certificate blob could not be
// converted into a certificate/key pair.
type ConversionError struct {
	Cause error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("certificate conversion failed: %v", e.Cause)
}

func (e *ConversionError) Unwrap() error {
	return e.Cause
}

// CodeForError maps a flow error to the registry-search error code.
func CodeForError(err error) string {
	switch err.(type) {
	case *NotFoundError:
		return ErrorCodeNotFound
	case *UpstreamUnavailableError:
		return ErrorCodeAPIError
	case *ValidationError:
		return ErrorCodeValidation
	default:
		return ErrorCodeUnknown
	}
}
