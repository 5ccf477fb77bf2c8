package cmr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error the client returns for a CMR call matches exactly
// one of these through errors.Is.
var (
	// ErrValidation means CMR rejected the metadata before any write.
	ErrValidation = errors.New("metadata validation failed")

	// ErrRejected means CMR refused the request (HTTP 4xx, or an errors
	// element inside a 200 ingest envelope). Not retryable as-is.
	ErrRejected = errors.New("request rejected by CMR")

	// ErrTransient means CMR failed internally (HTTP 5xx) or never answered.
	// The caller may retry.
	ErrTransient = errors.New("CMR unavailable")

	// ErrMalformedResponse means the response body could not be decoded in
	// the expected XML or JSON shape.
	ErrMalformedResponse = errors.New("malformed CMR response")

	// ErrInvalidConcept means the caller's input was unusable before any
	// request was made.
	ErrInvalidConcept = errors.New("invalid concept")

	// ErrMissingProvider means a provider-scoped call was made without one.
	ErrMissingProvider = errors.New("provider is required")
)

// FieldError is one entry of a structured CMR validation error.
type FieldError struct {
	Path   []string
	Errors []string
}

// ValidationError carries CMR's validation diagnostics verbatim.
type ValidationError struct {
	ConceptType ConceptType
	Identifier  string
	StatusCode  int
	Messages    []string
	Details     []FieldError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %q: %s (status %d)", e.ConceptType, e.Identifier, ErrValidation, e.StatusCode)
	if msgs := e.AllMessages(); len(msgs) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(msgs, "; "))
	}
	return b.String()
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// AllMessages flattens Messages and Details into one list. Detail messages
// are prefixed with their path.
func (e *ValidationError) AllMessages() []string {
	out := make([]string, 0, len(e.Messages)+len(e.Details))
	out = append(out, e.Messages...)
	for _, d := range e.Details {
		prefix := strings.Join(d.Path, "/")
		for _, msg := range d.Errors {
			if prefix == "" {
				out = append(out, msg)
				continue
			}
			out = append(out, prefix+": "+msg)
		}
	}
	return out
}

// RequestError describes a failed CMR call.
type RequestError struct {
	// Kind is one of ErrRejected, ErrTransient or ErrMalformedResponse.
	Kind        error
	Op          string
	ConceptType ConceptType
	Identifier  string
	StatusCode  int
	Messages    []string
	Err         error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.ConceptType != "" {
		b.WriteByte(' ')
		b.WriteString(string(e.ConceptType))
	}
	if e.Identifier != "" {
		fmt.Fprintf(&b, " %q", e.Identifier)
	}
	b.WriteString(": ")
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *RequestError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsRetryable reports whether err is worth retrying unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// errorKind names the kind of err for logs and metric labels.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrInvalidConcept):
		return "invalid_concept"
	case errors.Is(err, ErrMissingProvider):
		return "missing_provider"
	default:
		return "other"
	}
}
