package services

import (
	"errors"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrCollaborator  = errors.New("collaborator error")
	ErrComposition   = errors.New("composition error")
	ErrResource      = errors.New("resource error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
)

// ErrorKind is the short classification used in logs, progress events, and
// HTTP status mapping.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindCollaborator  ErrorKind = "collaborator"
	KindComposition   ErrorKind = "composition"
	KindResource      ErrorKind = "resource"
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindTimeout       ErrorKind = "timeout"
	KindUnknown       ErrorKind = "unknown"
)

var markerKinds = []struct {
	marker error
	kind   ErrorKind
}{
	{ErrValidation, KindValidation},
	{ErrComposition, KindComposition},
	{ErrResource, KindResource},
	{ErrConfiguration, KindConfiguration},
	{ErrNotFound, KindNotFound},
	{ErrTimeout, KindTimeout},
	{ErrCollaborator, KindCollaborator},
}

// ServiceError carries a classification marker plus the pipeline location
// where the failure happened.
type ServiceError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Marker.Error())
	b.WriteString(": ")
	b.WriteString(buildDetail(e.Stage, e.Operation, e.Message))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the marker and the cause to errors.Is / errors.As.
func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above; nil defaults to ErrCollaborator.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrCollaborator
	}
	return &ServiceError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// Kind classifies err by the first marker it carries.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, mk := range markerKinds {
		if errors.Is(err, mk.marker) {
			return mk.kind
		}
	}
	return KindUnknown
}

// ErrorDetails is the structured view of a wrapped error.
type ErrorDetails struct {
	Kind      ErrorKind
	Stage     string
	Operation string
	Message   string
	Cause     string
}

// Details extracts the outermost ServiceError fields from err. Plain errors
// yield only Kind and Cause.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: Kind(err), Cause: err.Error()}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		details.Stage = svcErr.Stage
		details.Operation = svcErr.Operation
		details.Message = svcErr.Message
		if svcErr.Err != nil {
			details.Cause = svcErr.Err.Error()
		} else {
			details.Cause = ""
		}
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
