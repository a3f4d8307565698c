package services

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrProbeFailed         = errors.New("probe failed")
	ErrStandardizeFailed   = errors.New("standardize failed")
	ErrTransformFailed     = errors.New("transform failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrConfiguration       = errors.New("configuration error")
	ErrNotFound            = errors.New("not found")
)

// Error carries the stage context of a failure alongside its classification
// marker. Both the marker and the cause remain reachable through errors.Is.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Err != nil {
		return e.Marker.Error() + ": " + detail + ": " + e.Err.Error()
	}
	return e.Marker.Error() + ": " + detail
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransformFailed
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// HTTPStatus maps a pipeline error to the status code reported to clients.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// StageOf returns the stage recorded by the outermost Wrap call, if any.
func StageOf(err error) string {
	var wrapped *Error
	if errors.As(err, &wrapped) {
		return wrapped.Stage
	}
	return ""
}

// MessageOf returns the human-facing message recorded by Wrap, falling back
// to the error text.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var wrapped *Error
	if errors.As(err, &wrapped) && wrapped.Message != "" {
		return wrapped.Message
	}
	return err.Error()
}

// Kind names the marker category of err for logs and persisted job rows.
func Kind(err error) string {
	for _, marker := range []error{
		ErrInvalidRequest,
		ErrProbeFailed,
		ErrStandardizeFailed,
		ErrTranscriptionFailed,
		ErrTransformFailed,
		ErrConfiguration,
		ErrNotFound,
	} {
		if errors.Is(err, marker) {
			return marker.Error()
		}
	}
	return ""
}

// Detail is the client-facing classification of an error.
type Detail struct {
	Status  int
	Kind    string
	Stage   string
	Message string
}

// Details classifies err for an HTTP response.
func Details(err error) Detail {
	return Detail{
		Status:  HTTPStatus(err),
		Kind:    Kind(err),
		Stage:   StageOf(err),
		Message: MessageOf(err),
	}
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
