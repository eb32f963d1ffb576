package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrTransport     = errors.New("upstream error")
	ErrValidation    = errors.New("validation error")
	ErrUnknownAction = errors.New("unknown action")
	ErrNotFound      = errors.New("not found")
	ErrNoStories     = errors.New("no stories found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadySent   = errors.New("newsletter already sent")
)

// UpstreamError carries the status and body returned by an external service.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, strings.TrimSpace(e.Body))
}

// Unwrap lets errors.Is match ErrTransport.
func (e *UpstreamError) Unwrap() error {
	return ErrTransport
}

// Wrap builds an error message with operation context while tagging it with marker,
// which should be one of the sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{component, operation, message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
