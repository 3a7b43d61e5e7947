package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")
	ErrRateLimited      = errors.New("upstream rate limited")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindName maps an error to the stable kind string carried by stream error
// events and API responses.
func KindName(err error) string {
	switch {
	case IsKind(err, ErrInvalidInput):
		return "invalid_input"
	case IsKind(err, ErrDocumentNotFound):
		return "not_found"
	case IsKind(err, ErrUnauthorized):
		return "unauthorized"
	case IsKind(err, ErrRateLimited):
		return "rate_limited"
	case IsKind(err, ErrTemporary):
		return "temporary"
	default:
		return "internal"
	}
}

// Retryable reports whether the caller may usefully retry a fresh query.
func Retryable(err error) bool {
	return IsKind(err, ErrTemporary) || IsKind(err, ErrRateLimited)
}
