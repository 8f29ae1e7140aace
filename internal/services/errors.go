package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIO marks unreadable paths, failed copies and other filesystem
	// trouble. Jobs failing with it are eligible for retry.
	ErrIO = errors.New("io error")
	// ErrStructure marks library layout violations. Fatal for the affected
	// album only.
	ErrStructure = errors.New("structure error")
	// ErrSerialization marks malformed persisted state. Callers degrade to
	// "no prior state" instead of failing the run.
	ErrSerialization = errors.New("serialization error")
	// ErrExternalTool marks a non-zero exit or startup failure of the
	// transcoding tool. Retried per policy.
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a job error should be retried. Layout and state
// deserialization problems do not improve on retry, and cancellation must
// suppress further attempts.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrStructure), errors.Is(err, ErrSerialization):
		return false
	default:
		return true
	}
}

// IsCancellation reports whether the error is a cancellation outcome rather
// than a failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
