package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"euphony/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcode", "run", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcode", "run", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestRetryableClassification(t *testing.T) {
	toolErr := services.Wrap(services.ErrExternalTool, "transcode", "run", "exit status 1", nil)
	if !services.Retryable(toolErr) {
		t.Fatalf("expected tool error to be retryable: %v", toolErr)
	}

	ioErr := services.Wrap(services.ErrIO, "copy", "open", "permission denied", nil)
	if !services.Retryable(ioErr) {
		t.Fatalf("expected io error to be retryable: %v", ioErr)
	}

	structureErr := services.Wrap(services.ErrStructure, "scan", "walk", "file outside album", nil)
	if services.Retryable(structureErr) {
		t.Fatalf("expected structure error to be terminal: %v", structureErr)
	}

	if services.Retryable(context.Canceled) {
		t.Fatal("expected cancellation to suppress retries")
	}
	if services.Retryable(nil) {
		t.Fatal("expected nil to not be retryable")
	}
}

func TestIsCancellation(t *testing.T) {
	if !services.IsCancellation(context.Canceled) {
		t.Fatal("expected context.Canceled to classify as cancellation")
	}
	wrapped := services.Wrap(services.ErrExternalTool, "transcode", "run", "interrupted", context.Canceled)
	if !services.IsCancellation(wrapped) {
		t.Fatal("expected wrapped cancellation to classify as cancellation")
	}
	if services.IsCancellation(errors.New("boom")) {
		t.Fatal("unexpected cancellation classification")
	}
}
