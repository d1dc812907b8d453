package polystore_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/polystore/polystore"
)

// TestErrorKindCodes pins the numeric codes. They are part of the wire
// contract and must never change.
func TestErrorKindCodes(t *testing.T) {
	tests := []struct {
		kind polystore.ErrorKind
		code int
		name string
	}{
		{polystore.KindInternal, 1, "Internal"},
		{polystore.KindUnsupported, 2, "Unsupported"},
		{polystore.KindConfigInvalid, 3, "ConfigInvalid"},
		{polystore.KindNotFound, 4, "NotFound"},
		{polystore.KindPermissionDenied, 5, "PermissionDenied"},
		{polystore.KindIsADirectory, 6, "IsADirectory"},
		{polystore.KindNotADirectory, 7, "NotADirectory"},
		{polystore.KindAlreadyExists, 8, "AlreadyExists"},
		{polystore.KindRateLimited, 9, "RateLimited"},
		{polystore.KindIsSameFile, 10, "IsSameFile"},
		{polystore.KindIndeterminate, 11, "Indeterminate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.Code(); got != tt.code {
				t.Errorf("%s.Code() = %d, want %d", tt.name, got, tt.code)
			}
			if got := tt.kind.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
		})
	}
}

func TestErrorFluentConstruction(t *testing.T) {
	cause := errors.New("socket closed")
	err := polystore.NewError(polystore.KindNotFound, "object missing").
		WithOperation("stat").
		WithPath("a/b.txt").
		WithCause(cause)

	if err.Kind() != polystore.KindNotFound {
		t.Errorf("Kind() = %s, want NotFound", err.Kind())
	}
	if err.Operation() != "stat" {
		t.Errorf("Operation() = %q, want %q", err.Operation(), "stat")
	}
	if err.Path() != "a/b.txt" {
		t.Errorf("Path() = %q, want %q", err.Path(), "a/b.txt")
	}
	if err.Message() != "object missing" {
		t.Errorf("Message() = %q, want %q", err.Message(), "object missing")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	want := "[NotFound] stat a/b.txt: object missing: socket closed"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

// TestErrorSentinelInterop verifies errors.Is matches the io/fs
// sentinels callers already branch on.
func TestErrorSentinelInterop(t *testing.T) {
	tests := []struct {
		kind     polystore.ErrorKind
		sentinel error
	}{
		{polystore.KindNotFound, fs.ErrNotExist},
		{polystore.KindAlreadyExists, fs.ErrExist},
		{polystore.KindPermissionDenied, fs.ErrPermission},
		{polystore.KindUnsupported, errors.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := polystore.NewError(tt.kind, "x")
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%s error, %v) = false, want true", tt.kind, tt.sentinel)
			}
			// The match is kind-specific.
			other := polystore.NewError(polystore.KindInternal, "x")
			if errors.Is(other, tt.sentinel) {
				t.Errorf("errors.Is(Internal error, %v) = true, want false", tt.sentinel)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := polystore.KindOf(nil); got != polystore.KindUnknown {
		t.Errorf("KindOf(nil) = %s, want Unknown", got)
	}
	if got := polystore.KindOf(errors.New("plain")); got != polystore.KindInternal {
		t.Errorf("KindOf(plain error) = %s, want Internal", got)
	}

	err := polystore.NewError(polystore.KindRateLimited, "slow down")
	if got := polystore.KindOf(err); got != polystore.KindRateLimited {
		t.Errorf("KindOf = %s, want RateLimited", got)
	}

	// The kind survives wrapping.
	wrapped := fmt.Errorf("request failed: %w", err)
	if got := polystore.KindOf(wrapped); got != polystore.KindRateLimited {
		t.Errorf("KindOf(wrapped) = %s, want RateLimited", got)
	}
}

func TestIsTemporary(t *testing.T) {
	if polystore.IsTemporary(nil) {
		t.Error("IsTemporary(nil) = true, want false")
	}
	if polystore.IsTemporary(errors.New("plain")) {
		t.Error("IsTemporary(plain error) = true, want false")
	}
	if polystore.IsTemporary(polystore.NewError(polystore.KindInternal, "x")) {
		t.Error("IsTemporary(Internal) = true, want false")
	}

	// RateLimited is born temporary.
	if !polystore.IsTemporary(polystore.NewError(polystore.KindRateLimited, "x")) {
		t.Error("IsTemporary(RateLimited) = false, want true")
	}
	// Any kind can be marked.
	marked := polystore.NewError(polystore.KindInternal, "flaky").SetTemporary()
	if !polystore.IsTemporary(marked) {
		t.Error("IsTemporary(SetTemporary) = false, want true")
	}
}

func TestErrorPredicates(t *testing.T) {
	notFound := polystore.NewError(polystore.KindNotFound, "x")
	if !polystore.IsNotFound(notFound) {
		t.Error("IsNotFound = false, want true")
	}
	if polystore.IsUnsupported(notFound) {
		t.Error("IsUnsupported(NotFound) = true, want false")
	}
	if !polystore.IsUnsupported(polystore.NewError(polystore.KindUnsupported, "x")) {
		t.Error("IsUnsupported = false, want true")
	}
}
