package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapErrorReadPathCategories(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		notFound    bool
		unavailable bool
	}{
		{"missing document", status.Error(codes.NotFound, "no such document"), true, false},
		{"backend outage", status.Error(codes.Unavailable, "transport closing"), false, true},
		{"denied read", status.Error(codes.PermissionDenied, "missing scope"), false, true},
		{"plain error", errors.New("connection refused"), false, true},
	}
	for _, tc := range cases {
		wrapped := WrapError("catalog.get", tc.err)

		var repoErr *Error
		if !errors.As(wrapped, &repoErr) {
			t.Fatalf("%s: expected *Error, got %T", tc.name, wrapped)
		}
		if repoErr.IsNotFound() != tc.notFound {
			t.Fatalf("%s: IsNotFound = %v", tc.name, repoErr.IsNotFound())
		}
		if repoErr.IsUnavailable() != tc.unavailable {
			t.Fatalf("%s: IsUnavailable = %v", tc.name, repoErr.IsUnavailable())
		}
		if repoErr.IsConflict() {
			t.Fatalf("%s: reads cannot conflict", tc.name)
		}
	}
}

func TestWrapErrorPassesContextErrors(t *testing.T) {
	if err := WrapError("catalog.get", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("catalog.get", status.Error(codes.DeadlineExceeded, "deadline")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if err := WrapError("catalog.get", nil); err != nil {
		t.Fatalf("nil passes through, got %v", err)
	}
}
