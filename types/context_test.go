package types

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if _, ok := CallerID(ctx); ok {
		t.Fatalf("expected no caller on empty context")
	}

	ctx = WithTenantID(ctx, "tenant")
	if got, ok := TenantID(ctx); !ok || got != "tenant" {
		t.Fatalf("TenantID mismatch: %v %v", got, ok)
	}

	ctx = WithCallerID(ctx, "user-1")
	if got, ok := CallerID(ctx); !ok || got != "user-1" {
		t.Fatalf("CallerID mismatch: %v %v", got, ok)
	}

	ctx = WithRoles(ctx, []string{"tuner"})
	if got, ok := Roles(ctx); !ok || got[0] != "tuner" {
		t.Fatalf("Roles mismatch: %v %v", got, ok)
	}
}

func TestCallerID_EmptyStringIsAnonymous(t *testing.T) {
	t.Parallel()

	ctx := WithCallerID(context.Background(), "")
	if _, ok := CallerID(ctx); ok {
		t.Fatalf("empty caller id must not count as authenticated")
	}
}
