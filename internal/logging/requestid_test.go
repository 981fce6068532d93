package logging

import (
	"context"
	"testing"
)

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	if len(id) != 12 {
		t.Errorf("GenerateRequestID() length = %d, want 12", len(id))
	}
	if id == GenerateRequestID() {
		t.Errorf("GenerateRequestID() generated duplicate IDs: %s", id)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID(empty context) = %q, want empty string", got)
	}

	ctx = WithRequestID(ctx, "abc123def456")
	if got := GetRequestID(ctx); got != "abc123def456" {
		t.Errorf("GetRequestID() = %q, want abc123def456", got)
	}
}
