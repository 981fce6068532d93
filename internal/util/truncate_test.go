package util

import (
	"strings"
	"testing"
)

func TestTruncateLog_ShortString(t *testing.T) {
	input := "short log"
	if got := TruncateLog(input, DefaultLogMaxLen); got != input {
		t.Errorf("short strings must pass through, got %q", got)
	}
}

func TestTruncateLog_ExactLimit(t *testing.T) {
	input := strings.Repeat("x", 20)
	if got := TruncateLog(input, 20); got != input {
		t.Errorf("strings at the limit must pass through, got %q", got)
	}
}

func TestTruncateLog_LongString(t *testing.T) {
	input := "1234567890abcdefghij"
	got := TruncateLog(input, 10)
	if got != "1234567890... [truncated, 20 bytes total]" {
		t.Errorf("TruncateLog() = %q", got)
	}
}

func TestTruncateBytes(t *testing.T) {
	input := make([]byte, DefaultLogMaxLen*2)
	for i := range input {
		input[i] = 'y'
	}
	got := TruncateBytes(input)
	if !strings.HasPrefix(got, strings.Repeat("y", DefaultLogMaxLen)) {
		t.Error("expected first DefaultLogMaxLen bytes preserved")
	}
	if !strings.Contains(got, "truncated") {
		t.Error("expected truncation marker")
	}
}
