package util

import "fmt"

// DefaultLogMaxLen caps provider response bodies quoted in logs and error
// strings. Full bodies still reach the caller through the error envelope.
const DefaultLogMaxLen = 512

// TruncateLog truncates long strings for log output, keeping the total size
// visible so the cut is obvious in diagnostics.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes is a convenience wrapper for TruncateLog that accepts []byte
// and uses DefaultLogMaxLen.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultLogMaxLen)
}
