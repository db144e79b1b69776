package logging

import "strconv"

// MaxLogFieldLength is the maximum length of a string field before truncation.
// Secret-store responses and cloud-init payloads can be large; log fields
// must stay bounded.
const MaxLogFieldLength = 256

// Truncate truncates a string to MaxLogFieldLength, appending "..." if cut.
func Truncate(s string) string {
	return TruncateN(s, MaxLogFieldLength)
}

// TruncateN truncates a string to n characters, appending "..." if cut.
func TruncateN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// TruncateSlice limits a slice to maxItems entries, replacing the tail with
// a single "... and N more" marker.
func TruncateSlice(items []string, maxItems int) []string {
	if len(items) <= maxItems {
		return items
	}
	result := make([]string, 0, maxItems+1)
	result = append(result, items[:maxItems]...)
	result = append(result, "... and "+strconv.Itoa(len(items)-maxItems)+" more")
	return result
}
