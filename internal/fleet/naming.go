package fleet

import (
	"regexp"
	"strings"
)

// maxNameLength is the longest resource name accepted by all supported
// providers (the GCE limit, which is the strictest).
const maxNameLength = 63

// fillerLetter is prepended when a candidate does not start with a letter.
const fillerLetter = "x"

var (
	illegalChars  = regexp.MustCompile(`[^a-z0-9-]`)
	legalNameExpr = regexp.MustCompile(`^[a-z][a-z0-9-]{0,62}$`)
)

// Sanitize turns a raw candidate string into a provider-legal resource name.
// The pipeline is fixed and order-significant:
//
//  1. lowercase, underscores become hyphens
//  2. strip every character outside [a-z0-9-]
//  3. prepend a filler letter if the result does not start with a letter
//  4. truncate to 63 characters
//  5. drop trailing hyphens
//
// Sanitize is idempotent: re-sanitizing a legal name is a no-op. Distinct
// inputs can collide on the same output; callers that need uniqueness must
// check for collisions themselves.
func Sanitize(raw string) string {
	name := lowercaseHyphenate(raw)
	name = stripIllegal(name)
	name = ensureLeadingLetter(name)
	name = truncateName(name)
	return trimTrailingHyphen(name)
}

// IsLegalName reports whether a name already satisfies the provider-legal
// form produced by Sanitize.
func IsLegalName(name string) bool {
	return legalNameExpr.MatchString(name) && !strings.HasSuffix(name, "-")
}

func lowercaseHyphenate(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", "-")
}

func stripIllegal(s string) string {
	return illegalChars.ReplaceAllString(s, "")
}

func ensureLeadingLetter(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return fillerLetter + s
	}
	return s
}

func truncateName(s string) string {
	if len(s) > maxNameLength {
		return s[:maxNameLength]
	}
	return s
}

// trimTrailingHyphen removes trailing hyphens left by stripping or
// truncation. The stage 3 filler letter guarantees this never empties the
// name.
func trimTrailingHyphen(s string) string {
	return strings.TrimRight(s, "-")
}
