package vault

import (
	"strings"
	"testing"
)

func TestNewSecretPath(t *testing.T) {
	p := NewSecretPath("amoebius/ssh")
	if !strings.HasPrefix(p, "amoebius/ssh/") {
		t.Errorf("NewSecretPath() = %q, want amoebius/ssh/ prefix", p)
	}
	suffix := strings.TrimPrefix(p, "amoebius/ssh/")
	if suffix == "" || strings.Contains(suffix, "/") {
		t.Errorf("suffix = %q, want a single path segment", suffix)
	}
}

func TestNewSecretPathTrailingSlash(t *testing.T) {
	p := NewSecretPath("amoebius/ssh/")
	if strings.Contains(p, "//") {
		t.Errorf("NewSecretPath() = %q contains a double slash", p)
	}
}

func TestNewSecretPathUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p := NewSecretPath("prefix")
		if seen[p] {
			t.Fatalf("NewSecretPath() repeated %q", p)
		}
		seen[p] = true
	}
}
