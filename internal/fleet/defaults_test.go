package fleet

import (
	"errors"
	"testing"
)

func TestClassifyArchitecture(t *testing.T) {
	tests := []struct {
		category string
		want     Architecture
	}{
		{"arm_small", ArchARM64},
		{"arm_large", ArchARM64},
		{"x86_small", ArchAMD64},
		{"x86_large", ArchAMD64},
		{"anything_else", ArchAMD64},
	}
	for _, tt := range tests {
		if got := ClassifyArchitecture(tt.category); got != tt.want {
			t.Errorf("ClassifyArchitecture(%q) = %v, want %v", tt.category, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	tables := BuiltinDefaults()

	tests := []struct {
		name     string
		provider string
		category string
		override string
		want     Resolved
		wantErr  bool
	}{
		{
			name:     "aws arm small",
			provider: "aws",
			category: "arm_small",
			want:     Resolved{Image: "ami-0eac975a54dfee8cb", MachineType: "t4g.small"},
		},
		{
			name:     "gcp x86 medium",
			provider: "gcp",
			category: "x86_medium",
			want: Resolved{
				Image:       "projects/ubuntu-os-cloud/global/images/family/ubuntu-2404-lts-amd64",
				MachineType: "e2-medium",
			},
		},
		{
			name:     "override image wins",
			provider: "aws",
			category: "x86_small",
			override: "ami-custom",
			want:     Resolved{Image: "ami-custom", MachineType: "t3.small"},
		},
		{
			name:     "unknown category",
			provider: "aws",
			category: "quantum_large",
			wantErr:  true,
		},
		{
			name:     "unknown provider",
			provider: "oraclecloud",
			category: "x86_small",
			wantErr:  true,
		},
		{
			name:     "no arm on digitalocean",
			provider: "digitalocean",
			category: "arm_small",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tables.Resolve(tt.provider, tt.category, tt.override)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve() expected error, got %+v", got)
				}
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("Resolve() error = %T, want *ConfigurationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := BuiltinDefaults()
	override := DefaultTables{
		MachineTypes: map[string]map[string]string{
			"aws": {"x86_small": "t3a.small"},
		},
		Images: map[string]map[string]string{
			"aws": {"amd64": "ami-pinned"},
		},
	}

	merged := base.Merge(override)

	got, err := merged.Resolve("aws", "x86_small", "")
	if err != nil {
		t.Fatalf("Resolve() after merge: %v", err)
	}
	if got.MachineType != "t3a.small" || got.Image != "ami-pinned" {
		t.Errorf("merged Resolve() = %+v, want overridden values", got)
	}

	// Entries not overridden survive the merge.
	got, err = merged.Resolve("aws", "arm_small", "")
	if err != nil {
		t.Fatalf("Resolve() after merge: %v", err)
	}
	if got.MachineType != "t4g.small" {
		t.Errorf("merged Resolve() lost base entry: %+v", got)
	}

	// The base tables are untouched.
	got, err = base.Resolve("aws", "x86_small", "")
	if err != nil {
		t.Fatalf("Resolve() on base: %v", err)
	}
	if got.MachineType != "t3.small" {
		t.Errorf("Merge mutated the base tables: %+v", got)
	}
}
