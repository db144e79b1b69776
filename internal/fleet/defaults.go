package fleet

import "strings"

// Architecture is the CPU architecture implied by an instance category.
type Architecture string

const (
	ArchARM64 Architecture = "arm64"
	ArchAMD64 Architecture = "amd64"
)

// ClassifyArchitecture maps a category tag to its architecture. Categories
// beginning with "arm" are arm64; everything else is the amd64 baseline.
func ClassifyArchitecture(category string) Architecture {
	if strings.HasPrefix(category, "arm") {
		return ArchARM64
	}
	return ArchAMD64
}

// DefaultTables holds the provider default lookup tables. They are loaded
// from configuration so environments can pin their own machine types and
// images without a rebuild; BuiltinDefaults supplies the shipped values.
type DefaultTables struct {
	// MachineTypes: provider -> category -> concrete machine type.
	MachineTypes map[string]map[string]string `yaml:"machine_types"`
	// Images: provider -> architecture -> default image reference.
	Images map[string]map[string]string `yaml:"images"`
}

// Resolved is the concrete image and machine type chosen for one instance.
type Resolved struct {
	Image       string
	MachineType string
}

// Resolve picks the machine type for (provider, category) and the image for
// (provider, architecture), honoring a non-empty image override. An unknown
// provider or category is a ConfigurationError; Resolve never falls back to
// a sentinel value.
func (t DefaultTables) Resolve(provider, category, overrideImage string) (Resolved, error) {
	types, ok := t.MachineTypes[provider]
	if !ok {
		return Resolved{}, NewConfigurationError("no machine types configured for provider %q", provider)
	}
	machineType, ok := types[category]
	if !ok {
		return Resolved{}, NewConfigurationError("unknown category %q for provider %q", category, provider)
	}

	image := overrideImage
	if image == "" {
		arch := ClassifyArchitecture(category)
		images, ok := t.Images[provider]
		if !ok {
			return Resolved{}, NewConfigurationError("no default images configured for provider %q", provider)
		}
		image, ok = images[string(arch)]
		if !ok {
			return Resolved{}, NewConfigurationError("no default %s image for provider %q", arch, provider)
		}
	}

	return Resolved{Image: image, MachineType: machineType}, nil
}

// Merge overlays non-empty entries from other onto a copy of t. Used to
// apply config-file overrides on top of the builtin tables.
func (t DefaultTables) Merge(other DefaultTables) DefaultTables {
	merged := DefaultTables{
		MachineTypes: make(map[string]map[string]string, len(t.MachineTypes)),
		Images:       make(map[string]map[string]string, len(t.Images)),
	}
	copyTable(merged.MachineTypes, t.MachineTypes)
	copyTable(merged.MachineTypes, other.MachineTypes)
	copyTable(merged.Images, t.Images)
	copyTable(merged.Images, other.Images)
	return merged
}

func copyTable(dst, src map[string]map[string]string) {
	for provider, entries := range src {
		if dst[provider] == nil {
			dst[provider] = make(map[string]string, len(entries))
		}
		for k, v := range entries {
			dst[provider][k] = v
		}
	}
}

// BuiltinDefaults returns the shipped default tables for the supported
// providers and categories.
func BuiltinDefaults() DefaultTables {
	return DefaultTables{
		MachineTypes: map[string]map[string]string{
			"aws": {
				"arm_small":  "t4g.small",
				"arm_medium": "t4g.medium",
				"arm_large":  "t4g.large",
				"x86_small":  "t3.small",
				"x86_medium": "t3.medium",
				"x86_large":  "t3.large",
			},
			"azure": {
				"arm_small":  "Standard_D2ps_v5",
				"arm_medium": "Standard_D4ps_v5",
				"arm_large":  "Standard_D8ps_v5",
				"x86_small":  "Standard_D2s_v5",
				"x86_medium": "Standard_D4s_v5",
				"x86_large":  "Standard_D8s_v5",
			},
			"gcp": {
				"arm_small":  "t2a-standard-1",
				"arm_medium": "t2a-standard-2",
				"arm_large":  "t2a-standard-4",
				"x86_small":  "e2-small",
				"x86_medium": "e2-medium",
				"x86_large":  "e2-standard-4",
			},
			"digitalocean": {
				"x86_small":  "s-1vcpu-2gb",
				"x86_medium": "s-2vcpu-4gb",
				"x86_large":  "s-4vcpu-8gb",
			},
			"yandex": {
				"x86_small":  "standard-v3-2-2",
				"x86_medium": "standard-v3-2-4",
				"x86_large":  "standard-v3-4-8",
			},
		},
		Images: map[string]map[string]string{
			"aws": {
				"arm64": "ami-0eac975a54dfee8cb",
				"amd64": "ami-053b0d53c279acc90",
			},
			"azure": {
				"arm64": "Canonical:ubuntu-24_04-lts:server-arm64:latest",
				"amd64": "Canonical:ubuntu-24_04-lts:server:latest",
			},
			"gcp": {
				"arm64": "projects/ubuntu-os-cloud/global/images/family/ubuntu-2404-lts-arm64",
				"amd64": "projects/ubuntu-os-cloud/global/images/family/ubuntu-2404-lts-amd64",
			},
			"digitalocean": {
				"amd64": "ubuntu-24-04-x64",
			},
			"yandex": {
				"amd64": "fd8emvfmfoaordspe1jr",
			},
		},
	}
}
