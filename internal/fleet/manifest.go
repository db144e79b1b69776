package fleet

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// NetworkRefs are the network references supplied by the surrounding network
// provisioning: one subnet per zone and a security-group reference.
type NetworkRefs struct {
	SecurityGroup string            `yaml:"security_group"`
	Subnets       map[string]string `yaml:"subnets"`
}

// Manifest declares the fleet: instance groups, placement zones and network
// references.
type Manifest struct {
	Groups  []InstanceGroup `yaml:"groups"`
	Zones   []string        `yaml:"zones"`
	Network NetworkRefs     `yaml:"network"`
}

// manifestWrapper allows manifests with a "fleet:" root key
type manifestWrapper struct {
	Fleet Manifest `yaml:"fleet"`
}

// ParseManifest parses a fleet manifest, accepting either a bare manifest or
// one nested under a "fleet:" root key.
func ParseManifest(data []byte) (*Manifest, error) {
	var wrapper manifestWrapper
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse fleet manifest: %w", err)
	}

	m := wrapper.Fleet
	if len(m.Groups) == 0 && len(m.Zones) == 0 {
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse fleet manifest (direct): %w", err)
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for malformed group declarations. An empty
// group list or zone list is valid; negative counts and duplicate or empty
// group names are not.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Groups))
	for _, g := range m.Groups {
		if g.Name == "" {
			return NewConfigurationError("group with empty name")
		}
		if g.Category == "" {
			return NewConfigurationError("group %q has no category", g.Name)
		}
		if g.CountPerZone < 0 {
			return NewConfigurationError("group %q has negative count_per_zone %d", g.Name, g.CountPerZone)
		}
		if seen[g.Name] {
			return NewConfigurationError("duplicate group name %q", g.Name)
		}
		seen[g.Name] = true
	}
	return nil
}
