package fleet

import "fmt"

// InstanceGroup is a named declaration of homogeneous instances: an abstract
// size category, a per-zone count and an optional image override.
type InstanceGroup struct {
	Name         string `yaml:"name"`
	Category     string `yaml:"category"`
	CountPerZone int    `yaml:"count_per_zone"`
	Image        string `yaml:"image,omitempty"`
}

// ExpandedInstance is one concrete instance derived from a group declaration.
// Key is a deterministic function of (group, zone, index), stable across
// re-runs of the same manifest.
type ExpandedInstance struct {
	Key       string
	GroupName string
	Zone      string
	Index     int
	Category  string
	Image     string
}

// InstanceKey derives the stable identity of one instance within a run.
func InstanceKey(group, zone string, index int) string {
	return fmt.Sprintf("%s_%s_%d", group, zone, index)
}

// Expand flattens group declarations into per-zone, per-index instances.
// Ordering is deterministic: group order, then zone order, then index order.
// A zero count or an empty zone list yields zero instances and is not an
// error.
func Expand(groups []InstanceGroup, zones []string) []ExpandedInstance {
	var expanded []ExpandedInstance
	for _, g := range groups {
		for _, zone := range zones {
			for i := 0; i < g.CountPerZone; i++ {
				expanded = append(expanded, ExpandedInstance{
					Key:       InstanceKey(g.Name, zone, i),
					GroupName: g.Name,
					Zone:      zone,
					Index:     i,
					Category:  g.Category,
					Image:     g.Image,
				})
			}
		}
	}
	return expanded
}
