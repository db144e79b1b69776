package fleet

// InstanceResult is the per-instance outcome of a fully successful pipeline:
// created, reachable and with its credential stored.
type InstanceResult struct {
	GroupName  string `json:"group_name"`
	Name       string `json:"name"`
	PrivateIP  string `json:"private_ip"`
	PublicIP   string `json:"public_ip"`
	SecretPath string `json:"secret_path"`
}

// GroupedResult maps a group name to its instances in insertion order.
type GroupedResult map[string][]InstanceResult

// Aggregate groups fully provisioned instances by group name. Results are
// appended in input order, so per-group ordering follows insertion order.
// Instances that failed any pipeline stage must not be passed in; there is
// no partial-success entry.
func Aggregate(results []InstanceResult) GroupedResult {
	grouped := make(GroupedResult)
	for _, r := range results {
		grouped[r.GroupName] = append(grouped[r.GroupName], r)
	}
	return grouped
}
