package provisioning

import "context"

// InstanceSpec represents the specification for creating a VM
type InstanceSpec struct {
	Name            string
	Image           string
	MachineType     string
	Zone            string
	SubnetID        string
	SecurityGroupID string
	SSHPublicKey    string
	Username        string
}

// Instance contains information about a created VM. Instances are immutable
// once returned by Create.
type Instance struct {
	ID        string
	Name      string
	PrivateIP string
	PublicIP  string
	Zone      string
	Status    string
}

// Provisioner defines the per-cloud boundary for managing virtual machines.
// Failures (quota exhaustion, unknown image or machine type, API errors) are
// fatal; retry policy belongs to the caller's orchestration, not here.
type Provisioner interface {
	Create(ctx context.Context, spec InstanceSpec) (*Instance, error)
	Destroy(ctx context.Context, instance *Instance) error
}
