package provisioning

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
)

// GCPProvisioner implements the Provisioner interface for Google Cloud
type GCPProvisioner struct {
	service   *compute.Service
	projectID string
}

// NewGCPProvisioner creates a new instance of GCPProvisioner
func NewGCPProvisioner(ctx context.Context, projectID string, credentialsFile string) (*GCPProvisioner, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	service, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute service: %w", err)
	}

	return &GCPProvisioner{
		service:   service,
		projectID: projectID,
	}, nil
}

// Create creates a new VM in GCP
func (p *GCPProvisioner) Create(ctx context.Context, spec InstanceSpec) (*Instance, error) {
	userData, err := GenerateCloudConfig(spec.Username, spec.SSHPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate cloud-config: %w", err)
	}

	iface := &compute.NetworkInterface{
		AccessConfigs: []*compute.AccessConfig{
			{
				Type: "ONE_TO_ONE_NAT",
				Name: "External NAT",
			},
		},
	}
	if spec.SubnetID != "" {
		iface.Subnetwork = spec.SubnetID
	} else {
		iface.Network = "global/networks/default"
	}

	rb := &compute.Instance{
		Name:         spec.Name,
		MachineType:  fmt.Sprintf("zones/%s/machineTypes/%s", spec.Zone, spec.MachineType),
		CanIpForward: false,
		Disks: []*compute.AttachedDisk{
			{
				AutoDelete: true,
				Boot:       true,
				Type:       "PERSISTENT",
				InitializeParams: &compute.AttachedDiskInitializeParams{
					SourceImage: spec.Image,
				},
			},
		},
		NetworkInterfaces: []*compute.NetworkInterface{iface},
		Metadata: &compute.Metadata{
			Items: []*compute.MetadataItems{
				{
					Key:   "user-data",
					Value: &userData,
				},
			},
		},
	}
	// GCP firewall rules match on network tags rather than group IDs
	if spec.SecurityGroupID != "" {
		rb.Tags = &compute.Tags{Items: []string{spec.SecurityGroupID}}
	}

	op, err := p.service.Instances.Insert(p.projectID, spec.Zone, rb).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert instance: %w", err)
	}

	if err := p.waitForOperation(ctx, op.Name, spec.Zone); err != nil {
		return nil, fmt.Errorf("operation failed: %w", err)
	}

	instance, err := p.service.Instances.Get(p.projectID, spec.Zone, spec.Name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	privateIP := ""
	publicIP := ""
	if len(instance.NetworkInterfaces) > 0 {
		privateIP = instance.NetworkInterfaces[0].NetworkIP
		if len(instance.NetworkInterfaces[0].AccessConfigs) > 0 {
			publicIP = instance.NetworkInterfaces[0].AccessConfigs[0].NatIP
		}
	}

	return &Instance{
		ID:        fmt.Sprintf("%d", instance.Id),
		Name:      instance.Name,
		PrivateIP: privateIP,
		PublicIP:  publicIP,
		Zone:      spec.Zone,
		Status:    instance.Status,
	}, nil
}

// Destroy deletes a VM by name in its zone
func (p *GCPProvisioner) Destroy(ctx context.Context, instance *Instance) error {
	op, err := p.service.Instances.Delete(p.projectID, instance.Zone, instance.Name).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to delete instance: %w", err)
	}
	if err := p.waitForOperation(ctx, op.Name, instance.Zone); err != nil {
		return fmt.Errorf("delete operation failed: %w", err)
	}
	return nil
}

// waitForOperation polls a zone operation until it reaches DONE
func (p *GCPProvisioner) waitForOperation(ctx context.Context, opName, zone string) error {
	for i := 0; i < 120; i++ {
		op, err := p.service.ZoneOperations.Get(p.projectID, zone, opName).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to get operation: %w", err)
		}

		if op.Status == "DONE" {
			if op.Error != nil && len(op.Error.Errors) > 0 {
				return fmt.Errorf("operation error: %s", op.Error.Errors[0].Message)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	return fmt.Errorf("timed out waiting for operation %s", opName)
}
