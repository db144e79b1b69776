package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalocean/godo"
)

// DOProvisioner implements the Provisioner interface for DigitalOcean
type DOProvisioner struct {
	client *godo.Client
}

// NewDOProvisioner creates a new instance of DOProvisioner
func NewDOProvisioner(token string) (*DOProvisioner, error) {
	client := godo.NewFromToken(token)
	return &DOProvisioner{
		client: client,
	}, nil
}

// Create creates a new droplet in DigitalOcean
func (p *DOProvisioner) Create(ctx context.Context, spec InstanceSpec) (*Instance, error) {
	userData, err := GenerateCloudConfig(spec.Username, spec.SSHPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate cloud-config: %w", err)
	}

	createRequest := &godo.DropletCreateRequest{
		Name:   spec.Name,
		Region: spec.Zone,
		Size:   spec.MachineType,
		Image: godo.DropletCreateImage{
			Slug: spec.Image,
		},
		UserData: userData,
	}
	// Droplets join the VPC that owns the subnet reference
	if spec.SubnetID != "" {
		createRequest.VPCUUID = spec.SubnetID
	}
	if spec.SecurityGroupID != "" {
		createRequest.Tags = []string{spec.SecurityGroupID}
	}

	droplet, _, err := p.client.Droplets.Create(ctx, createRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to create droplet: %w", err)
	}

	// Wait for droplet to be active
	for i := 0; i < 60; i++ {
		d, _, err := p.client.Droplets.Get(ctx, droplet.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get droplet: %w", err)
		}

		if d.Status == "active" {
			publicIP, _ := d.PublicIPv4()
			privateIP, _ := d.PrivateIPv4()
			return &Instance{
				ID:        fmt.Sprintf("%d", d.ID),
				Name:      d.Name,
				PrivateIP: privateIP,
				PublicIP:  publicIP,
				Zone:      d.Region.Slug,
				Status:    d.Status,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}

	return nil, fmt.Errorf("timed out waiting for droplet to be active")
}

// Destroy deletes a droplet by ID
func (p *DOProvisioner) Destroy(ctx context.Context, instance *Instance) error {
	id := 0
	if _, err := fmt.Sscanf(instance.ID, "%d", &id); err != nil {
		return fmt.Errorf("invalid instance ID: %w", err)
	}

	if _, err := p.client.Droplets.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete droplet: %w", err)
	}
	return nil
}
