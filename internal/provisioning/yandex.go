package provisioning

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yandex-cloud/go-genproto/yandex/cloud/compute/v1"
	ycsdk "github.com/yandex-cloud/go-sdk"
)

// YcProvisioner implements the Provisioner interface for Yandex Cloud
type YcProvisioner struct {
	sdk      *ycsdk.SDK
	folderID string
}

// NewYcProvisioner creates a new instance of YcProvisioner
func NewYcProvisioner(iamToken, folderID string) (*YcProvisioner, error) {
	ctx := context.Background()

	sdk, err := ycsdk.Build(ctx, ycsdk.Config{
		Credentials: ycsdk.NewIAMTokenCredentials(iamToken),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SDK: %w", err)
	}

	return &YcProvisioner{
		sdk:      sdk,
		folderID: folderID,
	}, nil
}

// Create creates a new VM in Yandex Cloud
func (p *YcProvisioner) Create(ctx context.Context, spec InstanceSpec) (*Instance, error) {
	userData, err := GenerateCloudConfig(spec.Username, spec.SSHPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate cloud-config: %w", err)
	}

	platform, cores, memoryGB, err := parseYcMachineType(spec.MachineType)
	if err != nil {
		return nil, err
	}

	request := &compute.CreateInstanceRequest{
		FolderId:   p.folderID,
		Name:       spec.Name,
		ZoneId:     spec.Zone,
		PlatformId: platform,
		ResourcesSpec: &compute.ResourcesSpec{
			Cores:  cores,
			Memory: memoryGB * 1024 * 1024 * 1024,
		},
		BootDiskSpec: &compute.AttachedDiskSpec{
			AutoDelete: true,
			Disk: &compute.AttachedDiskSpec_DiskSpec_{
				DiskSpec: &compute.AttachedDiskSpec_DiskSpec{
					TypeId: "network-ssd",
					Size:   20 * 1024 * 1024 * 1024,
					Source: &compute.AttachedDiskSpec_DiskSpec_ImageId{
						ImageId: spec.Image,
					},
				},
			},
		},
		NetworkInterfaceSpecs: []*compute.NetworkInterfaceSpec{
			{
				SubnetId: spec.SubnetID,
				PrimaryV4AddressSpec: &compute.PrimaryAddressSpec{
					OneToOneNatSpec: &compute.OneToOneNatSpec{
						IpVersion: compute.IpVersion_IPV4,
					},
				},
			},
		},
		Metadata: map[string]string{
			"user-data": userData,
		},
	}

	pop, err := p.sdk.Compute().Instance().Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to create VM: %w", err)
	}

	op, err := p.sdk.WrapOperation(pop, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap operation: %w", err)
	}

	if err := op.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for operation: %w", err)
	}

	resp, err := op.Response()
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}

	instance := resp.(*compute.Instance)

	privateIP := ""
	publicIP := ""
	if len(instance.NetworkInterfaces) > 0 {
		if addr := instance.NetworkInterfaces[0].PrimaryV4Address; addr != nil {
			privateIP = addr.Address
			if addr.OneToOneNat != nil {
				publicIP = addr.OneToOneNat.Address
			}
		}
	}

	return &Instance{
		ID:        instance.Id,
		Name:      instance.Name,
		PrivateIP: privateIP,
		PublicIP:  publicIP,
		Zone:      instance.ZoneId,
		Status:    instance.Status.String(),
	}, nil
}

// Destroy deletes a VM by ID
func (p *YcProvisioner) Destroy(ctx context.Context, instance *Instance) error {
	pop, err := p.sdk.Compute().Instance().Delete(ctx, &compute.DeleteInstanceRequest{
		InstanceId: instance.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete VM: %w", err)
	}

	op, err := p.sdk.WrapOperation(pop, nil)
	if err != nil {
		return fmt.Errorf("failed to wrap operation: %w", err)
	}

	if err := op.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for operation: %w", err)
	}

	return nil
}

// parseYcMachineType splits a "<platform>-<cores>-<memoryGB>" machine type
// (e.g. "standard-v3-2-4") into its parts. Yandex has no named machine
// types, so the default tables encode platform and resources in one string.
func parseYcMachineType(machineType string) (platform string, cores, memoryGB int64, err error) {
	parts := strings.Split(machineType, "-")
	if len(parts) < 3 {
		return "", 0, 0, fmt.Errorf("invalid yandex machine type %q, want <platform>-<cores>-<memoryGB>", machineType)
	}

	memoryGB, err = strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid memory in machine type %q: %w", machineType, err)
	}
	cores, err = strconv.ParseInt(parts[len(parts)-2], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid cores in machine type %q: %w", machineType, err)
	}
	platform = strings.Join(parts[:len(parts)-2], "-")
	return platform, cores, memoryGB, nil
}
