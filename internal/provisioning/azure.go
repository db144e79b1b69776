package provisioning

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
)

// AzureProvisioner implements the Provisioner interface for Azure
type AzureProvisioner struct {
	vmClient      *armcompute.VirtualMachinesClient
	nicClient     *armnetwork.InterfacesClient
	pipClient     *armnetwork.PublicIPAddressesClient
	resourceGroup string
	location      string
}

// NewAzureProvisioner creates a new instance of AzureProvisioner using the
// default credential chain (env vars, managed identity, CLI).
func NewAzureProvisioner(subscriptionID, resourceGroup, location string) (*AzureProvisioner, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain azure credential: %w", err)
	}

	vmClient, err := armcompute.NewVirtualMachinesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create vm client: %w", err)
	}
	nicClient, err := armnetwork.NewInterfacesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create nic client: %w", err)
	}
	pipClient, err := armnetwork.NewPublicIPAddressesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create public ip client: %w", err)
	}

	return &AzureProvisioner{
		vmClient:      vmClient,
		nicClient:     nicClient,
		pipClient:     pipClient,
		resourceGroup: resourceGroup,
		location:      location,
	}, nil
}

// Create creates a public IP, a NIC and a VM, in that order, and waits for
// each to finish.
func (p *AzureProvisioner) Create(ctx context.Context, spec InstanceSpec) (*Instance, error) {
	userData, err := GenerateCloudConfig(spec.Username, spec.SSHPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate cloud-config: %w", err)
	}

	imageRef, err := parseImageReference(spec.Image)
	if err != nil {
		return nil, err
	}

	pipName := spec.Name + "-ip"
	pipPoller, err := p.pipClient.BeginCreateOrUpdate(ctx, p.resourceGroup, pipName, armnetwork.PublicIPAddress{
		Location: to.Ptr(p.location),
		Properties: &armnetwork.PublicIPAddressPropertiesFormat{
			PublicIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodStatic),
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create public ip: %w", err)
	}
	pip, err := pipPoller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("public ip creation failed: %w", err)
	}

	nicName := spec.Name + "-nic"
	nicProps := &armnetwork.InterfacePropertiesFormat{
		IPConfigurations: []*armnetwork.InterfaceIPConfiguration{
			{
				Name: to.Ptr("primary"),
				Properties: &armnetwork.InterfaceIPConfigurationPropertiesFormat{
					Subnet:                    &armnetwork.Subnet{ID: to.Ptr(spec.SubnetID)},
					PrivateIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodDynamic),
					PublicIPAddress:           &armnetwork.PublicIPAddress{ID: pip.ID},
				},
			},
		},
	}
	if spec.SecurityGroupID != "" {
		nicProps.NetworkSecurityGroup = &armnetwork.SecurityGroup{ID: to.Ptr(spec.SecurityGroupID)}
	}
	nicPoller, err := p.nicClient.BeginCreateOrUpdate(ctx, p.resourceGroup, nicName, armnetwork.Interface{
		Location:   to.Ptr(p.location),
		Properties: nicProps,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create nic: %w", err)
	}
	nic, err := nicPoller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("nic creation failed: %w", err)
	}

	vm := armcompute.VirtualMachine{
		Location: to.Ptr(p.location),
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: to.Ptr(armcompute.VirtualMachineSizeTypes(spec.MachineType)),
			},
			StorageProfile: &armcompute.StorageProfile{
				ImageReference: imageRef,
				OSDisk: &armcompute.OSDisk{
					CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesFromImage),
					DeleteOption: to.Ptr(armcompute.DiskDeleteOptionTypesDelete),
				},
			},
			OSProfile: &armcompute.OSProfile{
				ComputerName:  to.Ptr(spec.Name),
				AdminUsername: to.Ptr(spec.Username),
				CustomData:    to.Ptr(base64.StdEncoding.EncodeToString([]byte(userData))),
				LinuxConfiguration: &armcompute.LinuxConfiguration{
					DisablePasswordAuthentication: to.Ptr(true),
					SSH: &armcompute.SSHConfiguration{
						PublicKeys: []*armcompute.SSHPublicKey{
							{
								Path:    to.Ptr(fmt.Sprintf("/home/%s/.ssh/authorized_keys", spec.Username)),
								KeyData: to.Ptr(spec.SSHPublicKey),
							},
						},
					},
				},
			},
			NetworkProfile: &armcompute.NetworkProfile{
				NetworkInterfaces: []*armcompute.NetworkInterfaceReference{
					{
						ID: nic.ID,
						Properties: &armcompute.NetworkInterfaceReferenceProperties{
							Primary:      to.Ptr(true),
							DeleteOption: to.Ptr(armcompute.DeleteOptionsDelete),
						},
					},
				},
			},
		},
	}
	if spec.Zone != "" {
		vm.Zones = []*string{to.Ptr(spec.Zone)}
	}

	vmPoller, err := p.vmClient.BeginCreateOrUpdate(ctx, p.resourceGroup, spec.Name, vm, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create vm: %w", err)
	}
	if _, err := vmPoller.PollUntilDone(ctx, nil); err != nil {
		return nil, fmt.Errorf("vm creation failed: %w", err)
	}

	privateIP := ""
	if nic.Properties != nil && len(nic.Properties.IPConfigurations) > 0 {
		if props := nic.Properties.IPConfigurations[0].Properties; props != nil && props.PrivateIPAddress != nil {
			privateIP = *props.PrivateIPAddress
		}
	}
	publicIP := ""
	if pip.Properties != nil && pip.Properties.IPAddress != nil {
		publicIP = *pip.Properties.IPAddress
	}

	return &Instance{
		ID:        spec.Name,
		Name:      spec.Name,
		PrivateIP: privateIP,
		PublicIP:  publicIP,
		Zone:      spec.Zone,
		Status:    "running",
	}, nil
}

// Destroy deletes the VM; its NIC, OS disk and public IP are removed with it
// via their delete options.
func (p *AzureProvisioner) Destroy(ctx context.Context, instance *Instance) error {
	poller, err := p.vmClient.BeginDelete(ctx, p.resourceGroup, instance.Name, nil)
	if err != nil {
		return fmt.Errorf("failed to delete vm: %w", err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("vm deletion failed: %w", err)
	}

	// The public IP is not covered by a delete option; remove it explicitly.
	pipPoller, err := p.pipClient.BeginDelete(ctx, p.resourceGroup, instance.Name+"-ip", nil)
	if err != nil {
		return fmt.Errorf("failed to delete public ip: %w", err)
	}
	if _, err := pipPoller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("public ip deletion failed: %w", err)
	}
	return nil
}

// parseImageReference parses a "Publisher:Offer:SKU:Version" image URN.
func parseImageReference(urn string) (*armcompute.ImageReference, error) {
	parts := strings.Split(urn, ":")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid azure image urn %q, want Publisher:Offer:SKU:Version", urn)
	}
	return &armcompute.ImageReference{
		Publisher: to.Ptr(parts[0]),
		Offer:     to.Ptr(parts[1]),
		SKU:       to.Ptr(parts[2]),
		Version:   to.Ptr(parts[3]),
	}, nil
}
