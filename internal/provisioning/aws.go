package provisioning

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// AWSProvisioner implements the Provisioner interface for AWS
type AWSProvisioner struct {
	client *ec2.Client
}

// NewAWSProvisioner creates a new instance of AWSProvisioner
func NewAWSProvisioner(ctx context.Context, region, accessKey, secretKey string) (*AWSProvisioner, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSProvisioner{client: ec2.NewFromConfig(cfg)}, nil
}

// Create creates a new EC2 instance
func (p *AWSProvisioner) Create(ctx context.Context, spec InstanceSpec) (*Instance, error) {
	userData, err := GenerateCloudConfig(spec.Username, spec.SSHPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate cloud-config: %w", err)
	}
	encodedUserData := base64.StdEncoding.EncodeToString([]byte(userData))

	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(spec.Image),
		InstanceType: types.InstanceType(spec.MachineType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		UserData:     aws.String(encodedUserData),
		Placement: &types.Placement{
			AvailabilityZone: aws.String(spec.Zone),
		},
		NetworkInterfaces: []types.InstanceNetworkInterfaceSpecification{
			{
				DeviceIndex:              aws.Int32(0),
				SubnetId:                 aws.String(spec.SubnetID),
				Groups:                   []string{spec.SecurityGroupID},
				AssociatePublicIpAddress: aws.Bool(true),
			},
		},
		TagSpecifications: []types.TagSpecification{
			{
				ResourceType: types.ResourceTypeInstance,
				Tags: []types.Tag{
					{Key: aws.String("Name"), Value: aws.String(spec.Name)},
				},
			},
		},
	}

	output, err := p.client.RunInstances(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run instance: %w", err)
	}

	instanceID := output.Instances[0].InstanceId

	// Wait for instance to be running and hold a public IP
	for i := 0; i < 60; i++ {
		desc, err := p.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			InstanceIds: []string{*instanceID},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe instance: %w", err)
		}

		if inst, ok := runningInstance(desc); ok {
			return &Instance{
				ID:        *inst.InstanceId,
				Name:      spec.Name,
				PrivateIP: aws.ToString(inst.PrivateIpAddress),
				PublicIP:  aws.ToString(inst.PublicIpAddress),
				Zone:      aws.ToString(inst.Placement.AvailabilityZone),
				Status:    string(inst.State.Name),
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}

	return nil, fmt.Errorf("timed out waiting for instance to be running")
}

// runningInstance extracts the described instance once it is running with a
// public address. DescribeInstances can briefly return no reservations for a
// freshly launched instance, so missing entries mean "poll again", not panic.
func runningInstance(desc *ec2.DescribeInstancesOutput) (*types.Instance, bool) {
	if len(desc.Reservations) == 0 || len(desc.Reservations[0].Instances) == 0 {
		return nil, false
	}
	inst := desc.Reservations[0].Instances[0]
	if inst.State == nil || inst.State.Name != types.InstanceStateNameRunning || inst.PublicIpAddress == nil {
		return nil, false
	}
	return &inst, true
}

// Destroy terminates an EC2 instance
func (p *AWSProvisioner) Destroy(ctx context.Context, instance *Instance) error {
	_, err := p.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instance.ID},
	})
	if err != nil {
		return fmt.Errorf("failed to terminate instance: %w", err)
	}
	return nil
}
