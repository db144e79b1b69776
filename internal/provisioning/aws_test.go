package provisioning

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

func TestRunningInstance(t *testing.T) {
	running := types.Instance{
		InstanceId:      aws.String("i-abc"),
		State:           &types.InstanceState{Name: types.InstanceStateNameRunning},
		PublicIpAddress: aws.String("203.0.113.1"),
	}

	tests := []struct {
		name string
		desc *ec2.DescribeInstancesOutput
		want bool
	}{
		{
			name: "no reservations yet",
			desc: &ec2.DescribeInstancesOutput{},
			want: false,
		},
		{
			name: "reservation without instances",
			desc: &ec2.DescribeInstancesOutput{
				Reservations: []types.Reservation{{}},
			},
			want: false,
		},
		{
			name: "still pending",
			desc: &ec2.DescribeInstancesOutput{
				Reservations: []types.Reservation{{
					Instances: []types.Instance{{
						State: &types.InstanceState{Name: types.InstanceStateNamePending},
					}},
				}},
			},
			want: false,
		},
		{
			name: "running without public IP",
			desc: &ec2.DescribeInstancesOutput{
				Reservations: []types.Reservation{{
					Instances: []types.Instance{{
						State: &types.InstanceState{Name: types.InstanceStateNameRunning},
					}},
				}},
			},
			want: false,
		},
		{
			name: "running with public IP",
			desc: &ec2.DescribeInstancesOutput{
				Reservations: []types.Reservation{{
					Instances: []types.Instance{running},
				}},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, ok := runningInstance(tt.desc)
			if ok != tt.want {
				t.Errorf("runningInstance() ok = %v, want %v", ok, tt.want)
			}
			if ok && aws.ToString(inst.InstanceId) != "i-abc" {
				t.Errorf("runningInstance() id = %q, want i-abc", aws.ToString(inst.InstanceId))
			}
		})
	}
}
