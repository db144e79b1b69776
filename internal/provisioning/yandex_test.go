package provisioning

import "testing"

func TestParseYcMachineType(t *testing.T) {
	tests := []struct {
		input    string
		platform string
		cores    int64
		memoryGB int64
		wantErr  bool
	}{
		{input: "standard-v3-2-2", platform: "standard-v3", cores: 2, memoryGB: 2},
		{input: "standard-v3-2-4", platform: "standard-v3", cores: 2, memoryGB: 4},
		{input: "standard-v3-4-8", platform: "standard-v3", cores: 4, memoryGB: 8},
		{input: "standard-v2-8-32", platform: "standard-v2", cores: 8, memoryGB: 32},
		{input: "standard-v3", wantErr: true},
		{input: "standard-v3-x-4", wantErr: true},
		{input: "standard-v3-2-y", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			platform, cores, memoryGB, err := parseYcMachineType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseYcMachineType(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseYcMachineType(%q): %v", tt.input, err)
			}
			if platform != tt.platform || cores != tt.cores || memoryGB != tt.memoryGB {
				t.Errorf("parseYcMachineType(%q) = %q, %d, %d; want %q, %d, %d",
					tt.input, platform, cores, memoryGB, tt.platform, tt.cores, tt.memoryGB)
			}
		})
	}
}
