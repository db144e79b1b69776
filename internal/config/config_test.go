package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amoebius.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func clearVaultEnv(t *testing.T) {
	t.Helper()
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("VAULT_TOKEN", "")
	os.Unsetenv("VAULT_ADDR")
	os.Unsetenv("VAULT_TOKEN")
}

func TestLoad(t *testing.T) {
	clearVaultEnv(t)
	writeConfig(t, `
provider: aws
vault:
  addr: "https://vault.example.com:8200"
  token: "s.token"
  verify_tls: true
aws:
  region: us-east-1
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if cfg.Provider != ProviderAWS {
		t.Errorf("Provider = %q, want aws", cfg.Provider)
	}
	if cfg.AWS == nil || cfg.AWS.Region != "us-east-1" {
		t.Errorf("AWS section = %+v", cfg.AWS)
	}

	// Defaults fill in everything unset.
	if cfg.SSHUser != "amoebius" || cfg.SSHPort != 22 {
		t.Errorf("SSH defaults = %q:%d", cfg.SSHUser, cfg.SSHPort)
	}
	if cfg.ReachabilityTimeout != 300 {
		t.Errorf("ReachabilityTimeout = %d, want 300", cfg.ReachabilityTimeout)
	}
	if cfg.MaxWorkers != 5 {
		t.Errorf("MaxWorkers = %d, want 5", cfg.MaxWorkers)
	}
	if cfg.Vault.Mount != "secret" || cfg.Vault.Role != "amoebius-ssh" {
		t.Errorf("vault defaults = %+v", cfg.Vault)
	}
	if cfg.Vault.PathPrefix != "amoebius/ssh" {
		t.Errorf("PathPrefix = %q", cfg.Vault.PathPrefix)
	}
	if cfg.State.Path != "amoebius-state.json" {
		t.Errorf("state path = %q", cfg.State.Path)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing provider",
			content: `
vault:
  addr: "https://vault.example.com:8200"
  token: "s.token"
`,
		},
		{
			name:    "missing vault addr",
			content: `provider: aws`,
		},
		{
			name: "missing vault token",
			content: `
provider: aws
vault:
  addr: "https://vault.example.com:8200"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearVaultEnv(t)
			writeConfig(t, tt.content)
			if _, err := Load(); err == nil {
				t.Errorf("Load() expected validation error")
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	writeConfig(t, `
provider: aws
vault:
  addr: "https://stale.example.com"
  token: "stale"
`)
	t.Setenv("VAULT_ADDR", "https://fresh.example.com:8200")
	t.Setenv("VAULT_TOKEN", "s.fresh")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if cfg.Vault.Addr != "https://fresh.example.com:8200" {
		t.Errorf("Vault.Addr = %q, env override lost", cfg.Vault.Addr)
	}
	if cfg.Vault.Token != "s.fresh" {
		t.Errorf("Vault.Token = %q, env override lost", cfg.Vault.Token)
	}
	if cfg.AWS == nil || cfg.AWS.Region != "eu-west-1" {
		t.Errorf("AWS.Region env override lost: %+v", cfg.AWS)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	clearVaultEnv(t)
	t.Setenv("MY_VAULT_TOKEN", "s.expanded")
	writeConfig(t, `
provider: aws
vault:
  addr: "https://vault.example.com:8200"
  token: "${MY_VAULT_TOKEN}"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if cfg.Vault.Token != "s.expanded" {
		t.Errorf("Vault.Token = %q, want expanded env value", cfg.Vault.Token)
	}
}

func TestDefaultTablesParsed(t *testing.T) {
	clearVaultEnv(t)
	writeConfig(t, `
provider: aws
vault:
  addr: "https://vault.example.com:8200"
  token: "s.token"
defaults:
  machine_types:
    aws:
      x86_small: t3a.small
  images:
    aws:
      amd64: ami-pinned
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	if got := cfg.Defaults.MachineTypes["aws"]["x86_small"]; got != "t3a.small" {
		t.Errorf("machine type override = %q, want t3a.small", got)
	}
	if got := cfg.Defaults.Images["aws"]["amd64"]; got != "ami-pinned" {
		t.Errorf("image override = %q, want ami-pinned", got)
	}
}
