package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Supported provider identifiers.
const (
	ProviderAWS          = "aws"
	ProviderAzure        = "azure"
	ProviderGCP          = "gcp"
	ProviderDigitalOcean = "digitalocean"
	ProviderYandex       = "yandex"
)

// VaultConfig holds the secret-store connection parameters.
type VaultConfig struct {
	Addr       string `yaml:"addr"`
	Token      string `yaml:"token"`
	Mount      string `yaml:"mount"`
	Role       string `yaml:"role"`
	PathPrefix string `yaml:"path_prefix"`
	VerifyTLS  bool   `yaml:"verify_tls"`
}

// StateConfig selects where run state (live instances and their secret
// paths) is persisted.
type StateConfig struct {
	Path          string   `yaml:"path"`
	EtcdEndpoints []string `yaml:"etcd_endpoints"`
}

// AWSConfig holds AWS connection parameters.
type AWSConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// GCPConfig holds Google Cloud connection parameters.
type GCPConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// AzureConfig holds Azure connection parameters.
type AzureConfig struct {
	SubscriptionID string `yaml:"subscription_id"`
	ResourceGroup  string `yaml:"resource_group"`
	Location       string `yaml:"location"`
}

// DigitalOceanConfig holds DigitalOcean connection parameters.
type DigitalOceanConfig struct {
	Token string `yaml:"token"`
}

// YandexConfig holds Yandex Cloud connection parameters.
type YandexConfig struct {
	IAMToken string `yaml:"iam_token"`
	FolderID string `yaml:"folder_id"`
}

// DefaultTables holds provider default override tables as plain maps. The
// fleet layer merges them over its builtin tables at wiring time.
type DefaultTables struct {
	// MachineTypes: provider -> category -> concrete machine type.
	MachineTypes map[string]map[string]string `yaml:"machine_types"`
	// Images: provider -> architecture -> default image reference.
	Images map[string]map[string]string `yaml:"images"`
}

// Config contains application configuration
type Config struct {
	// Active provider
	Provider string `yaml:"provider"`

	// SSH admin access
	SSHUser string `yaml:"ssh_user"`
	SSHPort int    `yaml:"ssh_port"`

	// Bound on the per-instance SSH reachability wait, in seconds
	ReachabilityTimeout int `yaml:"reachability_timeout"`

	// Max number of concurrent instance pipelines
	MaxWorkers int `yaml:"max_workers"`

	Vault VaultConfig `yaml:"vault"`
	State StateConfig `yaml:"state"`

	// Overrides merged over the builtin provider default tables
	Defaults DefaultTables `yaml:"defaults"`

	AWS          *AWSConfig          `yaml:"aws"`
	GCP          *GCPConfig          `yaml:"gcp"`
	Azure        *AzureConfig        `yaml:"azure"`
	DigitalOcean *DigitalOceanConfig `yaml:"digitalocean"`
	Yandex       *YandexConfig       `yaml:"yandex"`
}

// Load loads configuration from YAML file
func Load() (*Config, error) {
	config := &Config{
		SSHUser:             "amoebius",
		SSHPort:             22,
		ReachabilityTimeout: 300,
		MaxWorkers:          5,
		Vault: VaultConfig{
			Mount:      "secret",
			Role:       "amoebius-ssh",
			PathPrefix: "amoebius/ssh",
			VerifyTLS:  true,
		},
		State: StateConfig{
			Path: "amoebius-state.json",
		},
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "amoebius.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	// Expand environment variables in string fields
	config.Provider = os.ExpandEnv(config.Provider)
	config.Vault.Addr = os.ExpandEnv(config.Vault.Addr)
	config.Vault.Token = os.ExpandEnv(config.Vault.Token)
	config.Vault.PathPrefix = os.ExpandEnv(config.Vault.PathPrefix)
	if config.AWS != nil {
		config.AWS.Region = os.ExpandEnv(config.AWS.Region)
		config.AWS.AccessKey = os.ExpandEnv(config.AWS.AccessKey)
		config.AWS.SecretKey = os.ExpandEnv(config.AWS.SecretKey)
	}
	if config.GCP != nil {
		config.GCP.ProjectID = os.ExpandEnv(config.GCP.ProjectID)
		config.GCP.CredentialsFile = os.ExpandEnv(config.GCP.CredentialsFile)
	}
	if config.Azure != nil {
		config.Azure.SubscriptionID = os.ExpandEnv(config.Azure.SubscriptionID)
		config.Azure.ResourceGroup = os.ExpandEnv(config.Azure.ResourceGroup)
		config.Azure.Location = os.ExpandEnv(config.Azure.Location)
	}
	if config.DigitalOcean != nil {
		config.DigitalOcean.Token = os.ExpandEnv(config.DigitalOcean.Token)
	}
	if config.Yandex != nil {
		config.Yandex.IAMToken = os.ExpandEnv(config.Yandex.IAMToken)
		config.Yandex.FolderID = os.ExpandEnv(config.Yandex.FolderID)
	}

	// Override with environment variables if set
	applyEnvOverrides(config)

	// Validate required parameters
	if config.Provider == "" {
		return nil, fmt.Errorf("provider is required (set provider in config file)")
	}
	if config.Vault.Addr == "" {
		return nil, fmt.Errorf("vault address is required (set vault.addr in config file or VAULT_ADDR environment variable)")
	}
	if config.Vault.Token == "" {
		return nil, fmt.Errorf("vault token is required (set vault.token in config file or VAULT_TOKEN environment variable)")
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		config.Vault.Addr = addr
	}
	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		config.Vault.Token = token
	}
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		if config.AWS == nil {
			config.AWS = &AWSConfig{}
		}
		config.AWS.AccessKey = key
	}
	if key := os.Getenv("AWS_SECRET_ACCESS_KEY"); key != "" {
		if config.AWS == nil {
			config.AWS = &AWSConfig{}
		}
		config.AWS.SecretKey = key
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		if config.AWS == nil {
			config.AWS = &AWSConfig{}
		}
		config.AWS.Region = region
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		if config.GCP == nil {
			config.GCP = &GCPConfig{}
		}
		config.GCP.CredentialsFile = creds
	}
	if sub := os.Getenv("AZURE_SUBSCRIPTION_ID"); sub != "" {
		if config.Azure == nil {
			config.Azure = &AzureConfig{}
		}
		config.Azure.SubscriptionID = sub
	}
	if token := os.Getenv("DO_TOKEN"); token != "" {
		if config.DigitalOcean == nil {
			config.DigitalOcean = &DigitalOceanConfig{}
		}
		config.DigitalOcean.Token = token
	}
	if token := os.Getenv("YC_TOKEN"); token != "" {
		if config.Yandex == nil {
			config.Yandex = &YandexConfig{}
		}
		config.Yandex.IAMToken = token
	}
	if folderID := os.Getenv("YC_FOLDER_ID"); folderID != "" {
		if config.Yandex == nil {
			config.Yandex = &YandexConfig{}
		}
		config.Yandex.FolderID = folderID
	}
}
