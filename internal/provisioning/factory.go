package provisioning

import (
	"context"
	"fmt"

	"amoebius/internal/config"
)

// NewProvisioner creates a provisioner for the configured provider (factory
// pattern). Each provider requires its own config section to be present.
func NewProvisioner(ctx context.Context, cfg *config.Config) (Provisioner, error) {
	switch cfg.Provider {
	case config.ProviderAWS:
		if cfg.AWS == nil {
			return nil, fmt.Errorf("aws config is nil")
		}
		return NewAWSProvisioner(ctx, cfg.AWS.Region, cfg.AWS.AccessKey, cfg.AWS.SecretKey)

	case config.ProviderAzure:
		if cfg.Azure == nil {
			return nil, fmt.Errorf("azure config is nil")
		}
		return NewAzureProvisioner(cfg.Azure.SubscriptionID, cfg.Azure.ResourceGroup, cfg.Azure.Location)

	case config.ProviderGCP:
		if cfg.GCP == nil {
			return nil, fmt.Errorf("gcp config is nil")
		}
		return NewGCPProvisioner(ctx, cfg.GCP.ProjectID, cfg.GCP.CredentialsFile)

	case config.ProviderDigitalOcean:
		if cfg.DigitalOcean == nil {
			return nil, fmt.Errorf("digitalocean config is nil")
		}
		return NewDOProvisioner(cfg.DigitalOcean.Token)

	case config.ProviderYandex:
		if cfg.Yandex == nil {
			return nil, fmt.Errorf("yandex config is nil")
		}
		return NewYcProvisioner(cfg.Yandex.IAMToken, cfg.Yandex.FolderID)

	default:
		return nil, fmt.Errorf("unsupported provisioner type: %s", cfg.Provider)
	}
}
