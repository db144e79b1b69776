package cmd

import (
	"context"
	"time"

	"amoebius/internal/config"
	"amoebius/internal/fleet"
	"amoebius/internal/logging"
	"amoebius/internal/provisioning"
	"amoebius/internal/state"
	"amoebius/internal/vault"

	"go.uber.org/zap"
)

// buildDeployer wires the configured provider, secret store and state store
// into a fleet deployer. Fatal on any configuration problem.
func buildDeployer(ctx context.Context) (*fleet.Deployer, state.Store) {
	logging.Logger().Info("Loading configuration")
	cfg, err := config.Load()
	if err != nil {
		logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
	}

	provisioner, err := provisioning.NewProvisioner(ctx, cfg)
	if err != nil {
		logging.Logger().Fatal("Failed to create provisioner",
			zap.String("provider", cfg.Provider),
			zap.Error(err))
	}

	secrets := vault.NewClient(vault.Config{
		Addr:      cfg.Vault.Addr,
		Token:     cfg.Vault.Token,
		Mount:     cfg.Vault.Mount,
		VerifyTLS: cfg.Vault.VerifyTLS,
	})
	if err := secrets.Health(ctx); err != nil {
		logging.Logger().Fatal("Secret store health check failed", zap.Error(err))
	}

	stateStore := state.NewStore(cfg.State.Path, cfg.State.EtcdEndpoints)

	tables := fleet.BuiltinDefaults().Merge(fleet.DefaultTables{
		MachineTypes: cfg.Defaults.MachineTypes,
		Images:       cfg.Defaults.Images,
	})

	deployer := fleet.NewDeployer(provisioner, secrets, stateStore, tables, fleet.Options{
		ProviderName:        cfg.Provider,
		SSHUser:             cfg.SSHUser,
		SSHPort:             cfg.SSHPort,
		ReachabilityTimeout: time.Duration(cfg.ReachabilityTimeout) * time.Second,
		MaxWorkers:          cfg.MaxWorkers,
		Role:                cfg.Vault.Role,
		PathPrefix:          cfg.Vault.PathPrefix,
		VerifyTLS:           cfg.Vault.VerifyTLS,
	})

	return deployer, stateStore
}
