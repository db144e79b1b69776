package fleet

import (
	"context"

	"amoebius/internal/logging"
	"amoebius/internal/provisioning"

	"go.uber.org/zap"
)

// Teardown destroys every live instance and revokes its stored credential.
// A failed secret delete never blocks the VM's destruction, but it is
// surfaced as an error and the state record is kept so the orphaned path
// stays visible: no unseen secret may outlive its owning resource silently.
func (d *Deployer) Teardown(ctx context.Context) error {
	records, err := d.store.List(ctx)
	if err != nil {
		return err
	}

	logging.Logger().Info("starting fleet teardown",
		zap.Int("instances", len(records)))

	var failures []InstanceFailure
	for _, rec := range records {
		lc := ResumeLifecycle(Phase(rec.Phase))
		instance := &provisioning.Instance{
			ID:   rec.InstanceID,
			Name: rec.Name,
			Zone: rec.Zone,
		}

		if err := d.provider.Destroy(ctx, instance); err != nil {
			failures = append(failures, InstanceFailure{
				Key:   rec.Key,
				Name:  rec.Name,
				Stage: StageTeardown,
				Err:   &ProviderError{Instance: rec.Name, Err: err},
			})
			continue
		}

		secretDeleted := true
		if rec.SecretPath != "" {
			if err := d.secrets.Delete(ctx, d.opts.Role, rec.SecretPath); err != nil {
				secretDeleted = false
				storeErr := &SecretStoreError{Op: "delete", Path: rec.SecretPath, Err: err}
				logging.Logger().Error("secret delete failed; credential orphaned until expired",
					zap.String("instance", rec.Name),
					zap.String("secret_path", rec.SecretPath),
					zap.Error(err))
				failures = append(failures, InstanceFailure{
					Key:   rec.Key,
					Name:  rec.Name,
					Stage: StageTeardown,
					Err:   storeErr,
				})
			}
		}

		// Keep the record when the secret survives so the orphaned path
		// remains discoverable for a retry.
		if secretDeleted {
			if err := lc.Advance(PhaseTornDown); err != nil {
				logging.Logger().Warn("lifecycle bookkeeping error",
					zap.String("instance", rec.Name),
					zap.String("recorded_phase", rec.Phase),
					zap.Error(err))
			}
			if err := d.store.Delete(ctx, rec.Name); err != nil {
				logging.Logger().Error("failed to delete instance state",
					zap.String("instance", rec.Name),
					zap.Error(err))
			}
		}

		logging.Logger().Info("instance torn down",
			zap.String("instance", rec.Name),
			zap.Bool("secret_deleted", secretDeleted))
	}

	if len(failures) > 0 {
		return &RunError{Failures: failures}
	}

	logging.Logger().Info("fleet teardown complete")
	return nil
}

// Status returns the currently live instances grouped by group name,
// rebuilt from the state store.
func (d *Deployer) Status(ctx context.Context) (GroupedResult, error) {
	records, err := d.store.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]InstanceResult, 0, len(records))
	for _, rec := range records {
		results = append(results, InstanceResult{
			GroupName:  rec.Group,
			Name:       rec.Name,
			PrivateIP:  rec.PrivateIP,
			PublicIP:   rec.PublicIP,
			SecretPath: rec.SecretPath,
		})
	}
	return Aggregate(results), nil
}
