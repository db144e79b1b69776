package fleet

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"amoebius/internal/logging"
	"amoebius/internal/provisioning"
	"amoebius/internal/ssh"
	"amoebius/internal/state"
	"amoebius/internal/vault"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// SecretStore is the secret-store collaborator contract: create-only store
// and delete, keyed by role and path.
type SecretStore interface {
	Store(ctx context.Context, role string, rec vault.SecretRecord) error
	Delete(ctx context.Context, role, path string) error
}

// ReachabilityFunc blocks until a host accepts SSH connections or the
// timeout elapses.
type ReachabilityFunc func(ctx context.Context, host string, port int, timeout time.Duration) error

// KeyIssuer issues one fresh keypair per instance.
type KeyIssuer func() (*ssh.KeyPair, error)

// Options configures a Deployer. WaitReachable and IssueKey default to the
// real SSH probe and RSA key generator when nil.
type Options struct {
	ProviderName        string
	SSHUser             string
	SSHPort             int
	ReachabilityTimeout time.Duration
	MaxWorkers          int
	Role                string
	PathPrefix          string
	VerifyTLS           bool

	WaitReachable ReachabilityFunc
	IssueKey      KeyIssuer
}

// Deployer runs the provisioning pipeline: expand groups, legalize names,
// resolve defaults, create instances, wait for reachability and hand each
// credential to the secret store. A run succeeds only if every instance
// succeeds.
type Deployer struct {
	provider provisioning.Provisioner
	secrets  SecretStore
	store    state.Store
	defaults DefaultTables
	opts     Options
}

// NewDeployer creates a Deployer.
func NewDeployer(provider provisioning.Provisioner, secrets SecretStore, store state.Store, defaults DefaultTables, opts Options) *Deployer {
	if opts.WaitReachable == nil {
		opts.WaitReachable = ssh.WaitReachable
	}
	if opts.IssueKey == nil {
		opts.IssueKey = ssh.GenerateKeyPair
	}
	if opts.ReachabilityTimeout == 0 {
		opts.ReachabilityTimeout = 300 * time.Second
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 5
	}
	if opts.SSHPort == 0 {
		opts.SSHPort = 22
	}
	return &Deployer{
		provider: provider,
		secrets:  secrets,
		store:    store,
		defaults: defaults,
		opts:     opts,
	}
}

// instancePlan is one fully resolved instance, ready to provision.
type instancePlan struct {
	ExpandedInstance
	Name            string
	Resolved        Resolved
	SubnetID        string
	SecurityGroupID string
}

// errNoPublicIP marks an instance the provider returned without a public
// address; the credential handoff cannot proceed without one.
var errNoPublicIP = errors.New("instance has no public IP")

// plan expands the manifest and resolves every instance before any
// provisioning begins, so configuration errors abort the run up front.
func (d *Deployer) plan(m *Manifest) ([]instancePlan, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	expanded := Expand(m.Groups, m.Zones)
	plans := make([]instancePlan, 0, len(expanded))
	names := make(map[string]string, len(expanded))

	for _, inst := range expanded {
		resolved, err := d.defaults.Resolve(d.opts.ProviderName, inst.Category, inst.Image)
		if err != nil {
			return nil, err
		}

		name := Sanitize(inst.Key)
		if prior, ok := names[name]; ok {
			return nil, NewConfigurationError("sanitized name collision: %q and %q both produce %q", prior, inst.Key, name)
		}
		names[name] = inst.Key

		subnetID, ok := m.Network.Subnets[inst.Zone]
		if !ok {
			return nil, NewConfigurationError("no subnet configured for zone %q", inst.Zone)
		}

		plans = append(plans, instancePlan{
			ExpandedInstance: inst,
			Name:             name,
			Resolved:         resolved,
			SubnetID:         subnetID,
			SecurityGroupID:  m.Network.SecurityGroup,
		})
	}

	return plans, nil
}

// Deploy provisions the whole fleet. On any per-instance failure the run
// fails as a whole and no GroupedResult is returned.
func (d *Deployer) Deploy(ctx context.Context, m *Manifest) (GroupedResult, error) {
	plans, err := d.plan(m)
	if err != nil {
		logging.Logger().Error("fleet planning failed",
			zap.String("stage", string(StageExpansion)),
			zap.Error(err))
		return nil, err
	}

	logging.Logger().Info("starting fleet deployment",
		zap.String("provider", d.opts.ProviderName),
		zap.Int("instances", len(plans)),
		zap.Int("max_workers", d.opts.MaxWorkers))

	if len(plans) == 0 {
		return GroupedResult{}, nil
	}

	var (
		mu       sync.Mutex
		results  = make([]InstanceResult, 0, len(plans))
		failures []InstanceFailure
	)

	pool := pond.NewPool(min(d.opts.MaxWorkers, len(plans)))
	for _, p := range plans {
		pool.Submit(func() {
			result, failure := d.provisionOne(ctx, p)
			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				failures = append(failures, *failure)
				return
			}
			results = append(results, result)
		})
	}
	pool.StopAndWait()

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].Key < failures[j].Key })
		for _, f := range failures {
			logging.Logger().Error("instance pipeline failed",
				zap.String("instance", f.Key),
				zap.String("stage", string(f.Stage)),
				zap.Error(f.Err))
		}
		return nil, &RunError{Failures: failures}
	}

	// Preserve the deterministic plan order in the grouped output
	sort.Slice(results, func(i, j int) bool {
		return planIndex(plans, results[i].Name) < planIndex(plans, results[j].Name)
	})

	logging.Logger().Info("fleet deployment complete",
		zap.Int("instances", len(results)))
	return Aggregate(results), nil
}

func planIndex(plans []instancePlan, name string) int {
	for i, p := range plans {
		if p.Name == name {
			return i
		}
	}
	return len(plans)
}

// provisionOne runs a single instance through its lifecycle: issue keypair,
// create, wait reachable, hand off the credential. The credential handoff
// never starts before the instance has a public IP and has passed the
// reachability check.
func (d *Deployer) provisionOne(ctx context.Context, p instancePlan) (InstanceResult, *InstanceFailure) {
	lc := NewLifecycle()

	fail := func(stage Stage, err error) (InstanceResult, *InstanceFailure) {
		if lcErr := lc.Fail(); lcErr != nil {
			logging.Logger().Warn("lifecycle fail bookkeeping error", zap.Error(lcErr))
		}
		return InstanceResult{}, &InstanceFailure{Key: p.Key, Name: p.Name, Stage: stage, Err: err}
	}

	// A prior record for this name means a live secret is about to be
	// superseded; its path stays live until expired or destroyed.
	if prior, ok, err := d.store.Get(ctx, p.Name); err == nil && ok && prior.SecretPath != "" {
		logging.Logger().Warn("instance already has a stored credential; a fresh path will be minted",
			zap.String("instance", p.Name),
			zap.String("superseded_secret_path", prior.SecretPath))
	}

	keypair, err := d.opts.IssueKey()
	if err != nil {
		return fail(StageCreate, err)
	}

	logging.Logger().Info("creating instance",
		zap.String("instance", p.Name),
		zap.String("zone", p.Zone),
		zap.String("machine_type", p.Resolved.MachineType))

	instance, err := d.provider.Create(ctx, provisioning.InstanceSpec{
		Name:            p.Name,
		Image:           p.Resolved.Image,
		MachineType:     p.Resolved.MachineType,
		Zone:            p.Zone,
		SubnetID:        p.SubnetID,
		SecurityGroupID: p.SecurityGroupID,
		SSHPublicKey:    keypair.PublicKey,
		Username:        d.opts.SSHUser,
	})
	if err != nil {
		return fail(StageCreate, &ProviderError{Instance: p.Name, Err: err})
	}
	if err := lc.Advance(PhaseCreated); err != nil {
		return fail(StageCreate, err)
	}
	d.saveRecord(ctx, p, instance, "", lc.Phase())

	if instance.PublicIP == "" {
		d.cleanupFailed(ctx, p.Name, instance)
		return fail(StageCreate, &ProviderError{Instance: p.Name, Err: errNoPublicIP})
	}

	if err := d.opts.WaitReachable(ctx, instance.PublicIP, d.opts.SSHPort, d.opts.ReachabilityTimeout); err != nil {
		d.cleanupFailed(ctx, p.Name, instance)
		// Caller cancellation is not a reachability timeout.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fail(StageReachability, err)
		}
		return fail(StageReachability, &ReachabilityTimeoutError{
			Instance: p.Name,
			Host:     instance.PublicIP,
			Timeout:  d.opts.ReachabilityTimeout,
		})
	}
	if err := lc.Advance(PhaseReachable); err != nil {
		return fail(StageReachability, err)
	}
	d.saveRecord(ctx, p, instance, "", lc.Phase())

	secretPath := vault.NewSecretPath(d.opts.PathPrefix)
	record := vault.SecretRecord{
		Path:       secretPath,
		User:       d.opts.SSHUser,
		Hostname:   instance.PublicIP,
		Port:       d.opts.SSHPort,
		PrivateKey: keypair.PrivateKeyPEM,
		VerifyTLS:  d.opts.VerifyTLS,
	}
	if err := d.secrets.Store(ctx, d.opts.Role, record); err != nil {
		d.cleanupFailed(ctx, p.Name, instance)
		return fail(StageHandoff, &SecretStoreError{Op: "store", Path: secretPath, Err: err})
	}
	if err := lc.Advance(PhaseSecretStored); err != nil {
		return fail(StageHandoff, err)
	}
	d.saveRecord(ctx, p, instance, secretPath, lc.Phase())

	logging.Logger().Info("instance provisioned",
		zap.String("instance", p.Name),
		zap.String("private_ip", instance.PrivateIP),
		zap.String("public_ip", instance.PublicIP),
		zap.String("secret_path", secretPath))

	return InstanceResult{
		GroupName:  p.GroupName,
		Name:       p.Name,
		PrivateIP:  instance.PrivateIP,
		PublicIP:   instance.PublicIP,
		SecretPath: secretPath,
	}, nil
}

// saveRecord persists the instance's current phase. State-store failures are
// logged, not fatal: losing bookkeeping must not fail a healthy instance.
func (d *Deployer) saveRecord(ctx context.Context, p instancePlan, instance *provisioning.Instance, secretPath string, phase Phase) {
	rec := state.InstanceRecord{
		Key:        p.Key,
		Group:      p.GroupName,
		Name:       p.Name,
		Provider:   d.opts.ProviderName,
		InstanceID: instance.ID,
		Zone:       instance.Zone,
		PrivateIP:  instance.PrivateIP,
		PublicIP:   instance.PublicIP,
		SecretPath: secretPath,
		Phase:      string(phase),
		CreatedAt:  time.Now(),
	}
	if err := d.store.Save(ctx, rec); err != nil {
		logging.Logger().Error("failed to save instance state",
			zap.String("instance", p.Name),
			zap.Error(err))
	}
}

// cleanupFailed tears down an instance whose pipeline failed mid-way so a
// failed run does not leave half-provisioned machines behind.
func (d *Deployer) cleanupFailed(ctx context.Context, name string, instance *provisioning.Instance) {
	logging.Logger().Info("destroying instance after pipeline failure",
		zap.String("instance", name))
	if err := d.provider.Destroy(ctx, instance); err != nil {
		logging.Logger().Error("failed to destroy instance during cleanup",
			zap.String("instance", name),
			zap.Error(err))
		return
	}
	if err := d.store.Delete(ctx, name); err != nil {
		logging.Logger().Error("failed to delete instance state during cleanup",
			zap.String("instance", name),
			zap.Error(err))
	}
}
