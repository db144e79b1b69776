package fleet

import (
	"fmt"
	"strings"
	"time"
)

// Stage identifies the point in an instance pipeline where a failure occurred.
type Stage string

const (
	StageExpansion    Stage = "expansion"
	StageCreate       Stage = "create"
	StageReachability Stage = "reachability"
	StageHandoff      Stage = "handoff"
	StageTeardown     Stage = "teardown"
)

// ConfigurationError is a fatal error in the supplied fleet configuration,
// raised before any provisioning begins.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// NewConfigurationError builds a ConfigurationError from a format string.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// ProviderError wraps a cloud-provider API failure for a single instance.
type ProviderError struct {
	Instance string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error for instance %s: %v", e.Instance, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ReachabilityTimeoutError indicates an instance never became SSH-reachable
// within the configured bound.
type ReachabilityTimeoutError struct {
	Instance string
	Host     string
	Timeout  time.Duration
}

func (e *ReachabilityTimeoutError) Error() string {
	return fmt.Sprintf("instance %s (%s) not SSH-reachable after %v", e.Instance, e.Host, e.Timeout)
}

// SecretStoreError wraps a failed store or delete call against the secret store.
type SecretStoreError struct {
	Op   string // "store" or "delete"
	Path string
	Err  error
}

func (e *SecretStoreError) Error() string {
	return fmt.Sprintf("secret store %s failed for path %s: %v", e.Op, e.Path, e.Err)
}

func (e *SecretStoreError) Unwrap() error { return e.Err }

// InstanceFailure records which instance failed and at which stage.
type InstanceFailure struct {
	Key   string
	Name  string
	Stage Stage
	Err   error
}

func (f InstanceFailure) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", f.Key, f.Stage, f.Err)
}

func (f InstanceFailure) Unwrap() error { return f.Err }

// RunError aggregates per-instance failures. A run either provisions every
// instance or fails as a whole; RunError is the whole-run failure.
type RunError struct {
	Failures []InstanceFailure
}

func (e *RunError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("run failed: %d instance(s) failed: %s",
		len(e.Failures), strings.Join(parts, "; "))
}
