package fleet

import (
	"fmt"
	"sync"
)

// Phase represents the provisioning state of a single instance.
type Phase string

const (
	PhasePending      Phase = "Pending"
	PhaseCreated      Phase = "Created"
	PhaseReachable    Phase = "Reachable"
	PhaseSecretStored Phase = "SecretStored"
	PhaseTornDown     Phase = "TornDown"
	PhaseFailed       Phase = "Failed"
)

// validTransitions maps each phase to the phases it may advance to. Failed is
// reachable from any non-terminal phase via Fail, not listed here.
var validTransitions = map[Phase][]Phase{
	PhasePending:      {PhaseCreated},
	PhaseCreated:      {PhaseReachable},
	PhaseReachable:    {PhaseSecretStored},
	PhaseSecretStored: {PhaseTornDown},
}

// Lifecycle tracks one instance through create, reachability, credential
// handoff and teardown. Transitions are validated so ordering bugs surface
// as errors instead of silently skipped steps.
type Lifecycle struct {
	mu       sync.Mutex
	phase    Phase
	failedAt Phase
}

// NewLifecycle starts a lifecycle in the Pending phase.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{phase: PhasePending}
}

// ResumeLifecycle restores a lifecycle persisted at an earlier phase, so a
// later run (teardown in another process) can keep advancing it.
func ResumeLifecycle(phase Phase) *Lifecycle {
	return &Lifecycle{phase: phase}
}

// Phase returns the current phase.
func (l *Lifecycle) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Advance moves the lifecycle to the next phase, rejecting skips and
// transitions out of a terminal phase.
func (l *Lifecycle) Advance(to Phase) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, allowed := range validTransitions[l.phase] {
		if allowed == to {
			l.phase = to
			return nil
		}
	}
	return fmt.Errorf("invalid lifecycle transition %s -> %s", l.phase, to)
}

// Fail moves the lifecycle to the Failed terminal phase, recording where the
// failure happened. Failing an already terminal lifecycle is an error.
func (l *Lifecycle) Fail() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase == PhaseTornDown || l.phase == PhaseFailed {
		return fmt.Errorf("cannot fail lifecycle in terminal phase %s", l.phase)
	}
	l.failedAt = l.phase
	l.phase = PhaseFailed
	return nil
}

// FailedAt returns the phase the instance was in when Fail was called, or ""
// if the lifecycle has not failed.
func (l *Lifecycle) FailedAt() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failedAt
}

// Terminal reports whether the lifecycle can no longer advance.
func (l *Lifecycle) Terminal() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase == PhaseTornDown || l.phase == PhaseFailed
}
