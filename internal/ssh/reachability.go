package ssh

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"amoebius/internal/logging"

	"go.uber.org/zap"
)

const (
	dialTimeout   = 5 * time.Second
	retryInterval = 10 * time.Second
)

// WaitReachable blocks until the host accepts TCP connections on its
// administrative SSH port, or the timeout elapses. The wait is the sole
// blocking point of an instance pipeline; cancellation of ctx aborts it
// early.
func WaitReachable(ctx context.Context, host string, port int, timeout time.Duration) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err == nil {
			if closeErr := conn.Close(); closeErr != nil {
				logging.Logger().Debug("failed to close reachability probe",
					zap.String("host", host),
					zap.Error(closeErr))
			}
			logging.Logger().Info("instance is SSH-reachable",
				zap.String("host", host),
				zap.Int("port", port))
			return nil
		}

		logging.Logger().Debug("instance not yet reachable",
			zap.String("host", host),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	return fmt.Errorf("SSH port not available after %v timeout", timeout)
}
