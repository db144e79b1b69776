package vault

import (
	"strings"

	"github.com/google/uuid"
)

// NewSecretPath derives a fresh secret path under prefix. The random suffix
// is minted anew on every provisioning run, so re-provisioning an instance
// never reuses or updates a prior path.
func NewSecretPath(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + uuid.NewString()
}
