package vault

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"amoebius/internal/logging"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Config holds the secret-store connection parameters.
type Config struct {
	Addr      string
	Token     string
	Mount     string
	VerifyTLS bool
	Timeout   time.Duration
}

// SecretRecord is the credential material stored for one instance. The
// private key is ephemeral: it exists here only between issuance and the
// Store call.
type SecretRecord struct {
	Path       string
	User       string
	Hostname   string
	Port       int
	PrivateKey string
	// VerifyTLS travels with the record for store implementations that
	// open their own connection per call; this client applies it at the
	// transport level instead.
	VerifyTLS bool
}

// Client talks to the secret store's KV v2 HTTP API. Writes are create-only:
// an existing secret at a path is never overwritten, matching the policy
// that observed secrets can only be expired or deleted.
type Client struct {
	http  *retryablehttp.Client
	addr  string
	token string
	mount string
}

// NewClient creates a secret-store client. Transient HTTP failures are
// retried by the underlying client; 4xx responses are not.
func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	rc.HTTPClient.Timeout = cfg.Timeout
	if !cfg.VerifyTLS {
		rc.HTTPClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		logging.Logger().Warn("secret store TLS verification disabled")
	}

	return &Client{
		http:  rc,
		addr:  strings.TrimSuffix(cfg.Addr, "/"),
		token: cfg.Token,
		mount: cfg.Mount,
	}
}

// kvWriteRequest is the KV v2 write body. cas=0 makes the write create-only:
// the store rejects it if any version already exists at the path.
type kvWriteRequest struct {
	Options kvWriteOptions    `json:"options"`
	Data    map[string]string `json:"data"`
}

type kvWriteOptions struct {
	CAS int `json:"cas"`
}

// Store writes one instance credential under <mount>/data/<role>/<path>.
// The call is create-only; a pre-existing secret at the path is an error,
// never an update.
func (c *Client) Store(ctx context.Context, role string, rec SecretRecord) error {
	body := kvWriteRequest{
		Options: kvWriteOptions{CAS: 0},
		Data: map[string]string{
			"user":        rec.User,
			"hostname":    rec.Hostname,
			"port":        fmt.Sprintf("%d", rec.Port),
			"private_key": rec.PrivateKey,
		},
	}

	url := fmt.Sprintf("%s/v1/%s/data/%s/%s", c.addr, c.mount, role, rec.Path)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("store call failed: %w", err)
	}
	defer drainAndClose(resp)

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNoContent:
		logging.Logger().Info("credential stored",
			zap.String("role", role),
			zap.String("path", rec.Path),
			zap.String("hostname", rec.Hostname))
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		// cas violation: something already lives at this path
		return fmt.Errorf("secret already exists at %s/%s (create-only write rejected): %s",
			role, rec.Path, readErrorBody(resp))
	default:
		return fmt.Errorf("store returned status %d: %s", resp.StatusCode, readErrorBody(resp))
	}
}

// Delete removes the secret's metadata and all versions at
// <mount>/metadata/<role>/<path>.
func (c *Client) Delete(ctx context.Context, role, path string) error {
	url := fmt.Sprintf("%s/v1/%s/metadata/%s/%s", c.addr, c.mount, role, path)
	resp, err := c.do(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("delete call failed: %w", err)
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete returned status %d: %s", resp.StatusCode, readErrorBody(resp))
	}

	logging.Logger().Info("credential deleted",
		zap.String("role", role),
		zap.String("path", path))
	return nil
}

// Health checks that the store is initialized and unsealed.
func (c *Client) Health(ctx context.Context) error {
	url := c.addr + "/v1/sys/health"
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("health call failed: %w", err)
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("secret store unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Vault-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	return c.http.Do(req)
}

// readErrorBody extracts the store's error list from a failed response.
func readErrorBody(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return ""
	}
	var parsed struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && len(parsed.Errors) > 0 {
		return strings.Join(parsed.Errors, "; ")
	}
	return logging.Truncate(string(data))
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	if err := resp.Body.Close(); err != nil {
		logging.Logger().Warn("failed to close response body", zap.Error(err))
	}
}
