package ssh

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// rsaKeyBits is the strength of issued keypairs.
const rsaKeyBits = 4096

// KeyPair is one instance's SSH credential. The private half lives only in
// process memory between issuance and the secret-store handoff; it is never
// written to disk by this package.
type KeyPair struct {
	// PublicKey in OpenSSH authorized_keys format
	PublicKey string
	// PrivateKeyPEM is the PEM-encoded PKCS#1 private key
	PrivateKeyPEM string
}

// GenerateKeyPair issues a fresh 4096-bit RSA keypair in memory.
func GenerateKeyPair() (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	publicKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}

	return &KeyPair{
		PublicKey:     string(ssh.MarshalAuthorizedKey(publicKey)),
		PrivateKeyPEM: string(privateKeyPEM),
	}, nil
}

// Signer parses the private half into an ssh.Signer for handshake probes.
func (kp *KeyPair) Signer() (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey([]byte(kp.PrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return signer, nil
}
