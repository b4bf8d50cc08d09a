package soft

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"intentd/internal/config"
	"intentd/internal/domain"
)

// Manager holds the authority's ed25519 signing key in process memory.
// Signing with ed25519 is reentrant, so a single Manager is safe under
// concurrent issuance.
type Manager struct {
	kid string
	key ed25519.PrivateKey
}

func NewManager(kid string, key ed25519.PrivateKey) (*Manager, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid ed25519 private key length")
	}
	return &Manager{kid: kid, key: append(ed25519.PrivateKey(nil), key...)}, nil
}

// NewManagerFromConfig loads the signing key from configuration,
// preferring the base64 form over the hex seed.
func NewManagerFromConfig(cfg config.Config) (*Manager, error) {
	if key := readPrivateKeyBase64(cfg.SigningPrivateKeyBase64); key != nil {
		return NewManager(cfg.SigningKeyID, key)
	}
	if key := readPrivateKeyHex(cfg.SigningPrivateKeySeedHex); key != nil {
		return NewManager(cfg.SigningKeyID, key)
	}
	return nil, errors.New("no signing key configured")
}

// NewEphemeralManager generates a throwaway keypair. Used by tests and
// by the CLI when no key material is supplied.
func NewEphemeralManager(kid string) (*Manager, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return NewManager(kid, priv)
}

func (m *Manager) Sign(_ context.Context, payload []byte) (string, error) {
	if m == nil || m.key == nil {
		return "", errors.New("private key not configured")
	}
	sig := ed25519.Sign(m.key, payload)
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (m *Manager) PublicKey() domain.SigningKey {
	return domain.SigningKey{
		KID:       m.kid,
		Alg:       "ed25519",
		PublicKey: append([]byte(nil), m.key.Public().(ed25519.PublicKey)...),
	}
}

func readPrivateKeyBase64(value string) ed25519.PrivateKey {
	if value == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	key, err := parsePrivateKey(raw)
	if err != nil {
		return nil
	}
	return key
}

func readPrivateKeyHex(value string) ed25519.PrivateKey {
	if value == "" {
		return nil
	}
	raw, err := hex.DecodeString(value)
	if err != nil {
		return nil
	}
	key, err := parsePrivateKey(raw)
	if err != nil {
		return nil
	}
	return key
}

func parsePrivateKey(raw []byte) (ed25519.PrivateKey, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, errors.New("invalid ed25519 private key length")
	}
}
