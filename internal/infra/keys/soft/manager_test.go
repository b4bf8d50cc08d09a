package soft

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"intentd/internal/config"
)

func TestNewManagerFromConfigBase64(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cfg := config.Config{
		SigningKeyID:            "kid-1",
		SigningPrivateKeyBase64: base64.StdEncoding.EncodeToString(priv),
	}
	manager, err := NewManagerFromConfig(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	sig, err := manager.Sign(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	pub := manager.PublicKey()
	if pub.KID != "kid-1" || pub.Alg != "ed25519" {
		t.Fatalf("unexpected public key metadata: %+v", pub)
	}
	if !ed25519.Verify(pub.PublicKey, []byte("payload"), raw) {
		t.Fatal("signature must verify against the manager public key")
	}
}

func TestNewManagerFromConfigSeedHex(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	cfg := config.Config{
		SigningKeyID:             "kid-2",
		SigningPrivateKeySeedHex: hex.EncodeToString(seed),
	}
	manager, err := NewManagerFromConfig(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	want := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	got := manager.PublicKey().PublicKey
	if !ed25519.PublicKey(got).Equal(want) {
		t.Fatal("seed-derived public key mismatch")
	}
}

func TestNewManagerFromConfigMissingKey(t *testing.T) {
	if _, err := NewManagerFromConfig(config.Config{}); err == nil {
		t.Fatal("expected error when no key material is configured")
	}
}
