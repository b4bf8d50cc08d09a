package domain

import "time"

type KeyPurpose string

const (
	// KeyPurposeIntent signs intent and delegation tokens.
	KeyPurposeIntent KeyPurpose = "intent"
)

type KeyRef struct {
	KID     string
	Purpose KeyPurpose
}

// SigningKey is the public half of an authority key. Private material
// never leaves the key manager.
type SigningKey struct {
	KID       string
	Alg       string
	PublicKey []byte
	CreatedAt time.Time
}
