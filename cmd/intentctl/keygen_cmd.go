package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

// runKeygen generates an ed25519 keypair in the encodings the service
// consumes: the private key for SIGNING_PRIVATE_KEY_BASE64, the public
// key for offline verification.
func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var kid string
	fs.StringVar(&kid, "kid", "intentd-signing-1", "key id")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		return 1
	}

	payload, err := json.MarshalIndent(map[string]string{
		"kid":                kid,
		"algorithm":          "ed25519",
		"private_key_base64": base64.StdEncoding.EncodeToString(priv),
		"public_key_base64":  base64.StdEncoding.EncodeToString(pub),
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal keypair: %v\n", err)
		return 1
	}
	fmt.Println(string(payload))
	return 0
}
