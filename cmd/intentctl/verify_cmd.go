package main

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"intentd/internal/domain"
	"intentd/pkg/capture"
)

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var tokenPath string
	var pubkeyHex string
	var pubkeyBase64 string
	fs.StringVar(&tokenPath, "token", "", "token JSON path")
	fs.StringVar(&pubkeyHex, "pubkey-hex", "", "authority ed25519 public key hex")
	fs.StringVar(&pubkeyBase64, "pubkey-base64", "", "authority ed25519 public key base64")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if tokenPath == "" {
		fmt.Fprintln(os.Stderr, "verify requires --token")
		return 1
	}
	pub, code := resolvePublicKey(pubkeyHex, pubkeyBase64)
	if code != 0 {
		return code
	}

	token, err := readToken(tokenPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read token: %v\n", err)
		return 1
	}

	if err := capture.VerifyToken(token, capture.VerifyOptions{AuthorityPublicKey: pub}); err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenExpired):
			fmt.Fprintln(os.Stderr, "token expired")
		case errors.Is(err, domain.ErrTokenSignatureInvalid):
			fmt.Fprintln(os.Stderr, "token signature invalid")
		default:
			fmt.Fprintf(os.Stderr, "verify token: %v\n", err)
		}
		return 1
	}
	fmt.Println("token verified")
	return 0
}

func runAuthorize(args []string) int {
	fs := flag.NewFlagSet("authorize", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var tokenPath string
	var action string
	var stepIndex int
	var stepPath string
	var pubkeyHex string
	var pubkeyBase64 string
	fs.StringVar(&tokenPath, "token", "", "token JSON path")
	fs.StringVar(&action, "action", "", "action to authorize")
	fs.IntVar(&stepIndex, "step-index", -1, "committed step index")
	fs.StringVar(&stepPath, "step", "", "step JSON path")
	fs.StringVar(&pubkeyHex, "pubkey-hex", "", "authority ed25519 public key hex")
	fs.StringVar(&pubkeyBase64, "pubkey-base64", "", "authority ed25519 public key base64")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if tokenPath == "" || action == "" || stepPath == "" {
		fmt.Fprintln(os.Stderr, "authorize requires --token, --action, and --step")
		return 1
	}
	pub, code := resolvePublicKey(pubkeyHex, pubkeyBase64)
	if code != 0 {
		return code
	}

	token, err := readToken(tokenPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read token: %v\n", err)
		return 1
	}
	stepBytes, err := os.ReadFile(stepPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read step: %v\n", err)
		return 1
	}
	var step domain.Step
	if err := json.Unmarshal(stepBytes, &step); err != nil {
		fmt.Fprintf(os.Stderr, "decode step: %v\n", err)
		return 1
	}

	decision := capture.Authorize(token, action, stepIndex, step, capture.VerifyOptions{AuthorityPublicKey: pub})
	payload, err := json.Marshal(map[string]any{
		"allowed": decision.Allowed,
		"reason":  decision.Reason,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal decision: %v\n", err)
		return 1
	}
	fmt.Println(string(payload))
	if !decision.Allowed {
		return 2
	}
	return 0
}

func resolvePublicKey(pubkeyHex, pubkeyBase64 string) (ed25519.PublicKey, int) {
	if (pubkeyHex == "" && pubkeyBase64 == "") || (pubkeyHex != "" && pubkeyBase64 != "") {
		fmt.Fprintln(os.Stderr, "exactly one of --pubkey-hex or --pubkey-base64 is required")
		return nil, 1
	}
	var pub ed25519.PublicKey
	var err error
	if pubkeyHex != "" {
		pub, err = capture.ParseEd25519PublicKeyHex(pubkeyHex)
	} else {
		pub, err = capture.ParseEd25519PublicKeyBase64(pubkeyBase64)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse public key: %v\n", err)
		return nil, 1
	}
	return pub, 0
}

func readToken(path string) (domain.IntentToken, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.IntentToken{}, err
	}
	return capture.DecodeToken(raw)
}
