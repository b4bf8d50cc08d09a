package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "capture":
		return runCapture(args[2:])
	case "verify":
		return runVerify(args[2:])
	case "authorize":
		return runAuthorize(args[2:])
	case "keygen":
		return runKeygen(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "intentctl"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s capture --plan <plan.json> [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify --token <token.json> (--pubkey-hex <hex>|--pubkey-base64 <b64>)\n", name)
	fmt.Fprintf(os.Stderr, "  %s authorize --token <token.json> --action <name> --step-index <i> --step <step.json> (--pubkey-hex <hex>|--pubkey-base64 <b64>)\n", name)
	fmt.Fprintf(os.Stderr, "  %s keygen [--kid <id>]\n", name)
}

func writeOutput(path string, payload []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(payload, '\n'))
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
