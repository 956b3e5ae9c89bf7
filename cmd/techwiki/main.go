// Command techwiki is the knowledge-base client and its development backend.
// It dispatches to subcommands like client, submit, devserver and
// reset-password.
package main

import (
	"fmt"
	"os"

	"techwiki/internal/cmd/client"
	"techwiki/internal/cmd/devserver"
	"techwiki/internal/cmd/resetpassword"
	"techwiki/internal/cmd/submit"
	"techwiki/internal/version"
)

// main is the process entry point and forwards to run for testable logic.
func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// run parses argv and invokes the matching subcommand handler.
// It returns an error for missing or unknown subcommands.
func run(argv []string) error {
	if len(argv) < 2 {
		usage()
		return fmt.Errorf("missing subcommand")
	}

	switch argv[1] {
	case "client":
		return client.Run(argv[2:])
	case "submit":
		return submit.Run(argv[2:])
	case "devserver":
		return devserver.Run(argv[2:])
	case "reset-password":
		return resetpassword.Run(argv[2:])
	case "version", "-version", "--version":
		fmt.Printf("techwiki %s\n", version.Version)
		return nil
	case "-h", "--help", "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown subcommand: %s", argv[1])
	}
}

// usage prints the canonical CLI syntax to stderr.
func usage() {
	fmt.Fprintln(os.Stderr, "techwiki <client|submit|devserver|reset-password|version> [flags]")
}
