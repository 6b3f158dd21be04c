// The archonctl command is a small operator CLI for tasks that don't
// belong in the running server process: registering accounts directly
// against the configured store, generating the X.509 certificate pair
// the shipgate's status service serves TLS with, and polling a running
// shipgate's /status endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	pflag.Usage = usage
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "add-account":
		err = runAddAccount(args)
	case "keygen":
		err = runKeygen(args)
	case "shipgate-status":
		err = runShipgateStatus(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "archonctl: unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "archonctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: archonctl <command> [flags]

commands:
  add-account       register a new account in the configured store
  keygen            generate a self-signed X.509 cert/key for shipgate TLS
  shipgate-status   fetch a running shipgate's /status endpoint`)
}
