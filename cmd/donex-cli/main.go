package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"donex/rpc"
)

const (
	rpcURLEnv       = "DONEX_RPC_URL"
	rpcTokenEnv     = "DONEX_RPC_TOKEN"
	keystorePassEnv = "DONEX_KEYSTORE_PASS"
	jwtSecretEnv    = "DONEX_JWT_SECRET"
)

var (
	rpcEndpoint  = defaultRPCEndpoint()
	rpcAuthToken = os.Getenv(rpcTokenEnv)

	rpcCall = callRPC
)

func main() {
	args, err := applyGlobalFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(run(args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "generate-key":
		return runGenerateKey(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "token":
		return runToken(args[1:], stdout, stderr)
	case "submit-social":
		return runSubmitSocial(args[1:], stdout, stderr)
	case "donate":
		return runDonate(args[1:], stdout, stderr)
	case "addresses":
		return runAddresses(args[1:], stdout, stderr)
	case "socials":
		return runSocials(args[1:], stdout, stderr)
	case "resolve":
		return runResolve(args[1:], stdout, stderr)
	case "balance":
		return runBalance(args[1:], stdout, stderr)
	case "donations":
		return runDonations(args[1:], stdout, stderr)
	case "export-donations":
		return runExportDonations(args[1:], stdout, stderr)
	case "status":
		return runStatus(args[1:], stdout, stderr)
	case "watch":
		return runWatch(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.TrimSpace(`Usage:
  donex-cli [--rpc URL] [--token JWT] <command> [flags]

Commands:
  generate-key  Create a new encrypted keystore
  address       Print the address of a keystore
  token         Issue a bearer token for an address
  submit-social Link a social identity to an address (owner only)
  donate        Donate attached funds to a recipient
  addresses     List addresses linked to a social identity
  socials       List social identities linked to an address
  resolve       Resolve a social identity to one address
  balance       Show bank balances
  donations     List indexed donations
  export-donations Write indexed donations to a Parquet file
  status        Show node height and contract state
  watch         Stream committed events
`)
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(rpcURLEnv)); v != "" {
		return v
	}
	return "http://localhost:8545"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--rpc" || arg == "--token":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for %s", arg)
			}
			if arg == "--rpc" {
				rpcEndpoint = args[i+1]
			} else {
				rpcAuthToken = args[i+1]
			}
			i++
		case strings.HasPrefix(arg, "--rpc="):
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
		case strings.HasPrefix(arg, "--token="):
			rpcAuthToken = strings.TrimPrefix(arg, "--token=")
		default:
			out = append(out, arg)
		}
	}
	return out, nil
}

func callRPC(method string, params []interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return rpc.NewClient(rpcEndpoint, rpcAuthToken).Call(ctx, method, params...)
}

// invoke performs the call and prints the result or error, returning the
// process exit code.
func invoke(stdout, stderr io.Writer, method string, params ...interface{}) int {
	result, err := rpcCall(method, params)
	if err != nil {
		var rpcErr *rpc.RPCError
		if errors.As(err, &rpcErr) {
			fmt.Fprintf(stderr, "RPC error %d: %s\n", rpcErr.Code, rpcErr.Message)
			return 1
		}
		fmt.Fprintf(stderr, "RPC call failed: %v\n", err)
		return 1
	}
	writeRPCResult(stdout, result)
	return 0
}

func writeRPCResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "null")
		return
	}
	if _, err := w.Write(result); err == nil {
		if result[len(result)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}
}
