package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"donex/cmd/internal/passphrase"
	"donex/crypto"
	"donex/rpc"
)

var keystorePassphrase = func() (string, error) {
	return passphrase.NewSource(keystorePassEnv, "keystore").Get()
}

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var out, prefix string
	var light bool
	fs.StringVar(&out, "out", "", "path of the keystore file to create")
	fs.StringVar(&prefix, "prefix", crypto.DefaultPrefix, "bech32 prefix for the printed address")
	fs.BoolVar(&light, "light", false, "use cheap scrypt parameters (development only)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	out = strings.TrimSpace(out)
	if out == "" {
		fmt.Fprintln(stderr, "Error: --out is required")
		return 1
	}
	if _, err := os.Stat(out); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists\n", out)
		return 1
	}
	pass, err := keystorePassphrase()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error generating key: %v\n", err)
		return 1
	}
	params := crypto.StandardKeystore
	if light {
		params = crypto.LightKeystore
	}
	if err := crypto.SaveToKeystoreWithParams(out, key, pass, params); err != nil {
		fmt.Fprintf(stderr, "Error saving keystore: %v\n", err)
		return 1
	}
	addr, err := key.PubKey().Address(prefix)
	if err != nil {
		fmt.Fprintf(stderr, "Error deriving address: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Address: %s\nKeystore: %s\n", addr.String(), out)
	return 0
}

func keystoreAddress(path, prefix string) (string, error) {
	pass, err := keystorePassphrase()
	if err != nil {
		return "", err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return "", err
	}
	addr, err := key.PubKey().Address(prefix)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var path, prefix string
	fs.StringVar(&path, "keystore", "", "keystore file")
	fs.StringVar(&prefix, "prefix", crypto.DefaultPrefix, "bech32 prefix")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(path) == "" {
		fmt.Fprintln(stderr, "Error: --keystore is required")
		return 1
	}
	addr, err := keystoreAddress(path, prefix)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, addr)
	return 0
}

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var sub, path, prefix, secret, issuer, audience string
	var ttl time.Duration
	fs.StringVar(&sub, "sub", "", "sender address to embed as the token subject")
	fs.StringVar(&path, "keystore", "", "derive the subject from a keystore instead of --sub")
	fs.StringVar(&prefix, "prefix", crypto.DefaultPrefix, "bech32 prefix used with --keystore")
	fs.StringVar(&secret, "secret", os.Getenv(jwtSecretEnv), "node JWT secret (defaults to "+jwtSecretEnv+")")
	fs.StringVar(&issuer, "issuer", "", "token issuer")
	fs.StringVar(&audience, "audience", "", "token audience")
	fs.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	sub = strings.TrimSpace(sub)
	path = strings.TrimSpace(path)
	switch {
	case sub == "" && path == "":
		fmt.Fprintln(stderr, "Error: --sub or --keystore is required")
		return 1
	case sub != "" && path != "":
		fmt.Fprintln(stderr, "Error: --sub and --keystore are mutually exclusive")
		return 1
	case path != "":
		addr, err := keystoreAddress(path, prefix)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		sub = addr
	}
	token, err := rpc.IssueToken(rpc.AuthConfig{HMACSecret: secret, Issuer: issuer, Audience: audience}, sub, ttl, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
