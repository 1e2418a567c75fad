package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"donex/core/types"
	"donex/rpc"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string, stderr io.Writer) bool {
	if err := fs.Parse(args); err != nil {
		return false
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return false
	}
	return true
}

func required(stderr io.Writer, values map[string]string, order ...string) bool {
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			fmt.Fprintf(stderr, "Error: --%s is required\n", name)
			return false
		}
	}
	return true
}

func runSubmitSocial(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("submit-social", stderr)
	var platform, profile, address string
	fs.StringVar(&platform, "platform", "", "social platform, e.g. twitter")
	fs.StringVar(&profile, "profile", "", "profile id on the platform")
	fs.StringVar(&address, "address", "", "address to link")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if !required(stderr, map[string]string{"platform": platform, "profile": profile, "address": address}, "platform", "profile", "address") {
		return 1
	}
	params := map[string]interface{}{
		"social_info": []string{strings.TrimSpace(platform), strings.TrimSpace(profile)},
		"address":     strings.TrimSpace(address),
	}
	return invoke(stdout, stderr, "donex_submitSocial", params)
}

func runDonate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("donate", stderr)
	var recipient, funds, amount string
	fs.StringVar(&recipient, "recipient", "", "address receiving the donation")
	fs.StringVar(&funds, "funds", "", "coins to attach, e.g. 100ucmst")
	fs.StringVar(&amount, "amount", "", "optional amount that must equal the attached funds")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if !required(stderr, map[string]string{"recipient": recipient, "funds": funds}, "recipient", "funds") {
		return 1
	}
	coins, err := types.ParseCoins(funds)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --funds: %v\n", err)
		return 1
	}
	msg := map[string]string{"recipient": strings.TrimSpace(recipient)}
	if trimmed := strings.TrimSpace(amount); trimmed != "" {
		msg["amount"] = trimmed
	}
	return invoke(stdout, stderr, "donex_donate", msg, coins.String())
}

func runAddresses(args []string, stdout, stderr io.Writer) int {
	return runSocialLookup("addresses", "donex_getAddressesBySocial", args, stdout, stderr)
}

func runResolve(args []string, stdout, stderr io.Writer) int {
	return runSocialLookup("resolve", "donex_getSocial", args, stdout, stderr)
}

func runSocialLookup(name, method string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(name, stderr)
	var platform, profile string
	fs.StringVar(&platform, "platform", "", "social platform")
	fs.StringVar(&profile, "profile", "", "profile id on the platform")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if !required(stderr, map[string]string{"platform": platform, "profile": profile}, "platform", "profile") {
		return 1
	}
	return invoke(stdout, stderr, method, strings.TrimSpace(platform), strings.TrimSpace(profile))
}

func runSocials(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("socials", stderr)
	var address string
	fs.StringVar(&address, "address", "", "address to look up")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if !required(stderr, map[string]string{"address": address}, "address") {
		return 1
	}
	return invoke(stdout, stderr, "donex_getSocialsByAddress", strings.TrimSpace(address))
}

func runBalance(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("balance", stderr)
	var address, denom string
	fs.StringVar(&address, "address", "", "account address")
	fs.StringVar(&denom, "denom", "", "denom to query; all balances when empty")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if !required(stderr, map[string]string{"address": address}, "address") {
		return 1
	}
	if trimmed := strings.TrimSpace(denom); trimmed != "" {
		return invoke(stdout, stderr, "bank_getBalance", strings.TrimSpace(address), trimmed)
	}
	return invoke(stdout, stderr, "bank_getBalance", strings.TrimSpace(address))
}

func runDonations(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("donations", stderr)
	var donor, recipient string
	var limit int
	fs.StringVar(&donor, "donor", "", "filter by donor")
	fs.StringVar(&recipient, "recipient", "", "filter by recipient")
	fs.IntVar(&limit, "limit", 0, "maximum rows to return")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if limit < 0 {
		fmt.Fprintln(stderr, "Error: --limit must not be negative")
		return 1
	}
	filter := map[string]interface{}{}
	if trimmed := strings.TrimSpace(donor); trimmed != "" {
		filter["donor"] = trimmed
	}
	if trimmed := strings.TrimSpace(recipient); trimmed != "" {
		filter["recipient"] = trimmed
	}
	if limit > 0 {
		filter["limit"] = limit
	}
	return invoke(stdout, stderr, "donex_listDonations", filter)
}

func runStatus(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("status", stderr)
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	return invoke(stdout, stderr, "donex_status")
}

func runWatch(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("watch", stderr)
	var filter string
	fs.StringVar(&filter, "type", "", "comma-separated event types to stream")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	var eventTypes []string
	for _, part := range strings.Split(filter, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			eventTypes = append(eventTypes, trimmed)
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	enc := json.NewEncoder(stdout)
	err := rpc.NewClient(rpcEndpoint, rpcAuthToken).Subscribe(ctx, eventTypes, func(evt *types.Event) error {
		return enc.Encode(evt)
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
