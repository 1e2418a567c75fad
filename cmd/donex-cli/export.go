package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"donex/indexer"
)

// runExportDonations reads the indexer database directly, so it works while
// the node is stopped.
func runExportDonations(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("export-donations", stderr)
	var dsn, out, donor, recipient string
	fs.StringVar(&dsn, "dsn", "", "indexer DSN (SQLite path or postgres:// URL)")
	fs.StringVar(&out, "out", "", "destination .parquet file")
	fs.StringVar(&donor, "donor", "", "filter by donor")
	fs.StringVar(&recipient, "recipient", "", "filter by recipient")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if !required(stderr, map[string]string{"dsn": dsn, "out": out}, "dsn", "out") {
		return 1
	}
	if _, err := os.Stat(out); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists\n", out)
		return 1
	}

	idx, err := indexer.Open(dsn, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: open indexer: %v\n", err)
		return 1
	}
	defer idx.Close()

	file, err := os.OpenFile(out, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	n, err := idx.ExportDonations(context.Background(), file, indexer.DonationFilter{
		Donor:     strings.TrimSpace(donor),
		Recipient: strings.TrimSpace(recipient),
	})
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(out)
		fmt.Fprintf(stderr, "Error: export donations: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Exported %d donations to %s\n", n, out)
	return 0
}
