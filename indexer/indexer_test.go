package indexer

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/driver/postgres"

	"donex/core/events"
)

func openTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "index.db"), nil)
	if err != nil {
		t.Fatalf("open indexer: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestDonationsPersistedNewestFirst(t *testing.T) {
	idx := openTestIndexer(t)
	idx.Emit(events.Donation{Donor: "donor", Recipient: "admin1", Owner: "owner", Denom: "ucmst", Gross: "100", Net: "95", Fee: "5", Height: 3})
	idx.Emit(events.Donation{Donor: "donor", Recipient: "abc", Owner: "owner", Denom: "ucmst", Gross: "20", Net: "19", Fee: "1", Height: 5})
	idx.Emit(events.Donation{Donor: "other", Recipient: "admin1", Owner: "owner", Denom: "ucmst", Gross: "1", Net: "1", Fee: "0", Height: 6})
	idx.Emit(events.Transfer{From: "a", To: "b", Denom: "ucmst", Amount: "1"})

	rows, err := idx.ListDonations(context.Background(), DonationFilter{Donor: "donor"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].Height != 5 || rows[1].Height != 3 {
		t.Fatalf("unexpected donor rows %+v", rows)
	}
	if rows[1].Net != "95" || rows[1].Fee != "5" || rows[1].Recipient != "admin1" {
		t.Fatalf("unexpected donation row %+v", rows[1])
	}

	rows, err = idx.ListDonations(context.Background(), DonationFilter{Recipient: "admin1", Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Donor != "other" {
		t.Fatalf("unexpected recipient rows %+v", rows)
	}

	rows, err = idx.ListDonations(context.Background(), DonationFilter{Donor: "nobody"})
	if err != nil || rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty result, got %+v (%v)", rows, err)
	}
}

func TestLinkHistory(t *testing.T) {
	idx := openTestIndexer(t)
	idx.Emit(events.SocialLinked{Address: "abc", Platform: "twitter", ProfileID: "1", Height: 2})
	idx.Emit(events.SocialLinked{Address: "abc", Platform: "twitter", ProfileID: "2", Height: 4})
	idx.Emit(events.SocialLinked{Address: "def", Platform: "github", ProfileID: "x", Height: 5})

	rows, err := idx.LinkHistory(context.Background(), "abc", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 2 || rows[0].ProfileID != "2" || rows[1].ProfileID != "1" {
		t.Fatalf("unexpected history %+v", rows)
	}
}

func TestDialectorSelection(t *testing.T) {
	d, err := Dialector("postgres://user:pw@localhost:5432/donex")
	if err != nil {
		t.Fatalf("dialector: %v", err)
	}
	if _, ok := d.(*postgres.Dialector); !ok {
		t.Fatalf("expected postgres dialector, got %T", d)
	}
	d, err = Dialector("/tmp/index.db")
	if err != nil {
		t.Fatalf("dialector: %v", err)
	}
	if d.Name() != "sqlite" {
		t.Fatalf("expected sqlite dialector, got %s", d.Name())
	}
	if _, err := Dialector("  "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestClampLimit(t *testing.T) {
	if clampLimit(0) != defaultListLimit || clampLimit(10_000) != maxListLimit || clampLimit(7) != 7 {
		t.Fatalf("unexpected clamp behaviour")
	}
}
