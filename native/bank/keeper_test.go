package bank

import (
	"errors"
	"testing"

	"donex/core/types"
	"donex/storage"
)

func newTestKeeper(t *testing.T) (*Keeper, *storage.Cache) {
	t.Helper()
	cache := storage.NewCache(storage.NewMemDB())
	return NewKeeper(storage.NewPrefixStore(cache, []byte("bank/"))), cache
}

func mustBalance(t *testing.T, k *Keeper, addr, denom string) uint64 {
	t.Helper()
	bal, err := k.Balance(addr, denom)
	if err != nil {
		t.Fatalf("balance %s/%s: %v", addr, denom, err)
	}
	return bal.Uint64()
}

func TestMintAndSend(t *testing.T) {
	k, _ := newTestKeeper(t)
	if err := k.Mint("donor", types.Coins{types.NewCoin("ucmst", 100)}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	transfers, err := k.Send("donor", "admin1", types.Coins{types.NewCoin("ucmst", 95), types.NewCoin("uatom", 0)})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(transfers) != 1 || transfers[0].Amount != "95" || transfers[0].Denom != "ucmst" {
		t.Fatalf("unexpected transfers %+v", transfers)
	}
	if got := mustBalance(t, k, "donor", "ucmst"); got != 5 {
		t.Fatalf("donor balance: want 5 got %d", got)
	}
	if got := mustBalance(t, k, "admin1", "ucmst"); got != 95 {
		t.Fatalf("admin1 balance: want 95 got %d", got)
	}
}

func TestSendInsufficientFundsLeavesBalances(t *testing.T) {
	k, cache := newTestKeeper(t)
	if err := k.Mint("donor", types.Coins{types.NewCoin("ucmst", 10), types.NewCoin("uatom", 1)}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	before := cache.Pending()
	_, err := k.Send("donor", "x", types.Coins{types.NewCoin("ucmst", 5), types.NewCoin("uatom", 2)})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if cache.Pending() != before {
		t.Fatalf("failed send must not write")
	}
	if got := mustBalance(t, k, "donor", "ucmst"); got != 10 {
		t.Fatalf("donor balance changed: %d", got)
	}
}

func TestBalancesListsDenoms(t *testing.T) {
	k, _ := newTestKeeper(t)
	if err := k.Mint("a", types.Coins{types.NewCoin("uzzz", 3), types.NewCoin("uaaa", 1)}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := k.Mint("ab", types.Coins{types.NewCoin("uaaa", 9)}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	coins, err := k.Balances("a")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if coins.String() != "1uaaa,3uzzz" {
		t.Fatalf("unexpected balances %s", coins)
	}
}

func TestSendToSelfKeepsBalance(t *testing.T) {
	k, _ := newTestKeeper(t)
	if err := k.Mint("a", types.Coins{types.NewCoin("ucmst", 7)}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := k.Send("a", "a", types.Coins{types.NewCoin("ucmst", 7)}); err != nil {
		t.Fatalf("self send: %v", err)
	}
	if got := mustBalance(t, k, "a", "ucmst"); got != 7 {
		t.Fatalf("self send changed balance: %d", got)
	}
}

func TestMintRejectsEmptyAddress(t *testing.T) {
	k, _ := newTestKeeper(t)
	if err := k.Mint(" ", types.Coins{types.NewCoin("ucmst", 1)}); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
}
