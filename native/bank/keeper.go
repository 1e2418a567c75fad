package bank

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"donex/core/types"
	"donex/storage"
)

var (
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	ErrInvalidAmount     = errors.New("bank: invalid amount")
	ErrOverflow          = errors.New("bank: balance overflow")
	ErrInvalidAccount    = errors.New("bank: invalid account")
)

var balancePrefix = []byte("balance/")

// Keeper tracks native balances per (address, denom). Amounts are stored as
// minimal big-endian uint256 bytes; a zero balance has no entry.
type Keeper struct {
	store storage.KVStore
}

// NewKeeper binds a keeper to the supplied store.
func NewKeeper(store storage.KVStore) *Keeper {
	return &Keeper{store: store}
}

func balanceKey(address, denom string) []byte {
	return storage.CompositeKey(balancePrefix, []byte(address), []byte(denom))
}

func accountPrefix(address string) []byte {
	return storage.CompositeKey(balancePrefix, []byte(address))
}

func validateAccount(address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidAccount)
	}
	return nil
}

// Balance returns the balance of address in denom.
func (k *Keeper) Balance(address, denom string) (*uint256.Int, error) {
	if k == nil || k.store == nil {
		return nil, errors.New("bank: keeper not initialised")
	}
	raw, ok, err := k.store.Get(balanceKey(address, denom))
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).SetBytes(raw), nil
}

// Balances lists every non-zero balance held by address ordered by denom.
func (k *Keeper) Balances(address string) (types.Coins, error) {
	if k == nil || k.store == nil {
		return nil, errors.New("bank: keeper not initialised")
	}
	prefix := accountPrefix(address)
	out := types.Coins{}
	err := k.store.Iterate(prefix, func(key, value []byte) error {
		denom, _, err := storage.ReadPart(key[len(prefix):])
		if err != nil {
			return err
		}
		out = append(out, types.Coin{Denom: string(denom), Amount: new(uint256.Int).SetBytes(value)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (k *Keeper) setBalance(address, denom string, amount *uint256.Int) error {
	key := balanceKey(address, denom)
	if amount.IsZero() {
		return k.store.Delete(key)
	}
	return k.store.Set(key, amount.Bytes())
}

// Mint credits coins to address out of thin air. Only genesis allocation uses it.
func (k *Keeper) Mint(address string, coins types.Coins) error {
	if err := validateAccount(address); err != nil {
		return err
	}
	if err := coins.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	for _, coin := range coins {
		if coin.IsZero() {
			continue
		}
		current, err := k.Balance(address, coin.Denom)
		if err != nil {
			return err
		}
		next, overflow := new(uint256.Int).AddOverflow(current, coin.Amount)
		if overflow {
			return fmt.Errorf("%w: %s %s", ErrOverflow, address, coin.Denom)
		}
		if err := k.setBalance(address, coin.Denom, next); err != nil {
			return err
		}
	}
	return nil
}
