package bank

import (
	"fmt"

	"github.com/holiman/uint256"

	"donex/core/events"
	"donex/core/types"
)

// Send moves coins from one account to another. Zero-valued entries are
// skipped. Every coin is checked before any balance is written so a failed
// send leaves the store untouched. The returned transfers describe each
// movement that took place.
func (k *Keeper) Send(from, to string, coins types.Coins) ([]events.Transfer, error) {
	if err := validateAccount(from); err != nil {
		return nil, err
	}
	if err := validateAccount(to); err != nil {
		return nil, err
	}
	if err := coins.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	type move struct {
		denom     string
		amount    *uint256.Int
		fromAfter *uint256.Int
	}
	moves := make([]move, 0, len(coins))
	for _, coin := range coins {
		if coin.IsZero() {
			continue
		}
		balance, err := k.Balance(from, coin.Denom)
		if err != nil {
			return nil, err
		}
		if balance.Lt(coin.Amount) {
			return nil, fmt.Errorf("%w: %s has %s%s, needs %s", ErrInsufficientFunds, from, balance.Dec(), coin.Denom, coin.String())
		}
		moves = append(moves, move{
			denom:     coin.Denom,
			amount:    new(uint256.Int).Set(coin.Amount),
			fromAfter: new(uint256.Int).Sub(balance, coin.Amount),
		})
	}

	transfers := make([]events.Transfer, 0, len(moves))
	for _, m := range moves {
		if from != to {
			if err := k.setBalance(from, m.denom, m.fromAfter); err != nil {
				return nil, err
			}
			current, err := k.Balance(to, m.denom)
			if err != nil {
				return nil, err
			}
			next, overflow := new(uint256.Int).AddOverflow(current, m.amount)
			if overflow {
				return nil, fmt.Errorf("%w: %s %s", ErrOverflow, to, m.denom)
			}
			if err := k.setBalance(to, m.denom, next); err != nil {
				return nil, err
			}
		}
		transfers = append(transfers, events.Transfer{From: from, To: to, Denom: m.denom, Amount: m.amount.Dec()})
	}
	return transfers, nil
}
