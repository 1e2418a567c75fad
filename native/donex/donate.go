package donex

import (
	"fmt"

	"donex/core/events"
	"donex/core/types"
	"donex/storage"
)

// Donate splits the single attached coin between msg.Recipient and the owner.
// Every payment problem is reported as ErrInvalidDenom. The funds are already
// held by the contract account; the response carries the transfers out.
func (c *Contract) Donate(store storage.KVStore, env types.Env, info types.MessageInfo, msg DonateMsg) (*types.Response, error) {
	state, err := LoadState(store)
	if err != nil {
		return nil, err
	}
	if len(info.Funds) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one coin, got %d", ErrInvalidDenom, len(info.Funds))
	}
	coin := info.Funds[0]
	if !state.Accepts(coin.Denom) {
		return nil, fmt.Errorf("%w: %q is not accepted", ErrInvalidDenom, coin.Denom)
	}
	if coin.IsZero() {
		return nil, fmt.Errorf("%w: zero amount", ErrInvalidDenom)
	}
	if msg.Amount != "" {
		declared, err := types.ParseAmount(msg.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDenom, err)
		}
		if !declared.Eq(coin.Amount) {
			return nil, fmt.Errorf("%w: declared amount %s does not match attached %s", ErrInvalidDenom, declared.Dec(), coin.Amount.Dec())
		}
	}
	recipient, err := c.validateAddress(msg.Recipient)
	if err != nil {
		return nil, err
	}

	net, fee := SplitDonation(coin.Amount)
	resp := types.NewResponse()
	if !net.IsZero() {
		resp.AddMessage(types.BankSend{ToAddress: recipient, Amount: types.Coins{{Denom: coin.Denom, Amount: net}}})
	}
	if !fee.IsZero() {
		resp.AddMessage(types.BankSend{ToAddress: state.Owner, Amount: types.Coins{{Denom: coin.Denom, Amount: fee}}})
	}
	resp.AddAttribute("action", "donate").
		AddAttribute("amount", net.Dec()).
		AddAttribute("sender", info.Sender).
		AddAttribute("fee", fee.Dec()).
		AddAttribute("denom", coin.Denom)
	resp.AddEvent(events.Donation{
		Donor:     info.Sender,
		Recipient: recipient,
		Owner:     state.Owner,
		Denom:     coin.Denom,
		Gross:     coin.Amount.Dec(),
		Net:       net.Dec(),
		Fee:       fee.Dec(),
		Height:    env.Block.Height,
	}.Event())
	return resp, nil
}
