package events

import (
	"strings"

	"donex/core/types"
)

const (
	// TypeTransfer is emitted for every native bank balance movement.
	TypeTransfer = "bank.transfer"
)

// Transfer describes one executed bank movement.
type Transfer struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"from":   e.From,
		"to":     e.To,
		"amount": e.Amount,
	}
	if denom := strings.TrimSpace(e.Denom); denom != "" {
		attrs["denom"] = denom
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}
