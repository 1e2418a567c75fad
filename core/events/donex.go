package events

import (
	"strconv"
	"strings"

	"donex/core/types"
)

const (
	TypeContractInstantiated = "donex.instantiated"
	TypeSocialLinked         = "donex.social.linked"
	TypeDonation             = "donex.donation"
)

// ContractInstantiated is emitted once when the contract records its owner.
type ContractInstantiated struct {
	Owner          string
	AcceptedTokens []string
	RegistryMode   string
	Height         uint64
}

// EventType implements the Event interface.
func (ContractInstantiated) EventType() string { return TypeContractInstantiated }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e ContractInstantiated) Event() *types.Event {
	return &types.Event{
		Type: TypeContractInstantiated,
		Attributes: map[string]string{
			"owner":          e.Owner,
			"acceptedTokens": strings.Join(e.AcceptedTokens, ","),
			"registryMode":   e.RegistryMode,
			"height":         strconv.FormatUint(e.Height, 10),
		},
	}
}

// SocialLinked is emitted when the owner links a social identity to an address.
type SocialLinked struct {
	Address   string
	Platform  string
	ProfileID string
	Height    uint64
}

// EventType implements the Event interface.
func (SocialLinked) EventType() string { return TypeSocialLinked }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e SocialLinked) Event() *types.Event {
	return &types.Event{
		Type: TypeSocialLinked,
		Attributes: map[string]string{
			"address":   e.Address,
			"platform":  e.Platform,
			"profileId": e.ProfileID,
			"height":    strconv.FormatUint(e.Height, 10),
		},
	}
}

// Donation records a completed donation split.
type Donation struct {
	Donor     string
	Recipient string
	Owner     string
	Denom     string
	Gross     string
	Net       string
	Fee       string
	Height    uint64
}

// EventType implements the Event interface.
func (Donation) EventType() string { return TypeDonation }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e Donation) Event() *types.Event {
	attrs := map[string]string{
		"donor":     e.Donor,
		"recipient": e.Recipient,
		"denom":     e.Denom,
		"gross":     e.Gross,
		"net":       e.Net,
		"fee":       e.Fee,
		"height":    strconv.FormatUint(e.Height, 10),
	}
	if e.Owner != "" {
		attrs["owner"] = e.Owner
	}
	return &types.Event{Type: TypeDonation, Attributes: attrs}
}
