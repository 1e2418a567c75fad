package donex

import (
	"encoding/json"
	"fmt"
	"strings"

	"donex/core/events"
	"donex/core/types"
	"donex/crypto"
	"donex/native/registry"
	"donex/storage"
)

// Contract links social identities to addresses and splits donations. It
// holds no state of its own; every call reads and writes the store it is
// handed, so the host decides what commits.
type Contract struct {
	validator crypto.Validator
}

// New returns a contract that validates addresses with validator.
func New(validator crypto.Validator) *Contract {
	return &Contract{validator: validator}
}

func (c *Contract) validateAddress(addr string) (string, error) {
	canonical, err := c.validator.Validate(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return canonical, nil
}

// Instantiate decodes raw as an InstantiateMsg and applies it.
func (c *Contract) Instantiate(store storage.KVStore, env types.Env, info types.MessageInfo, raw []byte) (*types.Response, error) {
	msg, err := ParseInstantiateMsg(raw)
	if err != nil {
		return nil, err
	}
	return c.InstantiateWith(store, env, info, msg)
}

// InstantiateWith records the sender as owner together with the accepted
// tokens and registry options. It fails if the contract already has an owner.
func (c *Contract) InstantiateWith(store storage.KVStore, env types.Env, info types.MessageInfo, msg InstantiateMsg) (*types.Response, error) {
	done, err := instantiated(store)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, ErrAlreadyInstantiated
	}
	owner, err := c.validateAddress(info.Sender)
	if err != nil {
		return nil, err
	}
	mode, err := registry.ParseMode(msg.RegistryMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	tokens := make([]string, 0, len(msg.AcceptedToken))
	seen := make(map[string]struct{}, len(msg.AcceptedToken))
	for _, denom := range msg.AcceptedToken {
		denom = strings.TrimSpace(denom)
		if err := types.ValidateDenom(denom); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDenom, err)
		}
		if _, dup := seen[denom]; dup {
			return nil, fmt.Errorf("%w: duplicate accepted token %q", ErrInvalidDenom, denom)
		}
		seen[denom] = struct{}{}
		tokens = append(tokens, denom)
	}
	if err := saveState(store, owner, tokens, mode, msg.ForbidOwnerLink); err != nil {
		return nil, err
	}

	resp := types.NewResponse().
		AddAttribute("method", "instantiate").
		AddAttribute("owner", owner)
	resp.AddEvent(events.ContractInstantiated{
		Owner:          owner,
		AcceptedTokens: tokens,
		RegistryMode:   string(mode),
		Height:         env.Block.Height,
	}.Event())
	return resp, nil
}

// Execute decodes raw as an ExecuteMsg and dispatches it.
func (c *Contract) Execute(store storage.KVStore, env types.Env, info types.MessageInfo, raw []byte) (*types.Response, error) {
	msg, err := ParseExecuteMsg(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case msg.SubmitSocial != nil:
		return c.SubmitSocial(store, env, info, *msg.SubmitSocial)
	case msg.Donate != nil:
		return c.Donate(store, env, info, *msg.Donate)
	default:
		return nil, ErrInvalidMessage
	}
}

// SubmitSocial links msg.SocialInfo to msg.Address. Only the owner may link.
func (c *Contract) SubmitSocial(store storage.KVStore, env types.Env, info types.MessageInfo, msg SubmitSocialMsg) (*types.Response, error) {
	state, err := LoadState(store)
	if err != nil {
		return nil, err
	}
	if info.Sender != state.Owner {
		return nil, ErrUnauthorized
	}
	address, err := c.validateAddress(msg.Address)
	if err != nil {
		return nil, err
	}
	if state.ForbidOwnerLink && address == state.Owner {
		return nil, ErrCannotSetOwnAccount
	}
	social := msg.SocialInfo
	if err := social.Validate(); err != nil {
		return nil, err
	}
	if err := state.Registry.Link(social, address, env); err != nil {
		return nil, err
	}

	resp := types.NewResponse().AddAttribute("method", "submit_social_link")
	resp.AddEvent(events.SocialLinked{
		Address:   address,
		Platform:  social.Platform,
		ProfileID: social.ProfileID,
		Height:    env.Block.Height,
	}.Event())
	return resp, nil
}

// Query decodes raw as a QueryMsg and returns the JSON encoded result.
func (c *Contract) Query(store storage.KVStore, env types.Env, raw []byte) ([]byte, error) {
	msg, err := ParseQueryMsg(raw)
	if err != nil {
		return nil, err
	}
	var result interface{}
	switch {
	case msg.GetAddressesBySocial != nil:
		result, err = c.AddressesBySocial(store, *msg.GetAddressesBySocial)
	case msg.GetSocialsByAddress != nil:
		result, err = c.SocialsByAddress(store, *msg.GetSocialsByAddress)
	case msg.GetSocial != nil:
		result, err = c.Social(store, *msg.GetSocial)
	case msg.Config != nil:
		result, err = c.Config(store)
	default:
		err = ErrInvalidMessage
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

func socialFromQuery(q SocialQuery) (registry.SocialInfo, error) {
	return registry.NewSocialInfo(q.Platform, q.ProfileID)
}

// AddressesBySocial lists every address linked to the identity in insertion
// order. A miss yields an empty list.
func (c *Contract) AddressesBySocial(store storage.KVStore, q SocialQuery) (*AddressesResponse, error) {
	state, err := LoadState(store)
	if err != nil {
		return nil, err
	}
	social, err := socialFromQuery(q)
	if err != nil {
		return nil, err
	}
	addrs, err := state.Registry.AddressesBySocial(social)
	if err != nil {
		return nil, err
	}
	return &AddressesResponse{Address: addrs}, nil
}

// SocialsByAddress lists every identity linked to the address in insertion
// order. A miss yields an empty list.
func (c *Contract) SocialsByAddress(store storage.KVStore, q AddressQuery) (*SocialsResponse, error) {
	state, err := LoadState(store)
	if err != nil {
		return nil, err
	}
	address, err := c.validateAddress(q.Address)
	if err != nil {
		return nil, err
	}
	socials, err := state.Registry.SocialsByAddress(address)
	if err != nil {
		return nil, err
	}
	return &SocialsResponse{SocialInfos: socials}, nil
}

// Social resolves a single address for the identity or fails with
// ErrSocialInfoNotFound.
func (c *Contract) Social(store storage.KVStore, q SocialQuery) (*SocialResponse, error) {
	state, err := LoadState(store)
	if err != nil {
		return nil, err
	}
	social, err := socialFromQuery(q)
	if err != nil {
		return nil, err
	}
	addr, err := state.Registry.Resolve(social)
	if err != nil {
		return nil, err
	}
	return &SocialResponse{Address: addr}, nil
}

// Config reports the write-once contract configuration.
func (c *Contract) Config(store storage.KVStore) (*ConfigResponse, error) {
	state, err := LoadState(store)
	if err != nil {
		return nil, err
	}
	info, err := LoadContractInfo(store)
	if err != nil {
		return nil, err
	}
	return &ConfigResponse{
		Owner:           state.Owner,
		AcceptedToken:   state.AcceptedToken,
		RegistryMode:    string(state.RegistryMode),
		ForbidOwnerLink: state.ForbidOwnerLink,
		Contract:        info,
	}, nil
}
