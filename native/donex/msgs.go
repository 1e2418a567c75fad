package donex

import (
	"bytes"
	"encoding/json"
	"fmt"

	"donex/native/registry"
)

// InstantiateMsg configures the contract. Every field is write-once.
type InstantiateMsg struct {
	AcceptedToken   []string `json:"accepted_token"`
	RegistryMode    string   `json:"registry_mode,omitempty"`
	ForbidOwnerLink bool     `json:"forbid_owner_link,omitempty"`
}

// ExecuteMsg is externally tagged: exactly one variant is set.
type ExecuteMsg struct {
	SubmitSocial *SubmitSocialMsg `json:"submit_social,omitempty"`
	Donate       *DonateMsg       `json:"donate,omitempty"`
}

type SubmitSocialMsg struct {
	SocialInfo registry.SocialInfo `json:"social_info"`
	Address    string              `json:"address"`
}

// DonateMsg forwards the attached funds to Recipient. Amount is optional and,
// when present, must equal the attached amount.
type DonateMsg struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount,omitempty"`
}

// QueryMsg is externally tagged: exactly one variant is set.
type QueryMsg struct {
	GetAddressesBySocial *SocialQuery  `json:"get_addresses_by_social,omitempty"`
	GetSocialsByAddress  *AddressQuery `json:"get_socials_by_address,omitempty"`
	GetSocial            *SocialQuery  `json:"get_social,omitempty"`
	Config               *struct{}     `json:"config,omitempty"`
}

type SocialQuery struct {
	ProfileID string `json:"profile_id"`
	Platform  string `json:"platform"`
}

type AddressQuery struct {
	Address string `json:"address"`
}

type AddressesResponse struct {
	Address []string `json:"address"`
}

type SocialsResponse struct {
	SocialInfos []registry.SocialInfo `json:"social_infos"`
}

type SocialResponse struct {
	Address string `json:"address"`
}

type ConfigResponse struct {
	Owner           string       `json:"owner"`
	AcceptedToken   []string     `json:"accepted_token"`
	RegistryMode    string       `json:"registry_mode"`
	ForbidOwnerLink bool         `json:"forbid_owner_link"`
	Contract        ContractInfo `json:"contract_info"`
}

func decodeStrict(raw []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrInvalidMessage)
	}
	return nil
}

// ParseInstantiateMsg decodes an instantiate payload.
func ParseInstantiateMsg(raw []byte) (InstantiateMsg, error) {
	var msg InstantiateMsg
	if err := decodeStrict(raw, &msg); err != nil {
		return InstantiateMsg{}, err
	}
	return msg, nil
}

// ParseExecuteMsg decodes an execute payload and checks that exactly one
// variant is present.
func ParseExecuteMsg(raw []byte) (ExecuteMsg, error) {
	var msg ExecuteMsg
	if err := decodeStrict(raw, &msg); err != nil {
		return ExecuteMsg{}, err
	}
	set := 0
	if msg.SubmitSocial != nil {
		set++
	}
	if msg.Donate != nil {
		set++
	}
	if set != 1 {
		return ExecuteMsg{}, fmt.Errorf("%w: expected exactly one execute variant, got %d", ErrInvalidMessage, set)
	}
	return msg, nil
}

// ParseQueryMsg decodes a query payload and checks that exactly one variant
// is present.
func ParseQueryMsg(raw []byte) (QueryMsg, error) {
	var msg QueryMsg
	if err := decodeStrict(raw, &msg); err != nil {
		return QueryMsg{}, err
	}
	set := 0
	for _, present := range []bool{msg.GetAddressesBySocial != nil, msg.GetSocialsByAddress != nil, msg.GetSocial != nil, msg.Config != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return QueryMsg{}, fmt.Errorf("%w: expected exactly one query variant, got %d", ErrInvalidMessage, set)
	}
	return msg, nil
}
