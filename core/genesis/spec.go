package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"donex/core/types"
	"donex/native/registry"
)

// GenesisSpec seeds a fresh node: the instantiate message sent by Owner,
// initial balances and, optionally, links the owner submits right after.
type GenesisSpec struct {
	ChainID         string                       `json:"chainId,omitempty" yaml:"chainId,omitempty"`
	Owner           string                       `json:"owner" yaml:"owner"`
	AcceptedTokens  []string                     `json:"accepted_tokens" yaml:"accepted_tokens"`
	RegistryMode    string                       `json:"registry_mode,omitempty" yaml:"registry_mode,omitempty"`
	ForbidOwnerLink bool                         `json:"forbid_owner_link,omitempty" yaml:"forbid_owner_link,omitempty"`
	Alloc           map[string]map[string]string `json:"alloc,omitempty" yaml:"alloc,omitempty"` // addr -> denom -> amount
	Links           []LinkSpec                   `json:"links,omitempty" yaml:"links,omitempty"`
}

// LinkSpec is a social link created by the owner at genesis.
type LinkSpec struct {
	Platform  string `json:"platform" yaml:"platform"`
	ProfileID string `json:"profile_id" yaml:"profile_id"`
	Address   string `json:"address" yaml:"address"`
}

// Allocation is one validated genesis balance.
type Allocation struct {
	Address string
	Coins   types.Coins
}

// LoadGenesisSpec reads path as YAML when it ends in .yaml or .yml and as JSON
// otherwise. Unknown fields are rejected in both formats.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec GenesisSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
		}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the spec without touching state.
func (s *GenesisSpec) Validate() error {
	if s == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if strings.TrimSpace(s.Owner) == "" {
		return fmt.Errorf("genesis owner must be provided")
	}
	if _, err := registry.ParseMode(s.RegistryMode); err != nil {
		return fmt.Errorf("genesis registry_mode: %w", err)
	}
	if _, err := s.Allocations(); err != nil {
		return err
	}
	for i, link := range s.Links {
		if _, err := registry.NewSocialInfo(link.Platform, link.ProfileID); err != nil {
			return fmt.Errorf("genesis links[%d]: %w", i, err)
		}
		if strings.TrimSpace(link.Address) == "" {
			return fmt.Errorf("genesis links[%d]: address required", i)
		}
	}
	return nil
}

// Allocations returns the alloc table sorted by address with each account's
// coins sorted by denom, so applying it is deterministic.
func (s *GenesisSpec) Allocations() ([]Allocation, error) {
	addresses := make([]string, 0, len(s.Alloc))
	for addr := range s.Alloc {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	out := make([]Allocation, 0, len(addresses))
	for _, addr := range addresses {
		if strings.TrimSpace(addr) == "" {
			return nil, fmt.Errorf("genesis alloc: empty address")
		}
		coins := make(types.Coins, 0, len(s.Alloc[addr]))
		for denom, amount := range s.Alloc[addr] {
			parsed, err := types.ParseAmount(amount)
			if err != nil {
				return nil, fmt.Errorf("genesis alloc %s/%s: %w", addr, denom, err)
			}
			coins = append(coins, types.Coin{Denom: denom, Amount: parsed})
		}
		coins = coins.Sorted()
		if err := coins.Validate(); err != nil {
			return nil, fmt.Errorf("genesis alloc %s: %w", addr, err)
		}
		out = append(out, Allocation{Address: addr, Coins: coins})
	}
	return out, nil
}

// InstantiateMsg renders the instantiate payload sent by the owner.
func (s *GenesisSpec) InstantiateMsg() ([]byte, error) {
	tokens := s.AcceptedTokens
	if tokens == nil {
		tokens = []string{}
	}
	return json.Marshal(struct {
		AcceptedToken   []string `json:"accepted_token"`
		RegistryMode    string   `json:"registry_mode,omitempty"`
		ForbidOwnerLink bool     `json:"forbid_owner_link,omitempty"`
	}{tokens, s.RegistryMode, s.ForbidOwnerLink})
}
