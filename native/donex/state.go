package donex

import (
	"encoding/json"
	"fmt"

	"donex/native/registry"
	"donex/storage"
)

const (
	// ContractName is recorded in the contract info item at instantiation.
	ContractName = "crates.io:donex"
	// ContractVersion is the version of the contract state layout.
	ContractVersion = "0.1.0"
)

var (
	ownerKey         = []byte("owner")
	acceptedTokenKey = []byte("accepted_token")
	configKey        = []byte("config")
	contractInfoKey  = []byte("contract_info")
	registryPrefix   = []byte("registry/")
)

// ContractInfo names the code that owns the state.
type ContractInfo struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

type storedConfig struct {
	RegistryMode    string
	ForbidOwnerLink bool
}

type acceptedTokens struct {
	Denoms []string
}

// State is the loaded contract configuration plus the registry bound to the
// call's store.
type State struct {
	Owner           string
	AcceptedToken   []string
	RegistryMode    registry.Mode
	ForbidOwnerLink bool
	Registry        registry.Registry
}

// Accepts reports whether denom is in the accepted token set.
func (s *State) Accepts(denom string) bool {
	for _, d := range s.AcceptedToken {
		if d == denom {
			return true
		}
	}
	return false
}

func instantiated(store storage.KVStore) (bool, error) {
	_, ok, err := store.Get(ownerKey)
	return ok, err
}

func saveState(store storage.KVStore, owner string, tokens []string, mode registry.Mode, forbid bool) error {
	if err := store.Set(ownerKey, []byte(owner)); err != nil {
		return err
	}
	if err := storage.KVPut(store, acceptedTokenKey, &acceptedTokens{Denoms: tokens}); err != nil {
		return err
	}
	if err := storage.KVPut(store, configKey, &storedConfig{RegistryMode: string(mode), ForbidOwnerLink: forbid}); err != nil {
		return err
	}
	info, err := json.Marshal(ContractInfo{Contract: ContractName, Version: ContractVersion})
	if err != nil {
		return err
	}
	return store.Set(contractInfoKey, info)
}

// LoadState reads the contract configuration from store.
func LoadState(store storage.KVStore) (*State, error) {
	owner, ok, err := store.Get(ownerKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInstantiated
	}
	var tokens acceptedTokens
	if _, err := storage.KVGet(store, acceptedTokenKey, &tokens); err != nil {
		return nil, err
	}
	var cfg storedConfig
	if _, err := storage.KVGet(store, configKey, &cfg); err != nil {
		return nil, err
	}
	mode, err := registry.ParseMode(cfg.RegistryMode)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(mode, storage.NewPrefixStore(store, registryPrefix))
	if err != nil {
		return nil, err
	}
	if tokens.Denoms == nil {
		tokens.Denoms = []string{}
	}
	return &State{
		Owner:           string(owner),
		AcceptedToken:   tokens.Denoms,
		RegistryMode:    mode,
		ForbidOwnerLink: cfg.ForbidOwnerLink,
		Registry:        reg,
	}, nil
}

// LoadContractInfo returns the stored contract info item.
func LoadContractInfo(store storage.KVStore) (ContractInfo, error) {
	raw, ok, err := store.Get(contractInfoKey)
	if err != nil {
		return ContractInfo{}, err
	}
	if !ok {
		return ContractInfo{}, ErrNotInstantiated
	}
	var info ContractInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return ContractInfo{}, fmt.Errorf("donex: decode contract info: %w", err)
	}
	return info, nil
}
