package registry

import (
	"fmt"
	"strings"

	"donex/core/types"
	"donex/storage"
)

// Registry stores links between addresses and social identities exactly as
// submitted.
// List queries return an empty slice, never an error, when nothing matches.
type Registry interface {
	Mode() Mode
	Link(info SocialInfo, address string, env types.Env) error
	AddressesBySocial(info SocialInfo) ([]string, error)
	SocialsByAddress(address string) ([]SocialInfo, error)
	Resolve(info SocialInfo) (string, error)
}

// New returns the registry for mode backed by store.
func New(mode Mode, store storage.KVStore) (Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("registry: store required")
	}
	switch mode {
	case ModeStrict:
		return &strictRegistry{store: store}, nil
	case ModeMulti:
		return &multiRegistry{store: store}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

func prepare(info SocialInfo, address string) (SocialInfo, string, error) {
	if err := info.Validate(); err != nil {
		return SocialInfo{}, "", err
	}
	addr := strings.TrimSpace(address)
	if addr == "" {
		return SocialInfo{}, "", fmt.Errorf("registry: address required")
	}
	return info, addr, nil
}

func linkedAt(env types.Env) uint64 {
	if env.Block.Time.IsZero() {
		return 0
	}
	return uint64(env.Block.Time.Unix())
}
