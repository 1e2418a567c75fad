package genesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"donex/core"
	"donex/native/registry"
	"donex/observability/logging"
)

type submitSocial struct {
	SubmitSocial struct {
		SocialInfo registry.SocialInfo `json:"social_info"`
		Address    string              `json:"address"`
	} `json:"submit_social"`
}

// Apply seeds host from spec. It is a no-op returning false when the host is
// already instantiated, so restarting a node never re-applies genesis.
func Apply(ctx context.Context, host *core.Host, spec *GenesisSpec, logger *slog.Logger) (bool, error) {
	if host == nil {
		return false, fmt.Errorf("genesis: host must not be nil")
	}
	if err := spec.Validate(); err != nil {
		return false, err
	}
	logger = logging.OrDefault(logger)
	if host.Instantiated() {
		logger.Info("genesis already applied", slog.Uint64("height", host.Height()))
		return false, nil
	}

	allocs, err := spec.Allocations()
	if err != nil {
		return false, err
	}
	for _, alloc := range allocs {
		if err := host.Mint(alloc.Address, alloc.Coins); err != nil {
			return false, fmt.Errorf("genesis alloc %s: %w", alloc.Address, err)
		}
	}

	msg, err := spec.InstantiateMsg()
	if err != nil {
		return false, err
	}
	if _, err := host.Instantiate(ctx, spec.Owner, msg, nil); err != nil {
		return false, fmt.Errorf("genesis instantiate: %w", err)
	}

	for i, link := range spec.Links {
		var payload submitSocial
		payload.SubmitSocial.SocialInfo = registry.SocialInfo{Platform: link.Platform, ProfileID: link.ProfileID}
		payload.SubmitSocial.Address = link.Address
		raw, err := json.Marshal(payload)
		if err != nil {
			return false, err
		}
		if _, err := host.Execute(ctx, spec.Owner, raw, nil); err != nil {
			return false, fmt.Errorf("genesis links[%d]: %w", i, err)
		}
	}
	logger.Info("genesis applied",
		slog.Int("allocations", len(allocs)),
		slog.Int("links", len(spec.Links)),
		slog.Uint64("height", host.Height()))
	return true, nil
}
