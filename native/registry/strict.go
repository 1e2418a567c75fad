package registry

import (
	"fmt"

	"donex/core/types"
	"donex/storage"
)

var (
	strictSocialsPrefix   = []byte("socials/")
	strictAddressesPrefix = []byte("addresses/")
)

// strictRegistry keeps two single-valued maps that always agree:
// address -> UserInfo and (platform, profile) -> address.
type strictRegistry struct {
	store storage.KVStore
}

func strictSocialKey(address string) []byte {
	return storage.CompositeKey(strictSocialsPrefix, []byte(address))
}

func strictAddressKey(info SocialInfo) []byte {
	return storage.CompositeKey(strictAddressesPrefix, []byte(info.Platform), []byte(info.ProfileID))
}

func (r *strictRegistry) Mode() Mode { return ModeStrict }

func (r *strictRegistry) Link(info SocialInfo, address string, env types.Env) error {
	info, address, err := prepare(info, address)
	if err != nil {
		return err
	}
	if _, ok, err := r.store.Get(strictAddressKey(info)); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrSocialAlreadyLinked, info)
	}
	if _, ok, err := r.store.Get(strictSocialKey(address)); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrAddressAlreadyLinked, address)
	}
	record := &UserInfo{
		Address:   address,
		Platform:  info.Platform,
		ProfileID: info.ProfileID,
		LinkedAt:  linkedAt(env),
		Height:    env.Block.Height,
	}
	if err := storage.KVPut(r.store, strictSocialKey(address), record); err != nil {
		return err
	}
	return r.store.Set(strictAddressKey(info), []byte(address))
}

func (r *strictRegistry) AddressesBySocial(info SocialInfo) ([]string, error) {
	addr, err := r.Resolve(info)
	if err != nil {
		if isNotFound(err) {
			return []string{}, nil
		}
		return nil, err
	}
	return []string{addr}, nil
}

func (r *strictRegistry) SocialsByAddress(address string) ([]SocialInfo, error) {
	var record UserInfo
	ok, err := storage.KVGet(r.store, strictSocialKey(address), &record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []SocialInfo{}, nil
	}
	return []SocialInfo{record.Social()}, nil
}

func (r *strictRegistry) Resolve(info SocialInfo) (string, error) {
	if err := info.Validate(); err != nil {
		return "", err
	}
	raw, ok, err := r.store.Get(strictAddressKey(info))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSocialInfoNotFound, info)
	}
	return string(raw), nil
}
