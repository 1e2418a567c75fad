package registry

import (
	"errors"
	"fmt"

	"donex/core/types"
	"donex/storage"
)

var (
	multiPrimaryPrefix = []byte("infos/")
	multiAddressIndex  = []byte("infos__address/")
	multiSocialIndex   = []byte("infos__social_info/")
	multiSeqKey        = []byte("infos__seq")
)

// multiRegistry is a primary table keyed by (address, platform) with two
// secondary indexes. Index keys end with the record's insertion sequence so
// prefix scans yield records in insertion order.
type multiRegistry struct {
	store storage.KVStore
}

func primaryKey(address, platform string) []byte {
	return storage.CompositeKey(multiPrimaryPrefix, []byte(address), []byte(platform))
}

func addressIndexPrefix(address string) []byte {
	return storage.CompositeKey(multiAddressIndex, []byte(address))
}

func addressIndexKey(address string, seq uint64) []byte {
	return append(addressIndexPrefix(address), storage.Uint64Key(seq)...)
}

func socialIndexPrefix(info SocialInfo) []byte {
	return storage.CompositeKey(multiSocialIndex, []byte(info.Platform), []byte(info.ProfileID))
}

func socialIndexKey(info SocialInfo, seq uint64) []byte {
	return append(socialIndexPrefix(info), storage.Uint64Key(seq)...)
}

func (r *multiRegistry) Mode() Mode { return ModeMulti }

func (r *multiRegistry) nextSeq() (uint64, error) {
	raw, ok, err := r.store.Get(multiSeqKey)
	if err != nil {
		return 0, err
	}
	var seq uint64
	if ok {
		if seq, _, err = storage.ReadUint64(raw); err != nil {
			return 0, err
		}
	}
	seq++
	if err := r.store.Set(multiSeqKey, storage.Uint64Key(seq)); err != nil {
		return 0, err
	}
	return seq, nil
}

// Link stores or overwrites the record for (address, platform). An overwrite
// keeps the original sequence and drops the previous index entries before
// writing the new ones.
func (r *multiRegistry) Link(info SocialInfo, address string, env types.Env) error {
	info, address, err := prepare(info, address)
	if err != nil {
		return err
	}
	pk := primaryKey(address, info.Platform)

	var existing UserInfo
	found, err := storage.KVGet(r.store, pk, &existing)
	if err != nil {
		return err
	}
	var seq uint64
	if found {
		seq = existing.Seq
		if err := r.store.Delete(addressIndexKey(existing.Address, existing.Seq)); err != nil {
			return err
		}
		if err := r.store.Delete(socialIndexKey(existing.Social(), existing.Seq)); err != nil {
			return err
		}
	} else if seq, err = r.nextSeq(); err != nil {
		return err
	}

	record := &UserInfo{
		Address:   address,
		Platform:  info.Platform,
		ProfileID: info.ProfileID,
		Seq:       seq,
		LinkedAt:  linkedAt(env),
		Height:    env.Block.Height,
	}
	if err := storage.KVPut(r.store, pk, record); err != nil {
		return err
	}
	if err := r.store.Set(addressIndexKey(address, seq), pk); err != nil {
		return err
	}
	return r.store.Set(socialIndexKey(info, seq), pk)
}

func (r *multiRegistry) scan(prefix []byte) ([]UserInfo, error) {
	records := make([]UserInfo, 0)
	err := r.store.Iterate(prefix, func(_, pk []byte) error {
		var record UserInfo
		ok, err := storage.KVGet(r.store, pk, &record)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %x", errDanglingIndex, pk)
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *multiRegistry) AddressesBySocial(info SocialInfo) ([]string, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	records, err := r.scan(socialIndexPrefix(info))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Address)
	}
	return out, nil
}

func (r *multiRegistry) SocialsByAddress(address string) ([]SocialInfo, error) {
	records, err := r.scan(addressIndexPrefix(address))
	if err != nil {
		return nil, err
	}
	out := make([]SocialInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Social())
	}
	return out, nil
}

// Resolve returns the earliest address linked to info.
func (r *multiRegistry) Resolve(info SocialInfo) (string, error) {
	addrs, err := r.AddressesBySocial(info)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrSocialInfoNotFound, info)
	}
	return addrs[0], nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrSocialInfoNotFound)
}
