package storage

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

// KVStore is the get/set/iterate-by-prefix capability handed to native
// contracts. Iterate visits keys in ascending byte order and stops early when
// fn returns ErrStopIteration or any other error (which is propagated).
type KVStore interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key []byte, value []byte) error
	Delete(key []byte) error
	Iterate(prefix []byte, fn func(key, value []byte) error) error
}

// ErrStopIteration may be returned from an Iterate callback to end the walk
// without reporting an error.
var ErrStopIteration = errors.New("storage: stop iteration")

// Cache buffers writes on top of a Database. Reads observe pending writes.
// Commit applies every pending write through a single batch; Discard drops
// them. A Cache is not safe for concurrent use.
type Cache struct {
	parent Database
	dirty  map[string]*[]byte
}

// NewCache opens a write overlay on parent.
func NewCache(parent Database) *Cache {
	return &Cache{parent: parent, dirty: make(map[string]*[]byte)}
}

func (c *Cache) Get(key []byte) ([]byte, bool, error) {
	if len(key) == 0 {
		return nil, false, errors.New("storage: empty key")
	}
	if pending, ok := c.dirty[string(key)]; ok {
		if pending == nil {
			return nil, false, nil
		}
		return append([]byte(nil), (*pending)...), true, nil
	}
	value, err := c.parent.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *Cache) Set(key []byte, value []byte) error {
	if len(key) == 0 {
		return errors.New("storage: empty key")
	}
	copied := append([]byte(nil), value...)
	c.dirty[string(key)] = &copied
	return nil
}

func (c *Cache) Delete(key []byte) error {
	if len(key) == 0 {
		return errors.New("storage: empty key")
	}
	c.dirty[string(key)] = nil
	return nil
}

// Iterate merges the committed range with pending writes.
func (c *Cache) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	merged := make(map[string][]byte)
	it := c.parent.NewIterator(prefix)
	for it.Next() {
		merged[string(it.Key())] = it.Value()
	}
	err := it.Error()
	it.Release()
	if err != nil {
		return fmt.Errorf("storage: iterate: %w", err)
	}
	for k, pending := range c.dirty {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if pending == nil {
			delete(merged, k)
			continue
		}
		merged[k] = *pending
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), append([]byte(nil), merged[k]...)); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Pending reports the number of buffered writes.
func (c *Cache) Pending() int { return len(c.dirty) }

// Commit writes the buffered changes atomically and resets the cache.
func (c *Cache) Commit() error {
	if len(c.dirty) == 0 {
		return nil
	}
	batch := c.parent.NewBatch()
	keys := make([]string, 0, len(c.dirty))
	for k := range c.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if pending := c.dirty[k]; pending == nil {
			batch.Delete([]byte(k))
		} else {
			batch.Put([]byte(k), *pending)
		}
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	c.dirty = make(map[string]*[]byte)
	return nil
}

// Discard drops every buffered write.
func (c *Cache) Discard() {
	c.dirty = make(map[string]*[]byte)
}

// PrefixStore namespaces a KVStore. Keys passed to and returned from the
// store are relative to the prefix.
type PrefixStore struct {
	parent KVStore
	prefix []byte
}

// NewPrefixStore scopes parent to keys beginning with prefix.
func NewPrefixStore(parent KVStore, prefix []byte) *PrefixStore {
	return &PrefixStore{parent: parent, prefix: append([]byte(nil), prefix...)}
}

func (p *PrefixStore) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	return append(out, k...)
}

func (p *PrefixStore) Get(key []byte) ([]byte, bool, error) {
	return p.parent.Get(p.key(key))
}

func (p *PrefixStore) Set(key []byte, value []byte) error {
	return p.parent.Set(p.key(key), value)
}

func (p *PrefixStore) Delete(key []byte) error {
	return p.parent.Delete(p.key(key))
}

func (p *PrefixStore) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	return p.parent.Iterate(p.key(prefix), func(key, value []byte) error {
		return fn(key[len(p.prefix):], value)
	})
}
