package storage

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Database is a generic interface for an ordered key-value store.
// This allows the node to use any database backend (in-memory or persistent).
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	// NewIterator walks every key starting with prefix in ascending byte order.
	NewIterator(prefix []byte) Iterator
	// NewBatch buffers writes that are applied atomically by Batch.Write.
	NewBatch() Batch
	Close() // A way to gracefully shut down the database connection.
}

// Iterator walks a snapshot of key/value pairs. Key and Value return copies
// that remain valid after Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Batch collects writes for a single atomic commit.
type Batch interface {
	Put(key []byte, value []byte)
	Delete(key []byte)
	Len() int
	Write() error
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (db *MemDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

// NewIterator snapshots the matching entries so callers may write to the
// database while iterating.
func (db *MemDB) NewIterator(prefix []byte) Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()
	entries := make([]kvPair, 0)
	for k, v := range db.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			entries = append(entries, kvPair{key: []byte(k), value: append([]byte(nil), v...)})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})
	return &sliceIterator{entries: entries, pos: -1}
}

func (db *MemDB) NewBatch() Batch {
	return &memBatch{db: db}
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	// Nothing to close for an in-memory database.
}

type memBatch struct {
	db  *MemDB
	ops []batchOp
}

func (b *memBatch) Put(key []byte, value []byte) {
	b.ops = append(b.ops, batchOp{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

func (b *memBatch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: append([]byte(nil), key...), delete: true})
}

func (b *memBatch) Len() int { return len(b.ops) }

func (b *memBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for _, op := range b.ops {
		if op.delete {
			delete(b.db.data, string(op.key))
			continue
		}
		b.db.data[string(op.key)] = op.value
	}
	b.ops = nil
	return nil
}

// --- Persistent DB (for mainnet) ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Put inserts or updates a key-value pair.
func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, nil)
}

func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, nil)
}

func (ldb *LevelDB) NewIterator(prefix []byte) Iterator {
	return &levelIterator{it: ldb.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (ldb *LevelDB) NewBatch() Batch {
	return &levelBatch{db: ldb.db, batch: new(leveldb.Batch)}
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.db.Close()
}

type levelIterator struct {
	it iterator.Iterator
}

func (i *levelIterator) Next() bool { return i.it.Next() }

// LevelDB reuses its key/value buffers between steps.
func (i *levelIterator) Key() []byte   { return append([]byte(nil), i.it.Key()...) }
func (i *levelIterator) Value() []byte { return append([]byte(nil), i.it.Value()...) }
func (i *levelIterator) Error() error  { return i.it.Error() }
func (i *levelIterator) Release()      { i.it.Release() }

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Put(key []byte, value []byte) { b.batch.Put(key, value) }
func (b *levelBatch) Delete(key []byte)            { b.batch.Delete(key) }
func (b *levelBatch) Len() int                     { return b.batch.Len() }

func (b *levelBatch) Write() error {
	if err := b.db.Write(b.batch, nil); err != nil {
		return err
	}
	b.batch.Reset()
	return nil
}

// --- shared helpers ---

type kvPair struct {
	key   []byte
	value []byte
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

type sliceIterator struct {
	entries []kvPair
	pos     int
}

func (i *sliceIterator) Next() bool {
	if i.pos+1 >= len(i.entries) {
		i.pos = len(i.entries)
		return false
	}
	i.pos++
	return true
}

func (i *sliceIterator) Key() []byte {
	if i.pos < 0 || i.pos >= len(i.entries) {
		return nil
	}
	return append([]byte(nil), i.entries[i.pos].key...)
}

func (i *sliceIterator) Value() []byte {
	if i.pos < 0 || i.pos >= len(i.entries) {
		return nil
	}
	return append([]byte(nil), i.entries[i.pos].value...)
}

func (i *sliceIterator) Error() error { return nil }
func (i *sliceIterator) Release()     { i.entries = nil }
