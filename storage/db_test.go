package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openEngines(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	level, err := NewLevelDB(filepath.Join(dir, "level"))
	require.NoError(t, err)
	bolt, err := NewBoltDB(filepath.Join(dir, "state.bolt"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		level.Close()
		bolt.Close()
	})
	return map[string]Database{
		"memory":  NewMemDB(),
		"leveldb": level,
		"bolt":    bolt,
	}
}

func collect(t *testing.T, db Database, prefix string) []string {
	t.Helper()
	it := db.NewIterator([]byte(prefix))
	defer it.Release()
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Error())
	return keys
}

func TestDatabaseEngines(t *testing.T) {
	for name, db := range openEngines(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("b/2"), []byte("two")))
			require.NoError(t, db.Put([]byte("b/1"), []byte("one")))
			require.NoError(t, db.Put([]byte("a/1"), []byte("other")))
			require.NoError(t, db.Put([]byte("b/10"), []byte("ten")))

			value, err := db.Get([]byte("b/1"))
			require.NoError(t, err)
			require.Equal(t, []byte("one"), value)

			_, err = db.Get([]byte("missing"))
			require.ErrorIs(t, err, ErrNotFound)

			ok, err := db.Has([]byte("a/1"))
			require.NoError(t, err)
			require.True(t, ok)

			require.Equal(t, []string{"b/1", "b/10", "b/2"}, collect(t, db, "b/"))

			require.NoError(t, db.Delete([]byte("b/10")))
			require.Equal(t, []string{"b/1", "b/2"}, collect(t, db, "b/"))
			require.Empty(t, collect(t, db, "z/"))
		})
	}
}

func TestDatabaseBatchAtomicWrite(t *testing.T) {
	for name, db := range openEngines(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("k/gone"), []byte("x")))
			batch := db.NewBatch()
			batch.Put([]byte("k/a"), []byte("1"))
			batch.Put([]byte("k/b"), []byte("2"))
			batch.Delete([]byte("k/gone"))
			require.Equal(t, 3, batch.Len())

			// Nothing is visible before Write.
			require.Equal(t, []string{"k/gone"}, collect(t, db, "k/"))

			require.NoError(t, batch.Write())
			require.Equal(t, []string{"k/a", "k/b"}, collect(t, db, "k/"))
		})
	}
}

func TestCacheOverlayAndDiscard(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("p/a"), []byte("1")))
	require.NoError(t, db.Put([]byte("p/b"), []byte("2")))

	cache := NewCache(db)
	require.NoError(t, cache.Set([]byte("p/c"), []byte("3")))
	require.NoError(t, cache.Delete([]byte("p/a")))

	value, ok, err := cache.Get([]byte("p/c"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("3"), value)

	_, ok, err = cache.Get([]byte("p/a"))
	require.NoError(t, err)
	require.False(t, ok)

	var seen []string
	require.NoError(t, cache.Iterate([]byte("p/"), func(key, _ []byte) error {
		seen = append(seen, string(key))
		return nil
	}))
	require.Equal(t, []string{"p/b", "p/c"}, seen)

	cache.Discard()
	require.Equal(t, []string{"p/a", "p/b"}, collect(t, db, "p/"))
}

func TestCacheCommit(t *testing.T) {
	db := NewMemDB()
	cache := NewCache(db)
	require.NoError(t, cache.Set([]byte("x"), []byte("1")))
	require.Equal(t, 1, cache.Pending())
	require.NoError(t, cache.Commit())
	require.Zero(t, cache.Pending())

	value, err := db.Get([]byte("x"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)
}

func TestPrefixStoreStripsNamespace(t *testing.T) {
	cache := NewCache(NewMemDB())
	scoped := NewPrefixStore(cache, []byte("ns/"))
	require.NoError(t, scoped.Set([]byte("k1"), []byte("v1")))
	require.NoError(t, scoped.Set([]byte("k2"), []byte("v2")))
	require.NoError(t, cache.Set([]byte("other"), []byte("v")))

	_, ok, err := cache.Get([]byte("ns/k1"))
	require.NoError(t, err)
	require.True(t, ok)

	var keys []string
	require.NoError(t, scoped.Iterate(nil, func(key, _ []byte) error {
		keys = append(keys, string(key))
		if len(keys) == 1 {
			return ErrStopIteration
		}
		return nil
	}))
	require.Equal(t, []string{"k1"}, keys)
}

func TestKVPutGetRLP(t *testing.T) {
	store := NewCache(NewMemDB())
	type record struct {
		Name  string
		Count uint64
	}
	require.NoError(t, KVPut(store, []byte("rec"), &record{Name: "a", Count: 7}))

	var out record
	ok, err := KVGet(store, []byte("rec"), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record{Name: "a", Count: 7}, out)

	ok, err = KVGet(store, []byte("missing"), &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCompositeKeyRoundTrip(t *testing.T) {
	key := CompositeKey([]byte("idx/"), []byte("twitter"), []byte("123"))
	rest := key[len("idx/"):]

	platform, rest, err := ReadPart(rest)
	require.NoError(t, err)
	require.Equal(t, "twitter", string(platform))

	profile, rest, err := ReadPart(rest)
	require.NoError(t, err)
	require.Equal(t, "123", string(profile))
	require.Empty(t, rest)

	_, _, err = ReadPart([]byte{0x09, 'a'})
	require.ErrorIs(t, err, ErrMalformedKey)
	_, _, err = ReadPart([]byte{0x80})
	require.ErrorIs(t, err, ErrMalformedKey)

	// "ab"+"c" and "a"+"bc" must not collide.
	require.NotEqual(t,
		CompositeKey(nil, []byte("ab"), []byte("c")),
		CompositeKey(nil, []byte("a"), []byte("bc")))

	seq, tail, err := ReadUint64(append(Uint64Key(42), 'x'))
	require.NoError(t, err)
	require.Equal(t, uint64(42), seq)
	require.Equal(t, []byte("x"), tail)
}

func TestCompositeKeyKeepsLongParts(t *testing.T) {
	shared := bytes.Repeat([]byte("a"), 1<<16)
	first := append(append([]byte(nil), shared...), 'x')
	second := append(append([]byte(nil), shared...), 'y')

	k1 := CompositeKey([]byte("idx/"), first, []byte("denom"))
	k2 := CompositeKey([]byte("idx/"), second, []byte("denom"))
	require.NotEqual(t, k1, k2)

	part, rest, err := ReadPart(k1[len("idx/"):])
	require.NoError(t, err)
	require.Equal(t, first, part)

	denom, rest, err := ReadPart(rest)
	require.NoError(t, err)
	require.Equal(t, "denom", string(denom))
	require.Empty(t, rest)
}
