package journal

import (
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// store is a key-value store backed by Pebble on an in-memory filesystem.
type store struct {
	db *pebble.DB // db is the underlying Pebble database
}

// openStore opens an empty in-memory Pebble database.
func openStore() (*store, error) {
	opts := &pebble.Options{
		FS:           vfs.NewMem(),
		Cache:        pebble.NewCache(8 << 20), // 8 MB cache
		MemTableSize: 4 << 20,                  // 4 MB memtable
	}
	defer opts.Cache.Unref()

	db, err := pebble.Open("journal", opts)
	if err != nil {
		return nil, err
	}

	return &store{db: db}, nil
}

// set stores a key-value pair. Durability is irrelevant in memory.
func (s *store) set(key, value []byte) error {
	return s.db.Set(key, value, pebble.NoSync)
}

// iteratePrefix calls fn for each key-value pair with the given prefix,
// in key order. fn must copy anything it keeps.
func (s *store) iteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		if err := fn(iter.Key(), value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// Increments the last byte; returns nil if prefix is all 0xFF (full range).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}

	return nil
}

func (s *store) close() error {
	return s.db.Close()
}
