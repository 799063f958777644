package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/heronlancellot/bee2bee/internal/core"
)

const metaKeyPrefix = "repometa/"

// MetaStore persists collection-level metadata: the tenant set, chunk and
// file counts, and timestamps. One record per (repo, branch) collection.
type MetaStore struct {
	db *badger.DB
}

// OpenMeta opens (or creates) the metadata database at path.
func OpenMeta(path string) (*MetaStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open meta store: %w", err)
	}
	return &MetaStore{db: db}, nil
}

// OpenMetaInMemory opens an ephemeral metadata database, used in tests.
func OpenMetaInMemory() (*MetaStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory meta store: %w", err)
	}
	return &MetaStore{db: db}, nil
}

func metaKey(collection string) []byte {
	return []byte(metaKeyPrefix + collection)
}

// Get returns the metadata for a collection, or nil when none is recorded.
func (m *MetaStore) Get(collection string) (*core.RepoMetadata, error) {
	var meta *core.RepoMetadata
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(collection))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			meta = &core.RepoMetadata{}
			return json.Unmarshal(val, meta)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get meta %s: %w", collection, err)
	}
	return meta, nil
}

// Put overwrites the metadata record for a collection.
func (m *MetaStore) Put(collection string, meta *core.RepoMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta %s: %w", collection, err)
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(collection), data)
	})
	if err != nil {
		return fmt.Errorf("put meta %s: %w", collection, err)
	}
	return nil
}

// Update applies fn to the current record inside one transaction, creating
// an empty record when none exists. This is the single-writer path for
// count and timestamp advancement.
func (m *MetaStore) Update(collection string, fn func(*core.RepoMetadata)) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		meta := &core.RepoMetadata{}
		item, err := txn.Get(metaKey(collection))
		if err == nil {
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, meta)
			}); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		fn(meta)
		meta.LastUpdated = time.Now().UTC()

		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return txn.Set(metaKey(collection), data)
	})
	if err != nil {
		return fmt.Errorf("update meta %s: %w", collection, err)
	}
	return nil
}

// AddUser grants a user read access to the collection. Idempotent.
func (m *MetaStore) AddUser(collection, userID string) error {
	return m.Update(collection, func(meta *core.RepoMetadata) {
		if !meta.HasUser(userID) {
			meta.IndexedByUsers = append(meta.IndexedByUsers, userID)
		}
	})
}

// Close closes the underlying database.
func (m *MetaStore) Close() error {
	return m.db.Close()
}
