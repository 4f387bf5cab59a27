package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/storage"
)

// LongTermRepository implements storage.LongTermRepository for BadgerDB.
type LongTermRepository struct {
	backend *Backend
}

var _ storage.LongTermRepository = (*LongTermRepository)(nil)

// NewLongTermRepository creates a new LongTermRepository.
func NewLongTermRepository(backend *Backend) (*LongTermRepository, error) {
	return &LongTermRepository{
		backend: backend,
	}, nil
}

// Close releases resources. LongTermRepository has no resources to release.
func (r *LongTermRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *LongTermRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertEntries writes entries, overwriting any existing entry with the
// same cluster ID.
func (r *LongTermRepository) UpsertEntries(ctx context.Context, entries ...*core.LongTermEntry) ([]*core.LongTermEntry, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, entry := range entries {
			key := makeLongTermKey(entry.ClusterId)

			old, err := readLongTermEntry(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				entry.CreatedAt = now
			} else {
				entry.CreatedAt = old.CreatedAt
			}
			entry.UpdatedAt = now

			value := storage.MarshalLongTermEntry(entry)
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return entries, err
}

// GetEntry retrieves a single entry by cluster ID.
func (r *LongTermRepository) GetEntry(ctx context.Context, clusterID core.ID) (*core.LongTermEntry, error) {
	var result *core.LongTermEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeLongTermKey(clusterID)
		var err error
		result, err = readLongTermEntry(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetAllEntries retrieves every consolidated entry.
func (r *LongTermRepository) GetAllEntries(ctx context.Context) ([]*core.LongTermEntry, error) {
	var results []*core.LongTermEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(longTermPrefix + ":")
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			item := iter.Item()
			if !hasPrefix(item.Key(), prefix) {
				break
			}

			var entry *core.LongTermEntry
			err := item.Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalLongTermEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry != nil {
				results = append(results, entry)
			}
		}
		return nil
	}, false)

	return results, err
}

// readLongTermEntry reads a consolidated entry from the transaction.
func readLongTermEntry(tx *badger.Txn, key []byte) (*core.LongTermEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.LongTermEntry
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		entry, unmarshalErr = storage.UnmarshalLongTermEntry(val)
		return unmarshalErr
	})
	return entry, err
}
