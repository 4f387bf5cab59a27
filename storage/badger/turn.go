package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/storage"
)

// TurnRepository implements storage.TurnRepository for BadgerDB.
// The conversation log is append-only: turns are keyed (session, sequence)
// and sequences are assigned here, inside the append transaction.
type TurnRepository struct {
	backend *Backend
}

var _ storage.TurnRepository = (*TurnRepository)(nil)

// NewTurnRepository creates a new TurnRepository.
func NewTurnRepository(backend *Backend) (*TurnRepository, error) {
	return &TurnRepository{
		backend: backend,
	}, nil
}

// Close releases resources. TurnRepository has no resources to release.
func (r *TurnRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *TurnRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// FindSimilarTurns delegates to the backend.
func (r *TurnRepository) FindSimilarTurns(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredTurn, error) {
	return r.backend.FindSimilarTurns(ctx, vector, minSimilarity, limit)
}

// AppendTurn appends a turn to its session.
func (r *TurnRepository) AppendTurn(ctx context.Context, turn *core.ConversationTurn) (*core.ConversationTurn, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Assign the next sequence inside the transaction so concurrent
		// appends to the same session cannot collide.
		seq, err := r.nextSequence(tx, turn.SessionId)
		if err != nil {
			return err
		}
		turn.Sequence = seq

		if turn.Timestamp.IsZero() {
			turn.Timestamp = time.Now().UTC()
		}
		turn.Id = core.IDFromContent(fmt.Sprintf("%s:%d:%s", turn.SessionId, turn.Sequence, turn.Query))

		// Store primary record
		key := makeTurnKey(turn.SessionId, turn.Sequence)
		value := storage.MarshalTurn(turn)
		if err := tx.Set(key, value); err != nil {
			return err
		}

		// Update date index; the value is the primary key so eviction can
		// delete records without parsing composite keys.
		dateKey := makeTurnDateKey(turn.Timestamp, turn.Id)
		if err := tx.Set(dateKey, key); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	return turn, err
}

// UpdateTurns rewrites existing turns in place.
func (r *TurnRepository) UpdateTurns(ctx context.Context, turns ...*core.ConversationTurn) ([]*core.ConversationTurn, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, turn := range turns {
			key := makeTurnKey(turn.SessionId, turn.Sequence)

			old, err := readTurn(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			// Sequence, session, and timestamp are immutable; only record
			// contents (notably the Consolidated flag) may change.
			turn.Timestamp = old.Timestamp
			turn.Id = old.Id

			value := storage.MarshalTurn(turn)
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return turns, err
}

// GetTurn retrieves a single turn by session and sequence.
func (r *TurnRepository) GetTurn(ctx context.Context, sessionID string, sequence uint64) (*core.ConversationTurn, error) {
	var result *core.ConversationTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTurnKey(sessionID, sequence)
		var err error
		result, err = readTurn(tx, key)
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

// GetSessionTurns retrieves all turns of a session in sequence order.
func (r *TurnRepository) GetSessionTurns(ctx context.Context, sessionID string) ([]*core.ConversationTurn, error) {
	var results []*core.ConversationTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = r.sessionTurns(tx, sessionID)
		return err
	}, false)

	return results, err
}

// sessionTurns reads all turns of a session in sequence order.
func (r *TurnRepository) sessionTurns(tx *badger.Txn, sessionID string) ([]*core.ConversationTurn, error) {
	var results []*core.ConversationTurn

	startKey := makePartialTurnKey(sessionID)
	iter := tx.NewIterator(badger.DefaultIteratorOptions)
	defer iter.Close()

	for iter.Seek(startKey); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
			break
		}

		var turn *core.ConversationTurn
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			turn, err = storage.UnmarshalTurn(val)
			return err
		}); err != nil {
			return nil, err
		}
		if turn != nil {
			results = append(results, turn)
		}
	}
	return results, nil
}

// GetRecentTurns retrieves the N most recent turns of a session,
// ordered by sequence descending.
func (r *TurnRepository) GetRecentTurns(ctx context.Context, sessionID string, limit int) ([]*core.ConversationTurn, error) {
	var results []*core.ConversationTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := makePartialTurnKey(sessionID)
		// Seek past the highest possible sequence for this session
		startKey := makeTurnKey(sessionID, ^uint64(0))

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var turn *core.ConversationTurn
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				turn, err = storage.UnmarshalTurn(val)
				return err
			}); err != nil {
				return err
			}
			if turn != nil {
				results = append(results, turn)
				count++
			}
		}
		return nil
	}, false)

	return results, err
}

// GetUnconsolidatedTurns retrieves turns not yet absorbed by consolidation,
// oldest first.
func (r *TurnRepository) GetUnconsolidatedTurns(ctx context.Context, limit int) ([]*core.ConversationTurn, error) {
	var results []*core.ConversationTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		// Walk the date index so results come out oldest first.
		prefix := []byte(turnDatePrefix + ":")
		for iter.Seek(prefix); iter.Valid() && len(results) < limit; iter.Next() {
			key := iter.Item().Key()
			if !hasPrefix(key, prefix) {
				break
			}

			var recordKey []byte
			if err := iter.Item().Value(func(val []byte) error {
				recordKey = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}

			turn, err := readTurn(tx, recordKey)
			if err != nil {
				return err
			}
			if turn != nil && !turn.Consolidated {
				results = append(results, turn)
			}
		}
		return nil
	}, false)

	return results, err
}

// EvictOlderThan removes turns with Timestamp before cutoff.
func (r *TurnRepository) EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	evicted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		endKey := makePartialTurnDateKey(cutoff)

		dateKeys, recordKeys, err := collectDateIndex(tx, func(key []byte) bool {
			return slices.Compare(key, endKey) < 0
		}, -1)
		if err != nil {
			return err
		}

		for i := range dateKeys {
			if err := tx.Delete(recordKeys[i]); err != nil {
				return err
			}
			if err := tx.Delete(dateKeys[i]); err != nil {
				return err
			}
			evicted++
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return evicted, nil
}

// EvictToCap removes the oldest turns until at most maxTurns remain.
func (r *TurnRepository) EvictToCap(ctx context.Context, maxTurns int) (int, error) {
	evicted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		total, err := countDateIndex(tx)
		if err != nil {
			return err
		}
		excess := total - maxTurns
		if excess <= 0 {
			return nil
		}

		dateKeys, recordKeys, err := collectDateIndex(tx, nil, excess)
		if err != nil {
			return err
		}

		for i := range dateKeys {
			if err := tx.Delete(recordKeys[i]); err != nil {
				return err
			}
			if err := tx.Delete(dateKeys[i]); err != nil {
				return err
			}
			evicted++
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return evicted, nil
}

// EvictSessionToCap removes a session's oldest turns until at most
// maxTurns remain in that session.
func (r *TurnRepository) EvictSessionToCap(ctx context.Context, sessionID string, maxTurns int) (int, error) {
	evicted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		turns, err := r.sessionTurns(tx, sessionID)
		if err != nil {
			return err
		}
		excess := len(turns) - maxTurns
		if excess <= 0 {
			return nil
		}

		// Session turns come out in sequence order, oldest first.
		for _, turn := range turns[:excess] {
			if err := tx.Delete(makeTurnKey(turn.SessionId, turn.Sequence)); err != nil {
				return err
			}
			if err := tx.Delete(makeTurnDateKey(turn.Timestamp, turn.Id)); err != nil {
				return err
			}
			evicted++
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return evicted, nil
}

// CountTurns returns the total number of stored turns.
func (r *TurnRepository) CountTurns(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		count, err = countDateIndex(tx)
		return err
	}, false)
	return count, err
}

// Helper methods

// nextSequence returns the next sequence number for a session by reading
// the highest existing key under the session prefix.
func (r *TurnRepository) nextSequence(tx *badger.Txn, sessionID string) (uint64, error) {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	prefix := makePartialTurnKey(sessionID)
	startKey := makeTurnKey(sessionID, ^uint64(0))

	iter.Seek(startKey)
	if !iter.Valid() {
		return 1, nil
	}
	key := iter.Item().Key()
	if len(key) != len(prefix)+8 || slices.Compare(key[:len(prefix)], prefix) != 0 {
		return 1, nil
	}
	last := binary.BigEndian.Uint64(key[len(prefix):])
	return last + 1, nil
}

// collectDateIndex walks the turn date index oldest-first and returns the
// date keys and their record keys. keep filters by date key; nil keeps all.
// max limits the number collected; negative means unlimited.
func collectDateIndex(tx *badger.Txn, keep func(key []byte) bool, max int) ([][]byte, [][]byte, error) {
	var dateKeys, recordKeys [][]byte

	iter := tx.NewIterator(badger.DefaultIteratorOptions)
	defer iter.Close()

	prefix := []byte(turnDatePrefix + ":")
	for iter.Seek(prefix); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if !hasPrefix(key, prefix) {
			break
		}
		if keep != nil && !keep(key) {
			break
		}
		if max >= 0 && len(dateKeys) >= max {
			break
		}

		var recordKey []byte
		if err := iter.Item().Value(func(val []byte) error {
			recordKey = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return nil, nil, err
		}

		dateKeys = append(dateKeys, iter.Item().KeyCopy(nil))
		recordKeys = append(recordKeys, recordKey)
	}
	return dateKeys, recordKeys, nil
}

// countDateIndex counts entries in the turn date index, one per turn.
func countDateIndex(tx *badger.Txn) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	prefix := []byte(turnDatePrefix + ":")
	for iter.Seek(prefix); iter.Valid(); iter.Next() {
		if !hasPrefix(iter.Item().Key(), prefix) {
			break
		}
		count++
	}
	return count, nil
}

// readTurn reads a turn from the transaction.
func readTurn(tx *badger.Txn, key []byte) (*core.ConversationTurn, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var turn *core.ConversationTurn
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		turn, unmarshalErr = storage.UnmarshalTurn(val)
		return unmarshalErr
	})
	return turn, err
}
