// Copyright 2025 JPVia Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/storage"
)

// GenerationRepository implements storage.GenerationRepository for BadgerDB.
type GenerationRepository struct {
	backend *Backend
}

var _ storage.GenerationRepository = (*GenerationRepository)(nil)

// NewGenerationRepository creates a new GenerationRepository.
func NewGenerationRepository(backend *Backend) *GenerationRepository {
	return &GenerationRepository{
		backend: backend,
	}
}

// SaveGeneration persists the published index generation.
func (r *GenerationRepository) SaveGeneration(ctx context.Context, generation core.Generation) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeGenerationKey()
		value := storage.MarshalGeneration(generation)
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadGeneration retrieves the persisted generation.
// Returns 0 if none has been saved.
func (r *GenerationRepository) LoadGeneration(ctx context.Context) (core.Generation, error) {
	var generation core.Generation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeGenerationKey()
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			generation, unmarshalErr = storage.UnmarshalGeneration(val)
			return unmarshalErr
		})
	}, false)

	return generation, err
}
