package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docquery/core"
	"github.com/poiesic/docquery/storage"
)

// AnswerRepository implements storage.AnswerRepository for BadgerDB.
type AnswerRepository struct {
	backend *Backend
}

var _ storage.AnswerRepository = (*AnswerRepository)(nil)

// NewAnswerRepository creates a new AnswerRepository.
// Answer IDs are content-based, so no sequence is needed.
func NewAnswerRepository(backend *Backend) *AnswerRepository {
	return &AnswerRepository{backend: backend}
}

// Close is a no-op; the repository holds no resources of its own.
func (r *AnswerRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *AnswerRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddAnswerRecords adds one or more answer records to storage.
func (r *AnswerRepository) AddAnswerRecords(ctx context.Context, records ...*core.AnswerRecord) ([]*core.AnswerRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			if record.CreatedAt.IsZero() {
				record.CreatedAt = time.Now().UTC()
			}
			if record.Id == 0 {
				record.Id = core.IDFromContent(record.Question + "\x00" + record.CreatedAt.String())
			}

			key := makeAnswerKey(record.Id)
			if err := tx.Set(key, storage.MarshalAnswerRecord(record)); err != nil {
				return err
			}

			// Maintain the date index for newest-first listing
			dateKey := makeAnswerDateKey(record.CreatedAt, record.Id)
			if err := tx.Set(dateKey, storage.MarshalID(record.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return records, err
}

// GetAnswerRecord retrieves a single answer record by ID.
func (r *AnswerRepository) GetAnswerRecord(ctx context.Context, id core.ID) (*core.AnswerRecord, error) {
	var result *core.AnswerRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeAnswerKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			result, err = storage.UnmarshalAnswerRecord(val)
			return err
		})
	}, false)
	return result, err
}

// ListAnswerRecords retrieves up to limit answer records, newest first.
func (r *AnswerRepository) ListAnswerRecords(ctx context.Context, limit int) ([]*core.AnswerRecord, error) {
	var results []*core.AnswerRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key in the date index
		startKey := makePartialAnswerDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(answerDatePrefix + ":")

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			key := iter.Item().Key()
			if len(key) < len(prefix) || string(key[:len(prefix)]) != string(prefix) {
				break
			}

			var recordID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				recordID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			item, err := tx.Get(makeAnswerKey(recordID))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			var record *core.AnswerRecord
			if err := item.Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalAnswerRecord(val)
				return err
			}); err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	}, false)

	return results, err
}
