package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/emberlight/distill/core"
	"github.com/emberlight/distill/storage"
)

// ContentRepository implements storage.ContentRepository for BadgerDB.
type ContentRepository struct {
	backend *Backend
}

var _ storage.ContentRepository = (*ContentRepository)(nil)

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(backend *Backend) *ContentRepository {
	return &ContentRepository{backend: backend}
}

// Close is a no-op; the backend owns all resources.
func (r *ContentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ContentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutContent stores or replaces the content for content.ItemId.
func (r *ContentRepository) PutContent(ctx context.Context, content *core.Content) error {
	content.UpdatedAt = time.Now().UTC()
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeContentKey(content.ItemId), storage.MarshalContent(content)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetContent retrieves the content for an item.
func (r *ContentRepository) GetContent(ctx context.Context, itemID core.ID) (*core.Content, error) {
	var result *core.Content
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		entry, err := tx.Get(makeContentKey(itemID))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			result, err = storage.UnmarshalContent(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteContent removes the content for an item.
func (r *ContentRepository) DeleteContent(ctx context.Context, itemID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		err := tx.Delete(makeContentKey(itemID))
		if err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
