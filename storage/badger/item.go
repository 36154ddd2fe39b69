package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/emberlight/distill/core"
	"github.com/emberlight/distill/storage"
)

// ItemRepository implements storage.ItemRepository for BadgerDB.
type ItemRepository struct {
	backend  *Backend
	queueSeq *badger.Sequence
}

var _ storage.ItemRepository = (*ItemRepository)(nil)

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(backend *Backend) (*ItemRepository, error) {
	queueSeq, err := backend.GetSequence(itemQueueSeq)
	if err != nil {
		return nil, err
	}

	return &ItemRepository{
		backend:  backend,
		queueSeq: queueSeq,
	}, nil
}

// Close releases the queue index sequence.
func (r *ItemRepository) Close() error {
	return r.queueSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *ItemRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// NextQueueIndex returns the next value of the queue ordering sequence.
func (r *ItemRepository) NextQueueIndex() (uint64, error) {
	next, err := r.queueSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if next == 0 {
		next, err = r.queueSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return next, nil
}

// AddItem persists a new item, deriving its ID and assigning the next
// queue index.
func (r *ItemRepository) AddItem(ctx context.Context, item *core.Item) (*core.Item, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.Id == 0 {
		item.Id = core.NewItemID(item.Kind, item.Source, item.CreatedAt)
	}
	if item.Status == "" {
		item.Status = core.StatusPending
	}

	queueIndex, err := r.NextQueueIndex()
	if err != nil {
		return nil, err
	}
	item.QueueIndex = queueIndex

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeItemKey(item.Id)
		if _, err := tx.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if err := tx.Set(key, storage.MarshalItem(item)); err != nil {
			return err
		}
		if item.Status == core.StatusPending {
			if err := tx.Set(makeItemQueueKey(item.QueueIndex), storage.MarshalID(item.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return item, nil
}

// UpdateItem applies mutate to the stored item in a read-modify-write
// transaction, maintaining the pending-queue index across status and
// queue-index changes.
func (r *ItemRepository) UpdateItem(ctx context.Context, id core.ID, mutate func(item *core.Item) error) (*core.Item, error) {
	var result *core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeItemKey(id)
		item, err := r.readItem(tx, key)
		if err != nil {
			return err
		}
		if item == nil {
			return storage.ErrNotFound
		}

		oldStatus := item.Status
		oldQueueIndex := item.QueueIndex

		if err := mutate(item); err != nil {
			return err
		}
		item.Id = id // the key is immutable

		if err := tx.Set(key, storage.MarshalItem(item)); err != nil {
			return err
		}

		// Keep the pending-queue index in step with the record.
		wasQueued := oldStatus == core.StatusPending
		isQueued := item.Status == core.StatusPending
		if wasQueued && (!isQueued || oldQueueIndex != item.QueueIndex) {
			if err := tx.Delete(makeItemQueueKey(oldQueueIndex)); err != nil {
				return err
			}
		}
		if isQueued && (!wasQueued || oldQueueIndex != item.QueueIndex) {
			if err := tx.Set(makeItemQueueKey(item.QueueIndex), storage.MarshalID(item.Id)); err != nil {
				return err
			}
		}

		result = item
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteItem removes an item and its queue index entry.
func (r *ItemRepository) DeleteItem(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeItemKey(id)
		item, err := r.readItem(tx, key)
		if err != nil {
			return err
		}
		if item == nil {
			return storage.ErrNotFound
		}

		if item.Status == core.StatusPending {
			if err := tx.Delete(makeItemQueueKey(item.QueueIndex)); err != nil {
				return err
			}
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetItem retrieves a single item by ID.
func (r *ItemRepository) GetItem(ctx context.Context, id core.ID) (*core.Item, error) {
	var result *core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readItem(tx, makeItemKey(id))
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

// GetAllItems retrieves every stored item.
func (r *ItemRepository) GetAllItems(ctx context.Context) ([]*core.Item, error) {
	var results []*core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(itemRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var item *core.Item
			err := iter.Item().Value(func(val []byte) error {
				var err error
				item, err = storage.UnmarshalItem(val)
				return err
			})
			if err != nil {
				return err
			}
			if item != nil {
				results = append(results, item)
			}
		}
		return nil
	}, false)
	return results, err
}

// GetPendingItems retrieves PENDING, non-playlist items in FIFO order by
// walking the queue index.
func (r *ItemRepository) GetPendingItems(ctx context.Context) ([]*core.Item, error) {
	var results []*core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(itemQueuePrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if !bytes.HasPrefix(key, prefix) {
				break
			}

			var itemID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				itemID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			item, err := r.readItem(tx, makeItemKey(itemID))
			if err != nil {
				return err
			}
			// A dangling queue entry or a non-pending record is skipped,
			// never surfaced.
			if item == nil || item.Status != core.StatusPending || item.Kind == core.KindPlaylist {
				continue
			}
			results = append(results, item)
		}
		return nil
	}, false)
	return results, err
}

// GetItemsByParent retrieves items whose ParentId equals parentID.
func (r *ItemRepository) GetItemsByParent(ctx context.Context, parentID core.ID) ([]*core.Item, error) {
	items, err := r.GetAllItems(ctx)
	if err != nil {
		return nil, err
	}
	var results []*core.Item
	for _, item := range items {
		if item.ParentId == parentID {
			results = append(results, item)
		}
	}
	return results, nil
}

// readItem reads and unmarshals an item, returning nil if not found.
func (r *ItemRepository) readItem(tx *badger.Txn, key []byte) (*core.Item, error) {
	entry, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var item *core.Item
	err = entry.Value(func(val []byte) error {
		var err error
		item, err = storage.UnmarshalItem(val)
		return err
	})
	return item, err
}
