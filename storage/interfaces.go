package storage

import (
	"context"

	"github.com/emberlight/distill/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ItemRepository provides operations for managing work items.
type ItemRepository interface {
	Repository

	// AddItem persists a new item. Derives the item ID from kind, source
	// and creation instant, sets CreatedAt if zero, and assigns the next
	// QueueIndex from the backend sequence.
	// Returns ErrDuplicateKey if an item with the same ID already exists.
	AddItem(ctx context.Context, item *core.Item) (*core.Item, error)

	// UpdateItem applies mutate to the stored item in a single-key
	// read-modify-write transaction and returns the mutated item.
	// If mutate returns an error, nothing is written and the error is
	// returned. Returns ErrNotFound if the item doesn't exist.
	UpdateItem(ctx context.Context, id core.ID, mutate func(item *core.Item) error) (*core.Item, error)

	// DeleteItem removes an item by ID, including its queue index entry.
	// Returns ErrNotFound if the item doesn't exist.
	DeleteItem(ctx context.Context, id core.ID) error

	// GetItem retrieves a single item by ID.
	// Returns ErrNotFound if the item doesn't exist.
	GetItem(ctx context.Context, id core.ID) (*core.Item, error)

	// GetAllItems retrieves every stored item, in no particular order.
	GetAllItems(ctx context.Context) ([]*core.Item, error)

	// GetPendingItems retrieves PENDING, non-playlist items ordered by
	// QueueIndex ascending (FIFO).
	GetPendingItems(ctx context.Context) ([]*core.Item, error)

	// GetItemsByParent retrieves items whose ParentId equals parentID.
	GetItemsByParent(ctx context.Context, parentID core.ID) ([]*core.Item, error)

	// NextQueueIndex returns the next value of the queue ordering sequence.
	// Used on retry to move an item to the back of the FIFO queue.
	NextQueueIndex() (uint64, error)
}

// ContentRepository provides operations for extraction/distillation output.
type ContentRepository interface {
	Repository

	// PutContent stores or replaces the content for content.ItemId,
	// stamping UpdatedAt.
	PutContent(ctx context.Context, content *core.Content) error

	// GetContent retrieves the content for an item.
	// Returns ErrNotFound if no content has been stored.
	GetContent(ctx context.Context, itemID core.ID) (*core.Content, error)

	// DeleteContent removes the content for an item. Deleting absent
	// content is not an error.
	DeleteContent(ctx context.Context, itemID core.ID) error
}
