package pipeline

import "errors"

var (
	// ErrItemRepositoryRequired is returned when an item repository is not provided.
	ErrItemRepositoryRequired = errors.New("item repository required")

	// ErrContentRepositoryRequired is returned when a content repository is not provided.
	ErrContentRepositoryRequired = errors.New("content repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrRouterRequired is returned when an extraction router is not provided.
	ErrRouterRequired = errors.New("extraction router required")

	// ErrNotTerminal is returned when retry is requested for an item that
	// is still queued or running.
	ErrNotTerminal = errors.New("item is not in a terminal status")

	// ErrNotCompleted is returned when mark-read is requested for an item
	// that has not completed.
	ErrNotCompleted = errors.New("item is not completed")

	// ErrSchedulerClosed is returned when an operation is attempted on a
	// released scheduler.
	ErrSchedulerClosed = errors.New("scheduler closed")
)
