package ai

import "context"

// Distiller transforms extracted plain text into a dense, structured
// summary. Implementations must be thread-safe for concurrent use.
type Distiller interface {
	// Distill sends text to the model and returns the distilled output.
	// The context is honored for cancellation: an aborted context
	// interrupts the in-flight network call.
	// Errors are classified against the sentinel errors in this package
	// (ErrAuthentication, ErrRateLimited, ErrTimeout, ErrInvalidResponse)
	// while preserving the provider's message.
	Distill(ctx context.Context, text string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management.
type AIProvider interface {
	// Distiller returns the text distillation service.
	// The returned Distiller is safe for concurrent use.
	Distiller() Distiller

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
