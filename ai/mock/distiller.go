package mock

import (
	"context"
	"fmt"
	"sync"
)

// MockDistiller is a test double for ai.Distiller.
// It allows custom behavior injection via function fields.
type MockDistiller struct {
	// DistillFunc is called by Distill if set.
	// If nil, uses default deterministic behavior.
	DistillFunc func(ctx context.Context, text string) (string, error)

	mu        sync.Mutex
	callCount int
	lastInput string
}

// NewMockDistiller creates a mock distiller with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockDistiller() *MockDistiller {
	return &MockDistiller{}
}

// Distill returns a deterministic summary derived from the input, unless
// DistillFunc overrides the behavior. It honors context cancellation so
// tests can exercise stop and timeout paths.
func (m *MockDistiller) Distill(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastInput = text
	fn := m.DistillFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	return fmt.Sprintf("distilled(%d chars)", len(text)), nil
}

// CallCount returns the number of times Distill was called.
func (m *MockDistiller) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastInput returns the text passed to the most recent Distill call.
func (m *MockDistiller) LastInput() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastInput
}

// Reset clears recorded calls and injected behavior.
func (m *MockDistiller) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastInput = ""
	m.DistillFunc = nil
}
