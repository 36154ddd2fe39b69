// Package mock provides test double implementations of the ai interfaces.
//
// The mocks allow tests to run without a live model service and enable
// controlled, deterministic behavior:
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider()
//	out, err := provider.Distiller().Distill(ctx, "text")
//
//	// Custom behavior injection
//	d := mock.NewMockDistiller()
//	d.DistillFunc = func(ctx context.Context, text string) (string, error) {
//	    return "", ai.ErrRateLimited
//	}
//
// The default distiller echoes a deterministic summary derived from the
// input, so pipeline tests can assert on persisted output.
package mock
