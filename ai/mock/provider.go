// Copyright 2025 Emberlight Labs
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


package mock

import "github.com/emberlight/distill/ai"

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	distiller *MockDistiller
}

// NewMockProvider creates a new mock provider with a default mock distiller.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockDistiller() to access the concrete type for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		distiller: NewMockDistiller(),
	}
}

// NewMockProviderWithDistiller creates a mock provider around a custom
// mock distiller.
func NewMockProviderWithDistiller(d *MockDistiller) ai.AIProvider {
	return &MockProvider{distiller: d}
}

// Distiller returns the mock distillation service.
func (p *MockProvider) Distiller() ai.Distiller {
	return p.distiller
}

// GetMockDistiller returns the concrete mock for test assertions.
func (p *MockProvider) GetMockDistiller() *MockDistiller {
	return p.distiller
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}
