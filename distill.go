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


package distill

import (
	"log/slog"

	"github.com/emberlight/distill/ai"
	"github.com/emberlight/distill/ai/openai"
	"github.com/emberlight/distill/extract"
	"github.com/emberlight/distill/pipeline"
	"github.com/emberlight/distill/storage"
	"github.com/emberlight/distill/storage/badger"
)

// Store aggregates the storage backend, repositories, AI provider and
// extraction router behind a single open/close lifecycle.
type Store struct {
	backend     *badger.Backend
	itemRepo    storage.ItemRepository
	contentRepo storage.ContentRepository
	provider    ai.AIProvider
	router      *extract.Router
	logger      *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	aiConfig  *ai.Config
	routerCfg extract.RouterConfig
	inMemory  bool
}

// WithAIConfig sets the AI provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) StoreOption {
	return func(o *storeOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithRouterConfig sets the extraction router configuration.
func WithRouterConfig(cfg extract.RouterConfig) StoreOption {
	return func(o *storeOptions) {
		o.routerCfg = cfg
	}
}

// WithInMemory opens the backend in memory instead of on disk.
// Used by tests.
func WithInMemory() StoreOption {
	return func(o *storeOptions) {
		o.inMemory = true
	}
}

// Open opens the store at filePath and wires up its services.
func Open(filePath string, opts ...StoreOption) (*Store, error) {
	options := &storeOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	itemRepo, err := badger.NewItemRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	contentRepo := badger.NewContentRepository(backend)

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		itemRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Store{
		backend:     backend,
		itemRepo:    itemRepo,
		contentRepo: contentRepo,
		provider:    provider,
		router:      extract.NewRouter(options.routerCfg),
		logger:      slog.Default(),
	}, nil
}

// Close releases the AI provider, repositories and backend.
func (s *Store) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	if err := s.itemRepo.Close(); err != nil {
		s.logger.Error("error closing item repository", "err", err)
		return err
	}
	if err := s.contentRepo.Close(); err != nil {
		s.logger.Error("error closing content repository", "err", err)
		return err
	}

	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (s *Store) ItemRepository() storage.ItemRepository {
	return s.itemRepo
}

func (s *Store) ContentRepository() storage.ContentRepository {
	return s.contentRepo
}

func (s *Store) Router() *extract.Router {
	return s.router
}

// NewScheduler creates a pipeline scheduler over this store's
// repositories, provider and router.
func (s *Store) NewScheduler(opts ...pipeline.Option) (*pipeline.Scheduler, error) {
	return pipeline.NewScheduler(s.itemRepo, s.contentRepo, s.provider, s.router, opts...)
}
