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


package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/emberlight/distill/ai"
	"github.com/emberlight/distill/core"
	"github.com/emberlight/distill/extract"
	"github.com/emberlight/distill/storage"
)

const (
	// defaultConcurrency is the number of executors allowed to run at once
	// until SetConcurrency raises it.
	defaultConcurrency = 1

	// defaultDistillTimeout bounds one distillation call.
	defaultDistillTimeout = 2 * time.Minute
)

// Dispatcher routes items to extraction strategies and resolves
// playlists. Implemented by extract.Router.
type Dispatcher interface {
	Dispatch(ctx context.Context, item *core.Item) (*extract.Result, error)
	ResolvePlaylist(ctx context.Context, playlistURL string) ([]string, error)
}

// Scheduler owns the work queue. It enforces the concurrency budget,
// launches executors for pending items in FIFO order, and handles the
// control operations (stop, retry, delete, mark-read).
type Scheduler struct {
	items    storage.ItemRepository
	contents storage.ContentRepository
	provider ai.AIProvider
	router   Dispatcher
	registry *Registry

	pool *ants.Pool

	mu          sync.Mutex
	concurrency int
	active      map[core.ID]struct{}
	closed      bool
	paused      bool

	distillTimeout time.Duration
	logger         *slog.Logger

	// fanouts tracks in-flight playlist expansions so Release can wait
	// for them.
	fanouts sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithConcurrency sets the initial concurrency budget.
// Default is 1. Values below 1 are clamped to 1.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) error {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
		return nil
	}
}

// WithDistillTimeout sets the hard timeout for one distillation call.
// Default is 2 minutes.
func WithDistillTimeout(d time.Duration) Option {
	return func(s *Scheduler) error {
		if d <= 0 {
			return fmt.Errorf("distill timeout must be positive, got %v", d)
		}
		s.distillTimeout = d
		return nil
	}
}

// WithPaused makes the scheduler queue and manage items without ever
// launching executors. Control surfaces (one-shot CLI commands) use a
// paused scheduler so enqueueing an item cannot strand it mid-stage
// when the process exits; a separate live scheduler drains the queue.
func WithPaused() Option {
	return func(s *Scheduler) error {
		s.paused = true
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "scheduler")
		return nil
	}
}

// NewScheduler creates a scheduler over the given repositories, AI
// provider and extraction router.
func NewScheduler(
	items storage.ItemRepository,
	contents storage.ContentRepository,
	provider ai.AIProvider,
	router Dispatcher,
	opts ...Option,
) (*Scheduler, error) {
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}
	if contents == nil {
		return nil, ErrContentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if router == nil {
		return nil, ErrRouterRequired
	}

	s := &Scheduler{
		items:          items,
		contents:       contents,
		provider:       provider,
		router:         router,
		registry:       NewRegistry(),
		concurrency:    defaultConcurrency,
		active:         make(map[core.ID]struct{}),
		distillTimeout: defaultDistillTimeout,
		logger:         slog.Default().With("component", "scheduler"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(s.concurrency)
	if err != nil {
		return nil, err
	}
	s.pool = pool

	return s, nil
}

// AddOptions holds optional parameters for Add.
type AddOptions struct {
	FileName string
	FileMime string
	FileSize int64
	Tags     []string
}

// Add validates and enqueues a new item, then runs a scheduling tick.
// Kind is detected from the source when kind is empty: playlist URLs
// become tracking items that fan out one child per video, video URLs
// become youtube items, anything else a plain url item.
// Validation failures are returned synchronously and nothing is queued.
func (s *Scheduler) Add(ctx context.Context, kind core.ItemKind, source string, opts *AddOptions) (*core.Item, error) {
	if s.isClosed() {
		return nil, ErrSchedulerClosed
	}
	if opts == nil {
		opts = &AddOptions{}
	}
	if kind == "" {
		kind = extract.DetectKind(source)
	}

	item := &core.Item{
		Kind:     kind,
		Source:   source,
		FileName: opts.FileName,
		FileMime: opts.FileMime,
		FileSize: opts.FileSize,
		Status:   core.StatusPending,
		Tags:     withSourceTag(opts.Tags, kind, source),
	}
	if err := core.ValidateItem(item); err != nil {
		return nil, err
	}

	added, err := s.items.AddItem(ctx, item)
	if err != nil {
		return nil, err
	}
	s.registry.Ensure(added.Id)

	if kind == core.KindPlaylist {
		s.fanouts.Add(1)
		go s.expandPlaylist(added)
	}

	s.logger.Info("item queued", "id", added.Id, "kind", added.Kind, "queueIndex", added.QueueIndex)
	s.Tick()
	return added, nil
}

// expandPlaylist resolves the playlist's video list, enqueues one child
// item per video, then deletes the parent tracking item. The parent is
// never executed; resolution failure marks it ERROR instead.
func (s *Scheduler) expandPlaylist(parent *core.Item) {
	defer s.fanouts.Done()
	ctx := context.Background()

	videoIDs, err := s.router.ResolvePlaylist(ctx, parent.Source)
	if err != nil {
		s.logger.Error("playlist expansion failed", "id", parent.Id, "err", err)
		_, _ = s.items.UpdateItem(ctx, parent.Id, func(item *core.Item) error {
			item.Status = core.StatusError
			item.Error = err.Error()
			return nil
		})
		return
	}

	enqueued := 0
	for _, videoID := range videoIDs {
		watchURL := extract.WatchURL(videoID)
		child := &core.Item{
			Kind:     core.KindYouTube,
			Source:   watchURL,
			ParentId: parent.Id,
			Status:   core.StatusPending,
			Tags:     withSourceTag(nil, core.KindYouTube, watchURL),
		}
		added, err := s.items.AddItem(ctx, child)
		if err != nil {
			s.logger.Error("playlist child enqueue failed", "parent", parent.Id, "video", videoID, "err", err)
			continue
		}
		s.registry.Ensure(added.Id)
		enqueued++
	}

	// All children are materialized; the tracking item has served its
	// purpose.
	s.registry.Remove(parent.Id)
	if err := s.items.DeleteItem(ctx, parent.Id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("playlist parent cleanup failed", "id", parent.Id, "err", err)
	}

	s.logger.Info("playlist expanded", "id", parent.Id, "videos", len(videoIDs), "enqueued", enqueued)
	s.Tick()
}

// SetConcurrency updates the shared budget. Takes effect on the next
// tick; running executors are not disturbed.
func (s *Scheduler) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	s.concurrency = n
	pool := s.pool
	s.mu.Unlock()

	pool.Tune(n)
	s.logger.Info("concurrency updated", "concurrency", n)
	s.Tick()
}

// Concurrency returns the current budget.
func (s *Scheduler) Concurrency() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.concurrency
}

// Stop requests cancellation of an item. The token is signaled, which
// aborts any in-flight network call, and STOPPED is written immediately
// so observers never see a stale in-progress status. Reports whether the
// item existed in a stoppable state.
func (s *Scheduler) Stop(ctx context.Context, id core.ID) bool {
	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return false
	}
	if item.Status.Terminal() {
		return false
	}

	token := s.registry.Ensure(id)
	token.Signal()

	// Out-of-band terminal write; the executor's own final write backs
	// off when it finds this.
	_, err = s.items.UpdateItem(ctx, id, func(item *core.Item) error {
		if item.Status.Terminal() {
			return nil
		}
		item.Status = core.StatusStopped
		if !item.StartedAt.IsZero() {
			item.DurationMs = time.Since(item.StartedAt).Milliseconds()
		}
		return nil
	})
	if err != nil {
		s.logger.Error("stop status write failed", "id", id, "err", err)
	}
	// The item is terminal now; drop its token so stopped items that
	// never launched do not pin one. A running executor keeps its own
	// reference and a later retry installs a fresh token.
	s.registry.Discard(id, token)

	s.logger.Info("item stopped", "id", id)
	s.Tick()
	return true
}

// Retry resets a terminal item to PENDING at the back of the queue.
// Error, duration and start bookkeeping are cleared, CreatedAt is
// refreshed, and all tags except the reserved source tag are stripped.
func (s *Scheduler) Retry(ctx context.Context, id core.ID) (*core.Item, error) {
	if s.isClosed() {
		return nil, ErrSchedulerClosed
	}

	queueIndex, err := s.items.NextQueueIndex()
	if err != nil {
		return nil, err
	}

	updated, err := s.items.UpdateItem(ctx, id, func(item *core.Item) error {
		if !item.Status.Terminal() {
			return fmt.Errorf("%w: %s", ErrNotTerminal, item.Status)
		}
		item.Status = core.StatusPending
		item.Error = ""
		item.DurationMs = 0
		item.StartedAt = time.Time{}
		item.CreatedAt = time.Now().UTC()
		item.QueueIndex = queueIndex
		if tag := item.SourceTag(); tag != "" {
			item.Tags = []string{tag}
		} else {
			item.Tags = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.registry.Reset(id)
	s.logger.Info("item retried", "id", id, "queueIndex", queueIndex)
	s.Tick()
	return updated, nil
}

// Delete stops the item if it is running and removes it together with
// its content. Reports whether the item existed.
func (s *Scheduler) Delete(ctx context.Context, id core.ID) bool {
	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return false
	}
	if !item.Status.Terminal() {
		s.registry.Signal(id)
	}
	s.registry.Remove(id)

	if err := s.items.DeleteItem(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("item delete failed", "id", id, "err", err)
		return false
	}
	if err := s.contents.DeleteContent(ctx, id); err != nil {
		s.logger.Error("content delete failed", "id", id, "err", err)
	}

	s.logger.Info("item deleted", "id", id)
	s.Tick()
	return true
}

// Get retrieves a single item.
func (s *Scheduler) Get(ctx context.Context, id core.ID) (*core.Item, error) {
	return s.items.GetItem(ctx, id)
}

// GetContent retrieves the stored content for an item.
func (s *Scheduler) GetContent(ctx context.Context, id core.ID) (*core.Content, error) {
	return s.contents.GetContent(ctx, id)
}

// List returns all items sorted for display: in-flight items first, then
// everything else by recency.
func (s *Scheduler) List(ctx context.Context) ([]*core.Item, error) {
	items, err := s.items.GetAllItems(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		activeI, activeJ := items[i].Status.Active(), items[j].Status.Active()
		if activeI != activeJ {
			return activeI
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// MarkRead transitions a COMPLETED item to READ.
func (s *Scheduler) MarkRead(ctx context.Context, id core.ID) (*core.Item, error) {
	return s.items.UpdateItem(ctx, id, func(item *core.Item) error {
		if item.Status != core.StatusCompleted {
			return fmt.Errorf("%w: %s", ErrNotCompleted, item.Status)
		}
		item.Status = core.StatusRead
		return nil
	})
}

// Tick runs one idempotent scheduling pass: it computes the number of
// free slots and starts an executor for each of the oldest PENDING
// items that fit. Safe to call from any goroutine at any time.
func (s *Scheduler) Tick() {
	ctx := context.Background()

	s.mu.Lock()
	if s.closed || s.paused {
		s.mu.Unlock()
		return
	}
	free := s.concurrency - len(s.active)
	s.mu.Unlock()
	if free <= 0 {
		return
	}

	pending, err := s.items.GetPendingItems(ctx)
	if err != nil {
		s.logger.Error("pending scan failed", "err", err)
		return
	}

	for _, item := range pending {
		if free <= 0 {
			break
		}
		if s.claim(item.Id) {
			free--
			s.launch(item)
		}
	}
}

// claim reserves the executor slot for an item. Returns false when the
// item already has a live executor or the scheduler is closed.
func (s *Scheduler) claim(id core.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.paused {
		return false
	}
	if _, running := s.active[id]; running {
		return false
	}
	if len(s.active) >= s.concurrency {
		return false
	}
	s.active[id] = struct{}{}
	return true
}

// launch submits the item's executor to the pool. The slot is released
// and a follow-up tick runs whichever way the execution ends.
func (s *Scheduler) launch(item *core.Item) {
	exec := &executor{
		items:          s.items,
		contents:       s.contents,
		distiller:      s.provider.Distiller(),
		router:         s.router,
		distillTimeout: s.distillTimeout,
		logger:         s.logger.With("component", "executor", "id", item.Id),
	}
	token := s.registry.Ensure(item.Id)

	err := s.pool.Submit(func() {
		defer func() {
			s.registry.Discard(item.Id, token)
			s.release(item.Id)
			// The follow-up tick must leave this worker: a Submit from
			// inside the pool waits for a free worker, and at full
			// saturation the only candidate is the one running this
			// defer.
			go s.Tick()
		}()
		exec.run(item.Id, token)
	})
	if err != nil {
		// Pool rejected the task (released or saturated after a retune);
		// the item stays PENDING for a later tick.
		s.release(item.Id)
		s.logger.Warn("executor submit rejected", "id", item.Id, "err", err)
	}
}

func (s *Scheduler) release(id core.ID) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

// ActiveCount returns the number of live executors.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Release stops accepting work, waits for playlist expansions, and
// releases the worker pool. Running executors are allowed to finish.
func (s *Scheduler) Release() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.fanouts.Wait()
	s.pool.Release()
}

// withSourceTag ensures tags carry the reserved source tag for the
// item's origin: the URL host for web sources, the lowercased extension
// for files.
func withSourceTag(tags []string, kind core.ItemKind, source string) []string {
	for _, tag := range tags {
		if strings.HasPrefix(tag, core.SourceTagPrefix) {
			return tags
		}
	}
	origin := ""
	switch kind {
	case core.KindFile:
		origin = strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), ".")
	default:
		if u, err := url.Parse(source); err == nil {
			origin = u.Host
		}
	}
	if origin == "" {
		return tags
	}
	return append(tags, core.SourceTagPrefix+origin)
}
