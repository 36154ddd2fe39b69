package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlight/distill/ai"
	"github.com/emberlight/distill/ai/mock"
	"github.com/emberlight/distill/core"
	"github.com/emberlight/distill/extract"
	"github.com/emberlight/distill/storage"
	"github.com/emberlight/distill/storage/badger"
)

const waitTimeout = 5 * time.Second

// fakeDispatcher is a controllable Dispatcher for scheduler tests. It
// records start order and tracks concurrent dispatches, optionally
// blocking until released.
type fakeDispatcher struct {
	mu          sync.Mutex
	started     []core.ID
	inFlight    int
	maxInFlight int

	gate         chan struct{} // when set, Dispatch blocks on it (or ctx)
	dispatchErr  error
	playlistIDs  []string
	playlistErr  error
	resultText   string
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{resultText: "extracted text long enough to distill"}
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, item *core.Item) (*extract.Result, error) {
	f.mu.Lock()
	f.started = append(f.started, item.Id)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate := f.gate
	dispatchErr := f.dispatchErr
	text := f.resultText
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if dispatchErr != nil {
		return nil, dispatchErr
	}
	return &extract.Result{Text: text, Method: "web-dom-score"}, nil
}

func (f *fakeDispatcher) ResolvePlaylist(ctx context.Context, playlistURL string) ([]string, error) {
	if f.playlistErr != nil {
		return nil, f.playlistErr
	}
	return f.playlistIDs, nil
}

func (f *fakeDispatcher) startOrder() []core.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.ID(nil), f.started...)
}

func (f *fakeDispatcher) peakConcurrency() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

type schedulerFixture struct {
	scheduler  *Scheduler
	items      storage.ItemRepository
	contents   storage.ContentRepository
	dispatcher *fakeDispatcher
	provider   ai.AIProvider
}

func setupScheduler(t *testing.T, dispatcher *fakeDispatcher, opts ...Option) *schedulerFixture {
	t.Helper()
	items, contents, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		items.Close()
		backend.Close()
	})

	provider := mock.NewMockProvider()
	scheduler, err := NewScheduler(items, contents, provider, dispatcher, opts...)
	require.NoError(t, err)
	t.Cleanup(scheduler.Release)

	return &schedulerFixture{
		scheduler:  scheduler,
		items:      items,
		contents:   contents,
		dispatcher: dispatcher,
		provider:   provider,
	}
}

func (f *schedulerFixture) waitForStatus(t *testing.T, id core.ID, status core.ItemStatus) *core.Item {
	t.Helper()
	var item *core.Item
	require.Eventually(t, func() bool {
		var err error
		item, err = f.items.GetItem(context.Background(), id)
		return err == nil && item.Status == status
	}, waitTimeout, 10*time.Millisecond, "item %d should reach %s", id, status)
	return item
}

func TestNewScheduler_Validation(t *testing.T) {
	items, contents, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		items.Close()
		backend.Close()
	})
	provider := mock.NewMockProvider()
	dispatcher := newFakeDispatcher()

	t.Run("nil item repository", func(t *testing.T) {
		_, err := NewScheduler(nil, contents, provider, dispatcher)
		assert.Equal(t, ErrItemRepositoryRequired, err)
	})
	t.Run("nil content repository", func(t *testing.T) {
		_, err := NewScheduler(items, nil, provider, dispatcher)
		assert.Equal(t, ErrContentRepositoryRequired, err)
	})
	t.Run("nil provider", func(t *testing.T) {
		_, err := NewScheduler(items, contents, nil, dispatcher)
		assert.Equal(t, ErrAIProviderRequired, err)
	})
	t.Run("nil dispatcher", func(t *testing.T) {
		_, err := NewScheduler(items, contents, provider, nil)
		assert.Equal(t, ErrRouterRequired, err)
	})
}

func TestScheduler_Add_RejectsInvalidSubmissions(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher())
	ctx := context.Background()

	_, err := fixture.scheduler.Add(ctx, core.KindURL, "", nil)
	assert.ErrorIs(t, err, core.ErrInvalidItem)

	_, err = fixture.scheduler.Add(ctx, core.KindURL, "ftp://example.com", nil)
	assert.ErrorIs(t, err, core.ErrInvalidURL)

	_, err = fixture.scheduler.Add(ctx, core.KindFile, "/tmp/archive.rar", nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedFileType)

	items, err := fixture.items.GetAllItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "rejected submissions never enter the queue")
}

func TestScheduler_Add_SourceTag(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher())
	ctx := context.Background()

	url, err := fixture.scheduler.Add(ctx, core.KindURL, "https://blog.example.com/post", nil)
	require.NoError(t, err)
	assert.Contains(t, url.Tags, "source:blog.example.com")

	file, err := fixture.scheduler.Add(ctx, core.KindFile, "/docs/Paper.PDF", nil)
	require.NoError(t, err)
	assert.Contains(t, file.Tags, "source:pdf")
}

func TestScheduler_Add_DetectsKind(t *testing.T) {
	gate := make(chan struct{})
	dispatcher := newFakeDispatcher()
	dispatcher.gate = gate
	fixture := setupScheduler(t, dispatcher)
	defer close(gate)
	ctx := context.Background()

	video, err := fixture.scheduler.Add(ctx, "", "https://youtu.be/dQw4w9WgXcQ", nil)
	require.NoError(t, err)
	assert.Equal(t, core.KindYouTube, video.Kind)

	page, err := fixture.scheduler.Add(ctx, "", "https://example.com/article", nil)
	require.NoError(t, err)
	assert.Equal(t, core.KindURL, page.Kind)
}

func TestScheduler_ItemRunsToCompletion(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher())
	ctx := context.Background()

	added, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/article", nil)
	require.NoError(t, err)

	item := fixture.waitForStatus(t, added.Id, core.StatusCompleted)
	assert.Empty(t, item.Error)
	assert.False(t, item.StartedAt.IsZero())
	assert.GreaterOrEqual(t, item.DurationMs, int64(0))

	content, err := fixture.contents.GetContent(ctx, added.Id)
	require.NoError(t, err)
	assert.Equal(t, "web-dom-score", content.Method)
	assert.False(t, content.FallbackUsed)
	assert.Contains(t, content.Output, "distilled(")
}

func TestScheduler_ConcurrencyBound(t *testing.T) {
	gate := make(chan struct{})
	dispatcher := newFakeDispatcher()
	dispatcher.gate = gate
	fixture := setupScheduler(t, dispatcher, WithConcurrency(2))
	ctx := context.Background()

	var ids []core.ID
	for i := 0; i < 5; i++ {
		added, err := fixture.scheduler.Add(ctx,
			core.KindURL, fmt.Sprintf("https://example.com/%d", i), nil)
		require.NoError(t, err)
		ids = append(ids, added.Id)
	}

	require.Eventually(t, func() bool {
		return fixture.scheduler.ActiveCount() == 2
	}, waitTimeout, 10*time.Millisecond)

	// Give ticks a chance to overshoot before checking the bound held.
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, dispatcher.peakConcurrency(), 2)
	assert.Equal(t, 2, fixture.scheduler.ActiveCount())

	close(gate)
	for _, id := range ids {
		fixture.waitForStatus(t, id, core.StatusCompleted)
	}
	assert.LessOrEqual(t, dispatcher.peakConcurrency(), 2,
		"the budget holds for the whole run")
}

func TestScheduler_FIFOStartOrder(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher(), WithConcurrency(1))
	ctx := context.Background()

	var ids []core.ID
	for i := 0; i < 3; i++ {
		added, err := fixture.scheduler.Add(ctx,
			core.KindURL, fmt.Sprintf("https://example.com/fifo/%d", i), nil)
		require.NoError(t, err)
		ids = append(ids, added.Id)
	}

	for _, id := range ids {
		fixture.waitForStatus(t, id, core.StatusCompleted)
	}

	assert.Equal(t, ids, fixture.dispatcher.startOrder(),
		"items start in enqueue order with a single slot")
	assert.Equal(t, 1, fixture.dispatcher.peakConcurrency())
}

func TestScheduler_SetConcurrency_TakesEffect(t *testing.T) {
	gate := make(chan struct{})
	dispatcher := newFakeDispatcher()
	dispatcher.gate = gate
	fixture := setupScheduler(t, dispatcher, WithConcurrency(1))
	ctx := context.Background()

	var ids []core.ID
	for i := 0; i < 3; i++ {
		added, err := fixture.scheduler.Add(ctx,
			core.KindURL, fmt.Sprintf("https://example.com/tune/%d", i), nil)
		require.NoError(t, err)
		ids = append(ids, added.Id)
	}

	require.Eventually(t, func() bool {
		return fixture.scheduler.ActiveCount() == 1
	}, waitTimeout, 10*time.Millisecond)

	fixture.scheduler.SetConcurrency(3)
	require.Eventually(t, func() bool {
		return fixture.scheduler.ActiveCount() == 3
	}, waitTimeout, 10*time.Millisecond, "raising the budget starts queued items")

	close(gate)
	for _, id := range ids {
		fixture.waitForStatus(t, id, core.StatusCompleted)
	}
}

func TestScheduler_Stop_RunningItem(t *testing.T) {
	gate := make(chan struct{})
	dispatcher := newFakeDispatcher()
	dispatcher.gate = gate
	fixture := setupScheduler(t, dispatcher)
	ctx := context.Background()

	added, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/slow", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		item, err := fixture.items.GetItem(ctx, added.Id)
		return err == nil && item.Status == core.StatusExtracting
	}, waitTimeout, 10*time.Millisecond)

	require.True(t, fixture.scheduler.Stop(ctx, added.Id))

	// The stop is observable immediately, before the executor unwinds.
	item, err := fixture.items.GetItem(ctx, added.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusStopped, item.Status)
	assert.Empty(t, item.Error, "a stop is not a failure")

	// Even when the blocked operation is released and would have
	// succeeded, the item must stay STOPPED.
	close(gate)
	require.Eventually(t, func() bool {
		return fixture.scheduler.ActiveCount() == 0
	}, waitTimeout, 10*time.Millisecond)
	item, err = fixture.items.GetItem(ctx, added.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusStopped, item.Status)
}

func TestScheduler_Stop_PendingItem(t *testing.T) {
	gate := make(chan struct{})
	dispatcher := newFakeDispatcher()
	dispatcher.gate = gate
	fixture := setupScheduler(t, dispatcher, WithConcurrency(1))
	ctx := context.Background()

	first, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/first", nil)
	require.NoError(t, err)
	second, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/second", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return fixture.scheduler.ActiveCount() == 1
	}, waitTimeout, 10*time.Millisecond)

	require.True(t, fixture.scheduler.Stop(ctx, second.Id))
	item, err := fixture.items.GetItem(ctx, second.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusStopped, item.Status)

	close(gate)
	fixture.waitForStatus(t, first.Id, core.StatusCompleted)
	started := fixture.dispatcher.startOrder()
	for _, id := range started {
		assert.NotEqual(t, second.Id, id, "a stopped pending item never starts")
	}
}

func TestScheduler_Stop_Terminal(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher())
	ctx := context.Background()

	added, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/done", nil)
	require.NoError(t, err)
	fixture.waitForStatus(t, added.Id, core.StatusCompleted)

	assert.False(t, fixture.scheduler.Stop(ctx, added.Id), "completed items cannot be stopped")
	assert.False(t, fixture.scheduler.Stop(ctx, core.ID(404)))
}

func TestScheduler_Retry_ResetsItem(t *testing.T) {
	dispatcher := newFakeDispatcher()
	dispatcher.dispatchErr = errors.New("extraction exploded")
	fixture := setupScheduler(t, dispatcher)
	ctx := context.Background()

	added, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/retry",
		&AddOptions{Tags: []string{"session-tag"}})
	require.NoError(t, err)
	failed := fixture.waitForStatus(t, added.Id, core.StatusError)
	assert.Contains(t, failed.Error, "extraction exploded")

	// Let the retried run succeed.
	fixture.dispatcher.mu.Lock()
	fixture.dispatcher.dispatchErr = nil
	fixture.dispatcher.mu.Unlock()

	retried, err := fixture.scheduler.Retry(ctx, added.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, retried.Status)
	assert.Empty(t, retried.Error)
	assert.Zero(t, retried.DurationMs)
	assert.True(t, retried.StartedAt.IsZero())
	assert.Greater(t, retried.QueueIndex, failed.QueueIndex, "retry moves to the back of the queue")
	assert.Equal(t, []string{"source:example.com"}, retried.Tags,
		"only the reserved source tag survives a retry")

	fixture.waitForStatus(t, added.Id, core.StatusCompleted)
}

func TestScheduler_Retry_RequiresTerminal(t *testing.T) {
	gate := make(chan struct{})
	dispatcher := newFakeDispatcher()
	dispatcher.gate = gate
	fixture := setupScheduler(t, dispatcher)
	defer close(gate)
	ctx := context.Background()

	added, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/busy", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		item, err := fixture.items.GetItem(ctx, added.Id)
		return err == nil && item.Status == core.StatusExtracting
	}, waitTimeout, 10*time.Millisecond)

	_, err = fixture.scheduler.Retry(ctx, added.Id)
	assert.ErrorIs(t, err, ErrNotTerminal)
}

func TestScheduler_Retry_StoppedItemRunsAgain(t *testing.T) {
	gate := make(chan struct{})
	dispatcher := newFakeDispatcher()
	dispatcher.gate = gate
	fixture := setupScheduler(t, dispatcher)
	ctx := context.Background()

	added, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/stopped", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		item, err := fixture.items.GetItem(ctx, added.Id)
		return err == nil && item.Status == core.StatusExtracting
	}, waitTimeout, 10*time.Millisecond)

	require.True(t, fixture.scheduler.Stop(ctx, added.Id))
	close(gate)
	require.Eventually(t, func() bool {
		return fixture.scheduler.ActiveCount() == 0
	}, waitTimeout, 10*time.Millisecond)

	// The retry installs a fresh token; the old signaled one must not
	// stop the new run.
	_, err = fixture.scheduler.Retry(ctx, added.Id)
	require.NoError(t, err)
	fixture.waitForStatus(t, added.Id, core.StatusCompleted)
}

func TestScheduler_Delete(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher())
	ctx := context.Background()

	added, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/gone", nil)
	require.NoError(t, err)
	fixture.waitForStatus(t, added.Id, core.StatusCompleted)

	require.True(t, fixture.scheduler.Delete(ctx, added.Id))

	_, err = fixture.items.GetItem(ctx, added.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = fixture.contents.GetContent(ctx, added.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.False(t, fixture.scheduler.Delete(ctx, added.Id))
}

func TestScheduler_MarkRead(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher())
	ctx := context.Background()

	added, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/read", nil)
	require.NoError(t, err)
	fixture.waitForStatus(t, added.Id, core.StatusCompleted)

	item, err := fixture.scheduler.MarkRead(ctx, added.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusRead, item.Status)

	_, err = fixture.scheduler.MarkRead(ctx, added.Id)
	assert.ErrorIs(t, err, ErrNotCompleted, "READ is terminal and not re-markable")
}

func TestScheduler_List_ActiveFirst(t *testing.T) {
	gate := make(chan struct{})
	dispatcher := newFakeDispatcher()
	dispatcher.gate = gate
	fixture := setupScheduler(t, dispatcher, WithConcurrency(1))
	ctx := context.Background()

	first, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/active", nil)
	require.NoError(t, err)
	second, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/waiting", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		item, err := fixture.items.GetItem(ctx, first.Id)
		return err == nil && item.Status.Active()
	}, waitTimeout, 10*time.Millisecond)

	listed, err := fixture.scheduler.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.Id, listed[0].Id, "in-flight items sort first")

	close(gate)
	fixture.waitForStatus(t, second.Id, core.StatusCompleted)
}

func TestScheduler_PlaylistFanOut(t *testing.T) {
	dispatcher := newFakeDispatcher()
	dispatcher.playlistIDs = []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}
	fixture := setupScheduler(t, dispatcher)
	ctx := context.Background()

	parent, err := fixture.scheduler.Add(ctx,
		core.KindPlaylist, "https://www.youtube.com/playlist?list=PLabc", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		children, err := fixture.items.GetItemsByParent(ctx, parent.Id)
		return err == nil && len(children) == 2
	}, waitTimeout, 10*time.Millisecond, "fan-out should create one child per video")

	require.Eventually(t, func() bool {
		_, err := fixture.items.GetItem(ctx, parent.Id)
		return errors.Is(err, storage.ErrNotFound)
	}, waitTimeout, 10*time.Millisecond, "the parent tracking item disappears once children exist")

	children, err := fixture.items.GetItemsByParent(ctx, parent.Id)
	require.NoError(t, err)
	for _, child := range children {
		assert.Equal(t, core.KindYouTube, child.Kind)
		assert.Equal(t, parent.Id, child.ParentId)
		assert.Contains(t, child.Source, "youtube.com/watch?v=")
		fixture.waitForStatus(t, child.Id, core.StatusCompleted)
	}
}

func TestScheduler_PlaylistResolutionFailure(t *testing.T) {
	dispatcher := newFakeDispatcher()
	dispatcher.playlistErr = errors.New("playlist page fetch: 404")
	fixture := setupScheduler(t, dispatcher)
	ctx := context.Background()

	parent, err := fixture.scheduler.Add(ctx,
		core.KindPlaylist, "https://www.youtube.com/playlist?list=PLmissing", nil)
	require.NoError(t, err)

	item := fixture.waitForStatus(t, parent.Id, core.StatusError)
	assert.Contains(t, item.Error, "404")
}

func TestScheduler_ExtractionErrorIsFatal(t *testing.T) {
	dispatcher := newFakeDispatcher()
	dispatcher.dispatchErr = extract.ErrNoTranscript
	fixture := setupScheduler(t, dispatcher)
	ctx := context.Background()

	added, err := fixture.scheduler.Add(ctx,
		core.KindYouTube, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", nil)
	require.NoError(t, err)

	item := fixture.waitForStatus(t, added.Id, core.StatusError)
	assert.Contains(t, item.Error, "transcript")

	_, err = fixture.contents.GetContent(ctx, added.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound, "no content is stored for a failed item")
}

func TestScheduler_DistillationErrorSurfacedVerbatim(t *testing.T) {
	provider := mock.NewMockProviderWithDistiller(&mock.MockDistiller{
		DistillFunc: func(ctx context.Context, text string) (string, error) {
			return "", fmt.Errorf("%w: API returned unexpected status code: 429", ai.ErrRateLimited)
		},
	})

	items, contents, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		items.Close()
		backend.Close()
	})
	scheduler, err := NewScheduler(items, contents, provider, newFakeDispatcher())
	require.NoError(t, err)
	t.Cleanup(scheduler.Release)

	ctx := context.Background()
	added, err := scheduler.Add(ctx, core.KindURL, "https://example.com/limited", nil)
	require.NoError(t, err)

	var item *core.Item
	require.Eventually(t, func() bool {
		item, err = items.GetItem(ctx, added.Id)
		return err == nil && item.Status == core.StatusError
	}, waitTimeout, 10*time.Millisecond)
	assert.Contains(t, item.Error, "rate limited")
	assert.Contains(t, item.Error, "429")
}

func TestScheduler_DistillationTimeout(t *testing.T) {
	provider := mock.NewMockProviderWithDistiller(&mock.MockDistiller{
		DistillFunc: func(ctx context.Context, text string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	})

	items, contents, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		items.Close()
		backend.Close()
	})
	scheduler, err := NewScheduler(items, contents, provider, newFakeDispatcher(),
		WithDistillTimeout(50*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(scheduler.Release)

	ctx := context.Background()
	added, err := scheduler.Add(ctx, core.KindURL, "https://example.com/slow-model", nil)
	require.NoError(t, err)

	var item *core.Item
	require.Eventually(t, func() bool {
		item, err = items.GetItem(ctx, added.Id)
		return err == nil && item.Status == core.StatusError
	}, waitTimeout, 10*time.Millisecond)
	assert.Contains(t, item.Error, "timed out after")
}

func TestScheduler_StopDuringDistillation_TakesPriority(t *testing.T) {
	distillStarted := make(chan struct{})
	provider := mock.NewMockProviderWithDistiller(&mock.MockDistiller{
		DistillFunc: func(ctx context.Context, text string) (string, error) {
			close(distillStarted)
			<-ctx.Done()
			return "", ctx.Err()
		},
	})

	items, contents, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		items.Close()
		backend.Close()
	})
	scheduler, err := NewScheduler(items, contents, provider, newFakeDispatcher())
	require.NoError(t, err)
	t.Cleanup(scheduler.Release)

	ctx := context.Background()
	added, err := scheduler.Add(ctx, core.KindURL, "https://example.com/stopped-mid-call", nil)
	require.NoError(t, err)

	<-distillStarted
	require.True(t, scheduler.Stop(ctx, added.Id))

	require.Eventually(t, func() bool {
		return scheduler.ActiveCount() == 0
	}, waitTimeout, 10*time.Millisecond)

	item, err := items.GetItem(ctx, added.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusStopped, item.Status)
	assert.Empty(t, item.Error, "stop semantics win over the aborted call's error")
}

func TestScheduler_ThreeURLsConcurrencyOne(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher(), WithConcurrency(1))
	ctx := context.Background()

	var ids []core.ID
	for i := 0; i < 3; i++ {
		added, err := fixture.scheduler.Add(ctx,
			core.KindURL, fmt.Sprintf("https://example.com/scenario/%d", i), nil)
		require.NoError(t, err)
		ids = append(ids, added.Id)
	}

	for _, id := range ids {
		fixture.waitForStatus(t, id, core.StatusCompleted)
	}

	assert.Equal(t, 1, fixture.dispatcher.peakConcurrency(),
		"at most one item is ever in flight")
	assert.Equal(t, ids, fixture.dispatcher.startOrder(),
		"deterministic processing preserves enqueue order")
}

func TestScheduler_ClosedRejectsWork(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher())
	fixture.scheduler.Release()

	_, err := fixture.scheduler.Add(context.Background(),
		core.KindURL, "https://example.com/late", nil)
	assert.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestScheduler_QueueDrainsWithoutExternalTicks(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher(), WithConcurrency(1))
	ctx := context.Background()

	// Only Add ticks here; every later start must come from the
	// completion path handing its slot to the next pending item.
	var ids []core.ID
	for i := 0; i < 3; i++ {
		added, err := fixture.scheduler.Add(ctx,
			core.KindURL, fmt.Sprintf("https://example.com/drain/%d", i), nil)
		require.NoError(t, err)
		ids = append(ids, added.Id)
	}

	for _, id := range ids {
		fixture.waitForStatus(t, id, core.StatusCompleted)
	}

	pending, err := fixture.items.GetPendingItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	require.Eventually(t, func() bool {
		return fixture.scheduler.ActiveCount() == 0
	}, waitTimeout, 10*time.Millisecond)
}

func TestScheduler_SingleExecutionPerItem(t *testing.T) {
	gate := make(chan struct{})
	dispatcher := newFakeDispatcher()
	dispatcher.gate = gate
	fixture := setupScheduler(t, dispatcher, WithConcurrency(2))
	ctx := context.Background()

	var ids []core.ID
	for i := 0; i < 3; i++ {
		added, err := fixture.scheduler.Add(ctx,
			core.KindURL, fmt.Sprintf("https://example.com/once/%d", i), nil)
		require.NoError(t, err)
		ids = append(ids, added.Id)
	}

	require.Eventually(t, func() bool {
		return fixture.scheduler.ActiveCount() == 2
	}, waitTimeout, 10*time.Millisecond)

	// Hammer the scheduling pass from many goroutines while executors
	// hold their slots; no item may be claimed twice.
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				fixture.scheduler.Tick()
				_, _ = fixture.scheduler.Retry(ctx, ids[0])
			}
		}()
	}
	wg.Wait()

	started := fixture.dispatcher.startOrder()
	assert.Len(t, started, 2, "the storm must not over-claim the budget")

	close(gate)
	for _, id := range ids {
		fixture.waitForStatus(t, id, core.StatusCompleted)
	}

	seen := make(map[core.ID]int)
	for _, id := range fixture.dispatcher.startOrder() {
		seen[id]++
	}
	for _, id := range ids {
		assert.Equal(t, 1, seen[id], "item %d must be dispatched exactly once", id)
	}
}

func TestScheduler_TokenDroppedAfterTerminal(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher())
	ctx := context.Background()

	added, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/lifecycle", nil)
	require.NoError(t, err)
	fixture.waitForStatus(t, added.Id, core.StatusCompleted)

	require.Eventually(t, func() bool {
		return fixture.scheduler.registry.Get(added.Id) == nil
	}, waitTimeout, 10*time.Millisecond, "completed items must not pin a token")
}

func TestScheduler_TokenDroppedOnPendingStop(t *testing.T) {
	gate := make(chan struct{})
	dispatcher := newFakeDispatcher()
	dispatcher.gate = gate
	fixture := setupScheduler(t, dispatcher, WithConcurrency(1))
	defer close(gate)
	ctx := context.Background()

	_, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/busy-slot", nil)
	require.NoError(t, err)
	waiting, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/never-ran", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return fixture.scheduler.ActiveCount() == 1
	}, waitTimeout, 10*time.Millisecond)

	require.True(t, fixture.scheduler.Stop(ctx, waiting.Id))
	assert.Nil(t, fixture.scheduler.registry.Get(waiting.Id),
		"a stopped pending item has no executor left to clean up")
}

func TestScheduler_Paused_NeverLaunches(t *testing.T) {
	fixture := setupScheduler(t, newFakeDispatcher(), WithPaused())
	ctx := context.Background()

	added, err := fixture.scheduler.Add(ctx, core.KindURL, "https://example.com/parked", nil)
	require.NoError(t, err)
	fixture.scheduler.Tick()

	time.Sleep(50 * time.Millisecond)
	item, err := fixture.items.GetItem(ctx, added.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, item.Status)
	assert.Empty(t, fixture.dispatcher.startOrder())
	assert.Zero(t, fixture.scheduler.ActiveCount())
}
