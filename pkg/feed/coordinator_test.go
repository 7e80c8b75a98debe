package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/launchlist/internal/testutil"
	"github.com/Sternrassler/launchlist/pkg/launch"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFetch = errors.New("connection reset")

// fakeFetcher serves a fixed set of launches with limit/offset paging.
type fakeFetcher struct {
	mu       sync.Mutex
	launches []launch.Launch
	offsets  []int
	failures map[int]int
	blocks   map[int]chan struct{}
	started  chan int
}

func newFakeFetcher(launches []launch.Launch) *fakeFetcher {
	return &fakeFetcher{
		launches: launches,
		failures: make(map[int]int),
		blocks:   make(map[int]chan struct{}),
		started:  make(chan int, 64),
	}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, offset, limit int) ([]launch.Launch, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	block := f.blocks[offset]
	delete(f.blocks, offset)
	fail := f.failures[offset] > 0
	if fail {
		f.failures[offset]--
	}
	data := f.launches
	f.mu.Unlock()

	select {
	case f.started <- offset:
	default:
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errFetch
	}
	return append([]launch.Launch(nil), testutil.Page(data, offset, limit)...), nil
}

// failAt makes the next n fetches at offset fail.
func (f *fakeFetcher) failAt(offset, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[offset] = n
}

// blockAt holds the next fetch at offset until the returned channel is closed.
func (f *fakeFetcher) blockAt(offset int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.blocks[offset] = ch
	return ch
}

func (f *fakeFetcher) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets...)
}

func (f *fakeFetcher) waitStarted(t *testing.T, offset int) {
	t.Helper()
	for {
		select {
		case got := <-f.started:
			if got == offset {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("fetch at offset %d never started", offset)
		}
	}
}

func newTestCoordinator(t *testing.T, f Fetcher, opts Options) *Coordinator {
	t.Helper()
	nop := zerolog.Nop()
	if opts.Logger == nil {
		opts.Logger = &nop
	}
	if opts.Debounce == 0 {
		opts.Debounce = 20 * time.Millisecond
	}
	c := New(f, opts)
	t.Cleanup(c.Close)
	return c
}

func ids(items []launch.Launch) []int {
	out := make([]int, 0, len(items))
	for _, l := range items {
		out = append(out, l.FlightNumber)
	}
	return out
}

func TestLoadInitial(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})

	require.NoError(t, c.LoadInitial(context.Background()))

	snap := c.Snapshot()
	assert.Len(t, snap.Items, 10)
	assert.True(t, snap.HasMore)
	assert.Equal(t, 1, snap.Page)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, []int{0}, f.calls())
}

func TestLoadNext_UntilShortPage(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))

	fetched, err := c.LoadNext(ctx)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.True(t, c.Snapshot().HasMore, "full page keeps hasMore")

	fetched, err = c.LoadNext(ctx)
	require.NoError(t, err)
	assert.True(t, fetched)

	snap := c.Snapshot()
	assert.False(t, snap.HasMore, "short page clears hasMore")
	assert.True(t, snap.NoMore)
	assert.Len(t, snap.Items, 25)
	assert.Equal(t, 3, snap.Page)

	fetched, err = c.LoadNext(ctx)
	require.NoError(t, err)
	assert.False(t, fetched)
	assert.Equal(t, []int{0, 10, 20}, f.calls(), "no fetch after the last page")
}

func TestLoadNext_ExactMultipleEndsWithEmptyPage(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(20))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	_, err := c.LoadNext(ctx)
	require.NoError(t, err)
	assert.True(t, c.Snapshot().HasMore)

	_, err = c.LoadNext(ctx)
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.False(t, snap.HasMore)
	assert.Len(t, snap.Items, 20)
}

func TestLoadNext_SuspendedWhileSearching(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	require.NoError(t, c.ApplyQuery(ctx, "mission 1"))

	fetched, err := c.LoadNext(ctx)
	require.NoError(t, err)
	assert.False(t, fetched)

	// Whitespace-only input is no query at all.
	require.NoError(t, c.ApplyQuery(ctx, "   "))
	fetched, err = c.LoadNext(ctx)
	require.NoError(t, err)
	assert.True(t, fetched)
}

func TestApplyQuery_FiltersWholeCache(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	_, err := c.LoadNext(ctx)
	require.NoError(t, err)
	calls := len(f.calls())

	require.NoError(t, c.ApplyQuery(ctx, "MISSION 1"))

	snap := c.Snapshot()
	assert.True(t, snap.Searching)
	// Mission 1 and 10..19 are all cached, including the second page.
	assert.Equal(t, []int{1, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, ids(snap.Items))
	assert.Len(t, f.calls(), calls, "filtering never fetches")

	require.NoError(t, c.ApplyQuery(ctx, "no such mission"))
	snap = c.Snapshot()
	assert.True(t, snap.NoResults)
	assert.Empty(t, snap.Items)
}

func TestApplyQuery_ClearResetsPagination(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(35))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	_, _ = c.LoadNext(ctx)
	_, _ = c.LoadNext(ctx)
	require.Equal(t, 3, c.Snapshot().Page)

	require.NoError(t, c.ApplyQuery(ctx, "mission 2"))
	require.NoError(t, c.ApplyQuery(ctx, ""))

	snap := c.Snapshot()
	assert.False(t, snap.Searching)
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, ids(testutil.Launches(10)), ids(snap.Items), "window replaced by a fresh first page")
	assert.Equal(t, []int{0, 10, 20, 0}, f.calls())

	// Pagination resumes from the reset cursor.
	_, err := c.LoadNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 10, 20, 0, 10}, f.calls())
}

func TestApplyQuery_RetypeDuringResetKeepsCache(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(35))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	_, _ = c.LoadNext(ctx)
	_, _ = c.LoadNext(ctx)
	require.NoError(t, c.ApplyQuery(ctx, "mission"))
	f.waitStarted(t, 20)

	release := f.blockAt(0)
	errs := make(chan error, 1)
	go func() {
		errs <- c.ApplyQuery(ctx, "")
	}()
	f.waitStarted(t, 0)

	// The user starts typing again before the reset answers.
	require.NoError(t, c.ApplyQuery(ctx, "mission 2"))
	want := []int{2, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29}
	require.Equal(t, want, ids(c.Snapshot().Items))

	close(release)
	require.NoError(t, <-errs)

	snap := c.Snapshot()
	assert.True(t, snap.Searching)
	assert.Equal(t, want, ids(snap.Items), "late reset must not shrink the search")
	assert.Equal(t, 30, snap.Cached)
	assert.False(t, snap.Loading)
	assert.Equal(t, 1, c.Stats().StaleDrops)

	// Clearing again reloads from the top.
	require.NoError(t, c.ApplyQuery(ctx, ""))
	assert.Equal(t, ids(testutil.Launches(10)), ids(c.Snapshot().Items))
}

func TestApplyQuery_EmptyToEmptyDoesNotReload(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(5))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	require.NoError(t, c.ApplyQuery(ctx, ""))

	assert.Equal(t, []int{0}, f.calls())
}

func TestSetQuery_Debounced(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(10))
	c := newTestCoordinator(t, f, Options{Debounce: 60 * time.Millisecond})
	require.NoError(t, c.LoadInitial(context.Background()))

	for _, q := range []string{"m", "mi", "mis", "miss", "mission 7"} {
		c.SetQuery(q)
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, c.Snapshot().Searching, "query not applied before input settles")

	require.Eventually(t, func() bool { return c.Snapshot().Searching }, time.Second, 5*time.Millisecond)
	time.Sleep(120 * time.Millisecond)

	assert.Equal(t, 1, c.Stats().FilterRuns, "one recomputation per burst")
	assert.Equal(t, []int{7}, ids(c.Snapshot().Items))
}

func TestSetQuery_ClearingReloads(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	_, _ = c.LoadNext(ctx)
	require.NoError(t, c.ApplyQuery(ctx, "mission"))

	c.SetQuery("")
	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return !s.Searching && !s.Loading && s.Page == 1 && len(s.Items) == 10
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{0, 10, 0}, f.calls())
}

func TestFetchFailure_KeepsItemsAndRecovers(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))

	f.failAt(10, 1)
	fetched, err := c.LoadNext(ctx)
	assert.True(t, fetched)
	require.ErrorIs(t, err, errFetch)

	snap := c.Snapshot()
	assert.Equal(t, ErrorMessage, snap.Error)
	assert.Len(t, snap.Items, 10, "loaded items stay visible")
	assert.Equal(t, 1, snap.Page, "cursor unchanged")
	assert.True(t, snap.HasMore, "hasMore unchanged")

	_, err = c.LoadNext(ctx)
	require.NoError(t, err)

	snap = c.Snapshot()
	assert.Empty(t, snap.Error, "success clears the error")
	assert.Len(t, snap.Items, 20)
	assert.Equal(t, []int{0, 10, 10}, f.calls(), "same page retried")
	assert.Equal(t, 1, c.Stats().Failures)
}

func TestLoadInitial_FailureLeavesCache(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	_, _ = c.LoadNext(ctx)

	f.failAt(0, 1)
	require.Error(t, c.LoadInitial(ctx))

	snap := c.Snapshot()
	assert.Equal(t, ErrorMessage, snap.Error)
	assert.Len(t, snap.Items, 20)

	require.NoError(t, c.LoadInitial(ctx))
	assert.Empty(t, c.Snapshot().Error)
	assert.Len(t, c.Snapshot().Items, 10)
}

func TestLoadInitial_FailureKeepsCursor(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(35))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	_, _ = c.LoadNext(ctx)

	f.failAt(0, 1)
	require.Error(t, c.LoadInitial(ctx))
	snap := c.Snapshot()
	assert.Equal(t, 2, snap.Page)
	assert.True(t, snap.HasMore)

	// Scrolling continues after the cached pages.
	fetched, err := c.LoadNext(ctx)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, []int{0, 10, 0, 20}, f.calls())
	assert.Len(t, c.Snapshot().Items, 30)
}

func TestLoadNext_SingleFlight(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()
	require.NoError(t, c.LoadInitial(ctx))
	f.waitStarted(t, 0)

	release := f.blockAt(10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.LoadNext(ctx)
	}()
	f.waitStarted(t, 10)

	assert.True(t, c.Snapshot().Loading)
	fetched, err := c.LoadNext(ctx)
	require.NoError(t, err)
	assert.False(t, fetched, "second request while loading is a no-op")

	close(release)
	<-done
	assert.Equal(t, []int{0, 10}, f.calls())
	assert.Len(t, c.Snapshot().Items, 20)
}

func TestLoadNext_StaleResponseDropped(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()
	require.NoError(t, c.LoadInitial(ctx))
	f.waitStarted(t, 0)

	release := f.blockAt(10)
	errs := make(chan error, 1)
	go func() {
		_, err := c.LoadNext(ctx)
		errs <- err
	}()
	f.waitStarted(t, 10)

	// A reset while page 2 is in flight supersedes it.
	require.NoError(t, c.LoadInitial(ctx))
	close(release)
	assert.ErrorIs(t, <-errs, ErrStale)

	snap := c.Snapshot()
	assert.Equal(t, ids(testutil.Launches(10)), ids(snap.Items), "late page must not clobber the reset")
	assert.Equal(t, 1, snap.Page)
	assert.False(t, snap.Loading)
	assert.Equal(t, 1, c.Stats().StaleDrops)
}

func TestVisible_TriggersLoadNext(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	require.NoError(t, c.LoadInitial(context.Background()))

	assert.False(t, c.Visible(5, true), "only the last item is watched")
	assert.True(t, c.Visible(10, true))
	assert.Len(t, c.Snapshot().Items, 20)

	// The old last item staying in view fires nothing.
	assert.False(t, c.Visible(10, true))
	// The new last item does.
	assert.True(t, c.Visible(20, true))
	assert.False(t, c.Visible(20, true), "stationary element fires once")

	assert.Len(t, c.Snapshot().Items, 25)
	assert.Equal(t, 2, c.Stats().SentinelFires)
	assert.Equal(t, []int{0, 10, 20}, f.calls())

	// Last page reached: the sentinel is disconnected.
	assert.False(t, c.Visible(25, true))
}

func TestVisible_IgnoredWhileSearching(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()
	require.NoError(t, c.LoadInitial(ctx))

	require.NoError(t, c.ApplyQuery(ctx, "mission"))
	assert.False(t, c.Visible(10, true))
	assert.Equal(t, []int{0}, f.calls())
}

func TestVisible_RetryAfterFailure(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	require.NoError(t, c.LoadInitial(context.Background()))

	f.failAt(10, 1)
	assert.True(t, c.Visible(10, true))
	assert.Equal(t, ErrorMessage, c.Snapshot().Error)

	// The watch was re-attached, so the next scroll retries.
	assert.True(t, c.Visible(10, true))
	assert.Empty(t, c.Snapshot().Error)
	assert.Len(t, c.Snapshot().Items, 20)
}

func TestOrderNewestFirst(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(15))
	c := newTestCoordinator(t, f, Options{Order: OrderNewestFirst})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	_, _ = c.LoadNext(ctx)

	items := c.Snapshot().Items
	require.Len(t, items, 15)
	assert.Equal(t, 15, items[0].FlightNumber)
	assert.Equal(t, 1, items[14].FlightNumber)

	require.NoError(t, c.ApplyQuery(ctx, "mission 1"))
	assert.Equal(t, []int{15, 14, 13, 12, 11, 10, 1}, ids(c.Snapshot().Items))
}

func TestSubscribe(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	require.NoError(t, c.LoadInitial(context.Background()))

	mu.Lock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[1].Loading)
	assert.Len(t, seen[1].Items, 10)
	mu.Unlock()

	unsubscribe()
	_, _ = c.LoadNext(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 2)
}

func TestClose(t *testing.T) {
	f := newFakeFetcher(testutil.Launches(25))
	c := newTestCoordinator(t, f, Options{})
	ctx := context.Background()
	require.NoError(t, c.LoadInitial(ctx))

	c.SetQuery("mission")
	c.Close()
	c.Close()

	time.Sleep(60 * time.Millisecond)
	assert.False(t, c.Snapshot().Searching, "pending debounce cancelled")
	assert.ErrorIs(t, c.LoadInitial(ctx), ErrClosed)
	assert.ErrorIs(t, c.ApplyQuery(ctx, "x"), ErrClosed)
	assert.False(t, c.Visible(10, true))

	fetched, err := c.LoadNext(ctx)
	assert.NoError(t, err)
	assert.False(t, fetched)
}
