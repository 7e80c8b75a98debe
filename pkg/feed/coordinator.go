package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/launchlist/pkg/launch"
	"github.com/Sternrassler/launchlist/pkg/logging"
	"github.com/Sternrassler/launchlist/pkg/pagination"
	"github.com/rs/zerolog"
)

const (
	// PageSize is the number of launches requested per page.
	PageSize = pagination.DefaultPageSize

	// ErrorMessage is the text shown to the user after any failed load.
	ErrorMessage = "Failed to load launches. Please try again."
)

var (
	// ErrClosed is returned by operations on a closed coordinator.
	ErrClosed = errors.New("feed: coordinator closed")

	// ErrStale is returned when a response was dropped because a newer
	// reset superseded the request.
	ErrStale = errors.New("feed: response superseded by a newer load")
)

// Fetcher loads one page of launches. *client.Client implements it.
type Fetcher interface {
	FetchPage(ctx context.Context, offset, limit int) ([]launch.Launch, error)
}

// Options configures a Coordinator.
type Options struct {
	// PageSize overrides the page size (default: PageSize)
	PageSize int

	// Debounce is the search settle delay (default: DefaultDebounce)
	Debounce time.Duration

	// Order is the display order of both views (default: oldest-first)
	Order Order

	// Logger (default: logging.NewLogger("feed"))
	Logger *zerolog.Logger
}

// Snapshot is an immutable view of the coordinator for rendering.
type Snapshot struct {
	// Items is the search result while searching, the paginated window otherwise.
	Items []launch.Launch

	Query     string
	Searching bool
	Loading   bool
	HasMore   bool
	Page      int
	Cached    int
	Error     string

	// NoMore is set once the last page was loaded and the window is not empty.
	NoMore bool

	// NoResults is set when a search matched nothing.
	NoResults bool
}

// Stats counts coordinator activity.
type Stats struct {
	Fetches       int
	Failures      int
	StaleDrops    int
	FilterRuns    int
	SentinelFires int
}

// Coordinator owns the pagination cursor, the launch cache, the active
// query and the error text. It is safe for concurrent use; network calls
// run without the lock held.
type Coordinator struct {
	fetcher  Fetcher
	pageSize int
	order    Order
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	sentinel  *Sentinel
	debouncer *Debouncer

	mu          sync.Mutex
	gen         uint64
	loading     bool
	page        int
	hasMore     bool
	store       *Store
	query       string
	filtered    []launch.Launch
	errMsg      string
	closed      bool
	stats       Stats
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// New creates a coordinator. Nothing is fetched until LoadInitial.
func New(fetcher Fetcher, opts Options) *Coordinator {
	if opts.PageSize <= 0 {
		opts.PageSize = PageSize
	}
	if opts.Order == "" {
		opts.Order = OrderOldestFirst
	}
	logger := logging.NewLogger("feed")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		fetcher:     fetcher,
		pageSize:    opts.PageSize,
		order:       opts.Order,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		page:        1,
		hasMore:     true,
		store:       NewStore(),
		subscribers: make(map[int]func(Snapshot)),
	}
	c.sentinel = NewSentinel(c.onSentinel)
	c.debouncer = NewDebouncer(opts.Debounce, c.onQuerySettled)
	return c
}

// LoadInitial resets the cursor to page 1 and fetches the first page. On
// success the cache is replaced; on failure the error text is set and the
// cache and cursor are left as they were. A newer LoadInitial or a search
// query applied while the fetch is in flight supersedes it, in which case
// ErrStale is returned and the cache is untouched.
func (c *Coordinator) LoadInitial(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.gen++
	gen := c.gen
	prevPage, prevHasMore := c.page, c.hasMore
	c.page = 1
	c.hasMore = true
	c.loading = true
	c.stats.Fetches++
	c.sentinel.Disconnect()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	records, err := c.fetcher.FetchPage(ctx, 0, c.pageSize)

	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.dropStaleLocked("initial", 0)
		c.mu.Unlock()
		return ErrStale
	}
	c.loading = false

	if err != nil {
		// The cache still holds the old pages, so keep paging after them.
		c.page, c.hasMore = prevPage, prevHasMore
		c.failLocked("initial", 0, err)
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
		return err
	}

	c.store.Reset(records)
	c.afterPageLocked(records)
	pageLoadsTotal.WithLabelValues("initial", "ok").Inc()
	c.logger.Debug().
		Int("count", len(records)).
		Bool("has_more", c.hasMore).
		Msg("First page loaded")

	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

// LoadNext fetches the page after the cursor and appends it to the cache.
// It returns false without fetching when a load is in flight, the last page
// has been reached, or a search query is active. On failure the cursor and
// hasMore stay unchanged so the next trigger retries the same page.
func (c *Coordinator) LoadNext(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.closed || c.loading || !c.hasMore || c.query != "" {
		c.mu.Unlock()
		return false, nil
	}
	gen := c.gen
	offset := pagination.NextOffset(c.page, c.pageSize)
	c.loading = true
	c.stats.Fetches++
	c.sentinel.Disconnect()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	records, err := c.fetcher.FetchPage(ctx, offset, c.pageSize)

	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.dropStaleLocked("next", offset)
		c.mu.Unlock()
		return true, ErrStale
	}
	c.loading = false

	if err != nil {
		c.failLocked("next", offset, err)
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
		return true, err
	}

	c.page++
	added := c.store.Append(records)
	c.afterPageLocked(records)
	pageLoadsTotal.WithLabelValues("next", "ok").Inc()
	c.logger.Debug().
		Int("offset", offset).
		Int("count", len(records)).
		Int("added", added).
		Int("page", c.page).
		Bool("has_more", c.hasMore).
		Msg("Next page loaded")

	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
	return true, nil
}

// SetQuery feeds raw search input through the debouncer. The query is
// applied once input has settled.
func (c *Coordinator) SetQuery(raw string) {
	c.debouncer.Trigger(raw)
}

// ApplyQuery applies a search query immediately. A non-empty query
// recomputes the search view from the cache without any network call.
// Changing from a non-empty to an empty query restarts pagination with
// LoadInitial.
func (c *Coordinator) ApplyQuery(ctx context.Context, raw string) error {
	q := NormalizeQuery(raw)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prev := c.query
	c.query = q

	if q != "" {
		if c.loading {
			// A load started before this query no longer matches what
			// is on screen.
			c.gen++
			c.loading = false
		}
		c.refilterLocked()
		c.sentinel.Disconnect()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
		return nil
	}

	c.filtered = nil
	c.mu.Unlock()

	if prev == "" {
		return nil
	}
	c.logger.Debug().Str("previous", prev).Msg("Search cleared, reloading first page")
	err := c.LoadInitial(ctx)
	if errors.Is(err, ErrStale) {
		return nil
	}
	return err
}

// Visible reports the visibility of the rendered item with the given flight
// number. When it is the watched last item and it just came into view, the
// next page is loaded before Visible returns.
func (c *Coordinator) Visible(flightNumber int, visible bool) bool {
	return c.sentinel.Report(flightNumber, visible)
}

// Snapshot returns the current view.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function removes the subscription.
func (c *Coordinator) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Stats returns activity counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close stops the debouncer and the sentinel, cancels background loads and
// drops all subscribers. Responses arriving afterwards are ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.subscribers = make(map[int]func(Snapshot))
	c.mu.Unlock()

	c.debouncer.Stop()
	c.sentinel.Disconnect()
	c.cancel()
}

func (c *Coordinator) onSentinel() {
	c.mu.Lock()
	c.stats.SentinelFires++
	c.mu.Unlock()
	sentinelFiresTotal.Inc()

	if _, err := c.LoadNext(c.ctx); err != nil && !errors.Is(err, ErrStale) {
		c.logger.Debug().Err(err).Msg("Lazy load failed")
	}
}

func (c *Coordinator) onQuerySettled(raw string) {
	if err := c.ApplyQuery(c.ctx, raw); err != nil && !errors.Is(err, ErrClosed) {
		c.logger.Debug().Err(err).Msg("Reload after clearing search failed")
	}
}

// afterPageLocked updates state shared by both load kinds after a
// successful fetch.
func (c *Coordinator) afterPageLocked(records []launch.Launch) {
	c.hasMore = pagination.HasMore(len(records), c.pageSize)
	c.errMsg = ""
	cachedLaunches.Set(float64(c.store.Len()))
	if c.query != "" {
		c.refilterLocked()
	}
	c.reattachLocked()
}

func (c *Coordinator) failLocked(kind string, offset int, err error) {
	c.errMsg = ErrorMessage
	c.stats.Failures++
	pageLoadsTotal.WithLabelValues(kind, "error").Inc()
	c.logger.Error().
		Err(err).
		Str("kind", kind).
		Int("offset", offset).
		Msg("Failed to load launches")
	c.reattachLocked()
}

func (c *Coordinator) dropStaleLocked(kind string, offset int) {
	c.stats.StaleDrops++
	pageLoadsTotal.WithLabelValues(kind, "stale").Inc()
	c.logger.Debug().
		Str("kind", kind).
		Int("offset", offset).
		Msg("Dropping superseded response")
}

func (c *Coordinator) refilterLocked() {
	c.filtered = Filter(c.store.All(c.order), c.query)
	c.stats.FilterRuns++
	filterRunsTotal.Inc()
}

// reattachLocked points the sentinel at the last item of the window, or
// disconnects it when no further page may be requested.
func (c *Coordinator) reattachLocked() {
	if c.closed || c.loading || c.query != "" || !c.hasMore || c.store.Len() == 0 {
		c.sentinel.Disconnect()
		return
	}
	window := c.store.All(c.order)
	c.sentinel.Observe(window[len(window)-1].FlightNumber)
}

func (c *Coordinator) snapshotLocked() Snapshot {
	s := Snapshot{
		Query:     c.query,
		Searching: c.query != "",
		Loading:   c.loading,
		HasMore:   c.hasMore,
		Page:      c.page,
		Cached:    c.store.Len(),
		Error:     c.errMsg,
	}
	if s.Searching {
		s.Items = append([]launch.Launch(nil), c.filtered...)
		s.NoResults = len(s.Items) == 0
	} else {
		s.Items = c.store.All(c.order)
		s.NoMore = !c.hasMore && !c.loading && len(s.Items) > 0
	}
	return s
}

func (c *Coordinator) publish(s Snapshot) {
	c.mu.Lock()
	subs := make([]func(Snapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
