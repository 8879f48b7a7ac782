package feed

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/debounce"
	"github.com/pders01/treehole/internal/debuglog"
	"github.com/pders01/treehole/internal/query"
)

// Lister is the one backend call the controller needs.
type Lister interface {
	ListPosts(ctx context.Context, q query.State) (*api.PostPage, error)
}

type Options struct {
	Debounce  time.Duration
	Window    query.WindowPolicy
	PageSizes []int
}

func DefaultOptions() Options {
	return Options{
		Debounce:  300 * time.Millisecond,
		Window:    query.DefaultWindowPolicy(),
		PageSizes: query.PageSizes,
	}
}

// Snapshot is an immutable view of the controller at one point in time.
type Snapshot struct {
	Query      query.State
	Posts      []api.Post
	Total      int
	TotalPages int
	Window     []int
	Loading    bool
	Refreshing bool
	// Err is the most recent failure. The posts from the last good
	// response are kept alongside it.
	Err error
	// Seq is the sequence number of the request that produced Posts.
	Seq uint64
}

// Empty reports whether the last good response had no items.
func (s Snapshot) Empty() bool {
	return len(s.Posts) == 0
}

// Controller owns the feed query and its latest result. Mutators are
// debounced independently, and each settled change issues exactly one
// fetch. Responses from anything but the newest request are dropped.
type Controller struct {
	lister Lister
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      query.State
	posts      []api.Post
	total      int
	resultSeq  uint64
	issued     uint64
	loading    bool
	refreshing bool
	err        error
	closed     bool
	targetPage *int
	updates    chan Snapshot

	pageD  *debounce.Debouncer[int]
	sizeD  *debounce.Debouncer[int]
	fieldD *debounce.Debouncer[query.SortField]
	dirD   *debounce.Debouncer[query.Direction]
	rangeD *debounce.Debouncer[query.LikeRange]
}

// NewController builds a controller scoped to parent. Cancelling parent
// has the same effect on in-flight requests as Close.
func NewController(parent context.Context, lister Lister, initial query.State, opts Options) *Controller {
	if opts.Window.Offset <= 0 {
		opts.Window = query.DefaultWindowPolicy()
	}
	if len(opts.PageSizes) == 0 {
		opts.PageSizes = query.PageSizes
	}
	if initial.Validate() != nil {
		initial = query.Default()
	}
	if !slices.Contains(opts.PageSizes, initial.PageSize) {
		if s, err := initial.WithPageSizeFrom(opts.PageSizes[0], opts.PageSizes); err == nil {
			initial = s
		}
	}

	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		lister:  lister,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		state:   initial,
		updates: make(chan Snapshot, 1),
	}

	c.pageD = debounce.New(opts.Debounce, func(p int) {
		c.apply("page", func(s query.State) (query.State, error) { return s.WithPage(p) })
	})
	c.sizeD = debounce.New(opts.Debounce, func(n int) {
		c.apply("size", func(s query.State) (query.State, error) { return s.WithPageSizeFrom(n, c.opts.PageSizes) })
	})
	c.fieldD = debounce.New(opts.Debounce, func(f query.SortField) {
		c.apply("field", func(s query.State) (query.State, error) { return s.WithSortField(f) })
	})
	c.dirD = debounce.New(opts.Debounce, func(d query.Direction) {
		c.apply("sort", func(s query.State) (query.State, error) { return s.WithDirection(d) })
	})
	c.rangeD = debounce.New(opts.Debounce, func(r query.LikeRange) {
		c.apply("likeRange", func(s query.State) (query.State, error) { return s.WithLikeRange(r) })
	})

	return c
}

// Start issues the initial fetch.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.fetchLocked(false)
}

// Refresh fetches the current query again without changing it.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.fetchLocked(true)
}

func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	c.targetPage = &page
	c.mu.Unlock()
	c.pageD.Call(page)
}

// NextPage and PrevPage step from the page most recently asked for, so a
// burst of presses moves several pages but still fetches once.
func (c *Controller) NextPage() { c.stepPage(1) }

func (c *Controller) PrevPage() { c.stepPage(-1) }

func (c *Controller) stepPage(delta int) {
	c.mu.Lock()
	page := c.state.Page
	if c.targetPage != nil {
		page = *c.targetPage
	}
	page += delta
	if last := query.TotalPages(c.total, c.state.PageSize) - 1; page > last {
		page = last
	}
	if page < 0 {
		page = 0
	}
	c.targetPage = &page
	c.mu.Unlock()
	c.pageD.Call(page)
}

func (c *Controller) SetPageSize(size int) { c.sizeD.Call(size) }

func (c *Controller) SetSortField(f query.SortField) { c.fieldD.Call(f) }

func (c *Controller) SetSortDirection(d query.Direction) { c.dirD.Call(d) }

func (c *Controller) SetLikeRange(r query.LikeRange) { c.rangeD.Call(r) }

// apply runs once a mutator's debounce settles.
func (c *Controller) apply(name string, mutate func(query.State) (query.State, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if name == "page" {
		c.targetPage = nil
	}

	next, err := mutate(c.state)
	if err != nil {
		debuglog.WithFields(map[string]interface{}{"mutator": name}).Warnf("rejected: %v", err)
		c.err = err
		c.publishLocked()
		return
	}
	if next == c.state {
		return
	}
	if name != "page" {
		c.targetPage = nil
	}
	c.state = next
	c.fetchLocked(false)
}

func (c *Controller) fetchLocked(refresh bool) {
	c.issued++
	seq := c.issued
	q := c.state
	c.loading = true
	if refresh {
		c.refreshing = true
	}
	c.publishLocked()

	log := debuglog.WithFields(map[string]interface{}{"seq": seq, "query": q.Summary()})
	log.Debugf("fetch issued")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		start := time.Now()
		page, err := c.lister.ListPosts(c.ctx, q)
		log.With("took", debuglog.Since(start)).Debugf("fetch returned")
		c.complete(seq, page, err)
	}()
}

func (c *Controller) complete(seq uint64, page *api.PostPage, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if seq != c.issued {
		debuglog.WithFields(map[string]interface{}{"seq": seq, "latest": c.issued}).Debugf("stale response dropped")
		return
	}

	c.loading = false
	c.refreshing = false
	switch {
	case err != nil:
		if !errors.Is(err, context.Canceled) {
			debuglog.Errorf("fetching feed: %v", err)
		}
		c.err = err
	case page == nil:
		c.err = errors.New("empty response")
	default:
		c.posts = page.Items
		c.total = page.Total
		c.resultSeq = seq
		c.err = nil
	}
	c.publishLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	totalPages := query.TotalPages(c.total, c.state.PageSize)
	return Snapshot{
		Query:      c.state,
		Posts:      c.posts,
		Total:      c.total,
		TotalPages: totalPages,
		Window:     query.Window(c.state.Page, totalPages, c.opts.Window),
		Loading:    c.loading,
		Refreshing: c.refreshing,
		Err:        c.err,
		Seq:        c.resultSeq,
	}
}

// publishLocked replaces any unread snapshot with the current one so a slow
// reader always sees the latest state and never blocks the controller.
func (c *Controller) publishLocked() {
	if c.closed {
		return
	}
	snap := c.snapshotLocked()
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- snap:
	default:
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Updates delivers snapshots as they change. The channel is closed by Close.
func (c *Controller) Updates() <-chan Snapshot {
	return c.updates
}

// Close cancels in-flight requests, drops pending mutations and waits for
// outstanding fetch goroutines. Nothing is published afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.pageD.Stop()
	c.sizeD.Stop()
	c.fieldD.Stop()
	c.dirD.Stop()
	c.rangeD.Stop()

	c.cancel()
	c.wg.Wait()
	close(c.updates)
}
