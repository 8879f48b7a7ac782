package tui

import (
	"context"
	"sync"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/config"
	"github.com/pders01/treehole/internal/feed"
	"github.com/pders01/treehole/internal/query"
	"github.com/pders01/treehole/internal/session"
)

type fakeFeed struct {
	mu      sync.Mutex
	calls   []string
	fields  []query.SortField
	dirs    []query.Direction
	ranges  []query.LikeRange
	sizes   []int
	pages   []int
	snap    feed.Snapshot
	updates chan feed.Snapshot
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		snap:    feed.Snapshot{Query: query.Default()},
		updates: make(chan feed.Snapshot, 8),
	}
}

func (f *fakeFeed) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeFeed) Start()    { f.record("start") }
func (f *fakeFeed) Refresh()  { f.record("refresh") }
func (f *fakeFeed) NextPage() { f.record("next") }
func (f *fakeFeed) PrevPage() { f.record("prev") }

func (f *fakeFeed) SetPage(page int) {
	f.record("page")
	f.pages = append(f.pages, page)
}

func (f *fakeFeed) SetPageSize(size int) {
	f.record("size")
	f.sizes = append(f.sizes, size)
}

func (f *fakeFeed) SetSortField(v query.SortField) {
	f.record("field")
	f.fields = append(f.fields, v)
}

func (f *fakeFeed) SetSortDirection(d query.Direction) {
	f.record("direction")
	f.dirs = append(f.dirs, d)
}

func (f *fakeFeed) SetLikeRange(r query.LikeRange) {
	f.record("range")
	f.ranges = append(f.ranges, r)
}

func (f *fakeFeed) Snapshot() feed.Snapshot       { return f.snap }
func (f *fakeFeed) Updates() <-chan feed.Snapshot { return f.updates }

func (f *fakeFeed) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeFinder struct {
	posts    []api.Post
	offline  bool
	err      error
	keywords []string
	authors  []string
}

func (f *fakeFinder) Search(_ context.Context, keyword string) (*feed.Result, error) {
	f.keywords = append(f.keywords, keyword)
	if f.err != nil {
		return nil, f.err
	}
	return &feed.Result{Posts: f.posts, Offline: f.offline}, nil
}

func (f *fakeFinder) PostsByAuthor(_ context.Context, author string) (*feed.Result, error) {
	f.authors = append(f.authors, author)
	if f.err != nil {
		return nil, f.err
	}
	return &feed.Result{Posts: f.posts, Offline: f.offline}, nil
}

type fakeBackend struct {
	stats     []api.Stat
	aish      []api.AishPost
	cred      session.Credential
	loginErr  error
	logoutErr error
	logins    []string
	logouts   int
	session   *session.Context
}

func (b *fakeBackend) Statistics(context.Context) ([]api.Stat, error) { return b.stats, nil }
func (b *fakeBackend) AishPosts(context.Context) ([]api.AishPost, error) {
	return b.aish, nil
}

func (b *fakeBackend) Login(_ context.Context, username, _ string) (session.Credential, error) {
	b.logins = append(b.logins, username)
	if b.loginErr != nil {
		return session.Credential{}, b.loginErr
	}
	if b.session != nil {
		_ = b.session.Set(b.cred)
	}
	return b.cred, nil
}

func (b *fakeBackend) Logout(context.Context) error {
	b.logouts++
	if b.session != nil {
		_ = b.session.Clear()
	}
	return b.logoutErr
}

type fakeOpener struct {
	opened []string
	err    error
}

func (o *fakeOpener) Open(link string) error {
	o.opened = append(o.opened, link)
	return o.err
}

type fakeSaver struct {
	saved []query.State
	err   error
}

func (s *fakeSaver) SaveQuery(q query.State) error {
	s.saved = append(s.saved, q)
	return s.err
}

type testApp struct {
	*App
	feed    *fakeFeed
	finder  *fakeFinder
	backend *fakeBackend
	opener  *fakeOpener
	saver   *fakeSaver
	session *session.Context
}

func newTestApp() *testApp {
	return newTestAppWithConfig(config.TestConfig())
}

func newTestAppWithConfig(cfg *config.Config) *testApp {
	sess := session.New(nil)
	t := &testApp{
		feed:    newFakeFeed(),
		finder:  &fakeFinder{},
		backend: &fakeBackend{session: sess},
		opener:  &fakeOpener{},
		saver:   &fakeSaver{},
		session: sess,
	}
	t.App = NewApp(Deps{
		Config:  cfg,
		Feed:    t.feed,
		Finder:  t.finder,
		Backend: t.backend,
		Session: sess,
		Queries: t.saver,
		Opener:  t.opener,
	})
	t.App.resize(100, 30)
	return t
}

func samplePosts() []api.Post {
	return []api.Post{
		{PostID: "p1", Author: "alice", Content: `hello <img src="https://img.example.com/a.png"> world`},
		{PostID: "p2", Author: "bob", Content: "no pictures here"},
	}
}
