package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/debuglog"
	"github.com/pders01/treehole/internal/query"
	"github.com/pders01/treehole/internal/search"
	"github.com/pders01/treehole/internal/storage"
)

// Remote is the subset of the API client the manager drives.
type Remote interface {
	Lister
	SearchPosts(ctx context.Context, keyword string) (*api.PostPage, error)
	PostsByAuthor(ctx context.Context, author string) (*api.PostPage, error)
}

// Archive keeps every post the client has seen.
type Archive interface {
	SavePosts(posts []api.Post) error
	GetPosts(author string, limit int) ([]*storage.PostRecord, error)
}

const offlineLimit = 200

// Manager fronts the remote API with the local archive. Every page that
// comes back is archived and indexed, and search or author lookups fall
// back to local data when the server cannot be reached.
type Manager struct {
	remote    Remote
	archive   Archive
	local     search.Searcher
	mu        sync.RWMutex
	listeners []search.UpdateListener
}

func NewManager(remote Remote, archive Archive, local search.Searcher) *Manager {
	m := &Manager{remote: remote, archive: archive, local: local}
	if l, ok := local.(search.UpdateListener); ok {
		m.listeners = append(m.listeners, l)
	}
	return m
}

// AddListener registers an extra consumer of fetched posts.
func (m *Manager) AddListener(l search.UpdateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// ListPosts makes the manager usable as the controller's Lister.
func (m *Manager) ListPosts(ctx context.Context, q query.State) (*api.PostPage, error) {
	page, err := m.remote.ListPosts(ctx, q)
	if err != nil {
		return nil, err
	}
	m.ingest(page.Items)
	return page, nil
}

// Result carries posts plus whether they came from local data.
type Result struct {
	Posts   []api.Post
	Offline bool
}

func (m *Manager) Search(ctx context.Context, keyword string) (*Result, error) {
	page, err := m.remote.SearchPosts(ctx, keyword)
	if err == nil {
		m.ingest(page.Items)
		return &Result{Posts: page.Items}, nil
	}
	if !canFallBack(err) || m.local == nil {
		return nil, err
	}

	debuglog.Warnf("remote search failed, using local index: %v", err)
	hits, localErr := m.local.Search(keyword, offlineLimit)
	if localErr != nil {
		return nil, fmt.Errorf("searching offline: %w", localErr)
	}
	posts := make([]api.Post, 0, len(hits))
	for _, h := range hits {
		posts = append(posts, *h.Post)
	}
	return &Result{Posts: posts, Offline: true}, nil
}

func (m *Manager) PostsByAuthor(ctx context.Context, author string) (*Result, error) {
	page, err := m.remote.PostsByAuthor(ctx, author)
	if err == nil {
		m.ingest(page.Items)
		return &Result{Posts: page.Items}, nil
	}
	if !canFallBack(err) || m.archive == nil {
		return nil, err
	}

	debuglog.Warnf("remote author lookup failed, using archive: %v", err)
	records, localErr := m.archive.GetPosts(author, offlineLimit)
	if localErr != nil {
		return nil, fmt.Errorf("reading archive: %w", localErr)
	}
	posts := make([]api.Post, 0, len(records))
	for _, rec := range records {
		posts = append(posts, rec.Post)
	}
	return &Result{Posts: posts, Offline: true}, nil
}

func (m *Manager) ingest(posts []api.Post) {
	if len(posts) == 0 {
		return
	}
	if m.archive != nil {
		if err := storage.Retry(func() error { return m.archive.SavePosts(posts) }); err != nil {
			debuglog.Errorf("archiving %d posts: %v", len(posts), err)
		}
	}

	m.mu.RLock()
	listeners := append([]search.UpdateListener(nil), m.listeners...)
	m.mu.RUnlock()
	for _, l := range listeners {
		l.OnPostsFetched(posts)
	}
}

// canFallBack reports whether err is a connectivity problem rather than a
// server verdict. A 401 or an explicit error code is never papered over.
func canFallBack(err error) bool {
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *api.APIError
	return !errors.As(err, &apiErr)
}
