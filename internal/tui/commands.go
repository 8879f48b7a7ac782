package tui

import (
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/debuglog"
	"github.com/pders01/treehole/internal/feed"
	"github.com/pders01/treehole/internal/query"
	"github.com/pders01/treehole/internal/storage"
)

// waitForSnapshot blocks on the controller's update channel. It is re-armed
// after every snapshot and returns nil once the channel is closed.
func waitForSnapshot(updates <-chan feed.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return nil
		}
		return snapshotMsg{snap: s}
	}
}

func (a *App) waitForLogin() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-a.loginCh:
			return unauthorizedMsg{}
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) startFeed() tea.Cmd {
	return func() tea.Msg {
		a.feed.Start()
		return nil
	}
}

func (a *App) renderPost(p api.Post) tea.Cmd {
	width := a.width
	now := a.now()
	return func() tea.Msg {
		out, err := a.renderer.Render(p, width, now)
		if err != nil {
			debuglog.Errorf("rendering post %s: %v", p.Key(), err)
			out = "# Error\n\nFailed to render post: " + err.Error() + "\n\nPress Escape to go back."
		}
		return postRenderedMsg{key: p.Key(), content: out}
	}
}

func (a *App) performSearch(seq int, keyword string) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		res, err := a.finder.Search(ctx, keyword)
		if err != nil {
			return searchResultsMsg{seq: seq, err: wrapErr("search", err)}
		}
		return searchResultsMsg{seq: seq, posts: res.Posts, offline: res.Offline}
	}
}

func (a *App) loadAuthor(seq int, author string) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		res, err := a.finder.PostsByAuthor(ctx, author)
		if err != nil {
			return authorLoadedMsg{seq: seq, err: wrapErr("author "+author, err)}
		}
		return authorLoadedMsg{seq: seq, posts: res.Posts, offline: res.Offline}
	}
}

func (a *App) loadStats() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		stats, err := a.backend.Statistics(ctx)
		return statsLoadedMsg{stats: stats, err: wrapErr("statistics", err)}
	}
}

func (a *App) loadAish() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		posts, err := a.backend.AishPosts(ctx)
		return aishLoadedMsg{posts: posts, err: wrapErr("aish", err)}
	}
}

func (a *App) login(username, password string) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		cred, err := a.backend.Login(ctx, username, password)
		return loginResultMsg{cred: cred, err: wrapErr("login", err)}
	}
}

func (a *App) logout() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return logoutResultMsg{err: a.backend.Logout(ctx)}
	}
}

// saveQuery persists the settled query so the next launch starts there.
func (a *App) saveQuery(q query.State) tea.Cmd {
	if a.queries == nil {
		return nil
	}
	return func() tea.Msg {
		err := storage.Retry(func() error { return a.queries.SaveQuery(q) })
		if err != nil {
			debuglog.Warnf("saving query: %v", err)
		}
		return querySavedMsg{query: q, err: err}
	}
}

func (a *App) openLink(link string) tea.Cmd {
	return func() tea.Msg {
		if a.opener == nil {
			return statusMsg{text: "no viewer configured", kind: StatusWarn}
		}
		clean, err := a.links.ValidateLink(a.resolveLink(link))
		if err != nil {
			return errorMsg{err: wrapErr("refusing to open link", err)}
		}
		if err := a.opener.Open(clean); err != nil {
			return errorMsg{err: wrapErr("open "+truncateMiddle(clean, 40), err)}
		}
		return statusMsg{text: "Opened " + truncateMiddle(clean, 40), kind: StatusSuccess}
	}
}

// resolveLink makes server-relative image paths absolute.
func (a *App) resolveLink(link string) string {
	ref, err := url.Parse(strings.TrimSpace(link))
	if err != nil || ref.IsAbs() {
		return link
	}
	base, err := url.Parse(a.config.API.BaseURL)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

// sanitizeSearchInput trims, collapses whitespace and caps the length of a
// search query.
func sanitizeSearchInput(input string) string {
	input = strings.Join(strings.Fields(input), " ")
	if r := []rune(input); len(r) > 256 {
		input = string(r[:256])
	}
	return strings.TrimSpace(input)
}
