package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/config"
	"github.com/pders01/treehole/internal/media"
	"github.com/pders01/treehole/internal/search"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
	keys        config.KeyBindings
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := ""
	if cfg.Keys.Modifier != "" {
		modifierKey = cfg.Keys.Modifier + "+"
	}
	return &KeyHandler{app: app, config: cfg, modifierKey: modifierKey, keys: cfg.Keys.Bindings}
}

// bound returns the key string for an action binding.
func (kh *KeyHandler) bound(binding string) string {
	return kh.modifierKey + binding
}

func (kh *KeyHandler) isQuit(key string) bool {
	return key == "ctrl+c" || (kh.keys.Quit != "" && key == kh.keys.Quit)
}

func (kh *KeyHandler) isBack(key string) bool {
	return key == "esc" || (kh.keys.Back != "" && key == kh.keys.Back)
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewSearch:
		return kh.app.searchInput.Focused()
	case ViewLogin:
		return true
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "esc":
		return kh.navigateBack()
	case "ctrl+c":
		return kh.app, tea.Quit
	case "enter":
		return kh.handleTextInputEnter()
	case "tab", "down":
		if kh.app.view == ViewSearch {
			if len(kh.app.searchList.Items()) > 0 {
				kh.app.searchInput.Blur()
				kh.app.searchList.Select(0)
			}
			return kh.app, nil
		}
		return kh.app, kh.switchLoginField()
	case "shift+tab", "up":
		if kh.app.view == ViewLogin {
			return kh.app, kh.switchLoginField()
		}
		return kh.delegateToTextInput(msg)
	default:
		return kh.delegateToTextInput(msg)
	}
}

func (kh *KeyHandler) handleTextInputEnter() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewSearch:
		if p := firstPost(kh.app.searchList.Items()); p != nil {
			return kh.app, kh.openReader(*p)
		}
		return kh.app, nil

	case ViewLogin:
		user := strings.TrimSpace(kh.app.userInput.Value())
		pass := kh.app.passInput.Value()
		if kh.app.userInput.Focused() && pass == "" {
			if user == "" {
				return kh.app, nil
			}
			return kh.app, kh.switchLoginField()
		}
		if user == "" || pass == "" {
			kh.app.setStatus("username and password are required", StatusWarn)
			return kh.app, nil
		}
		if kh.app.busy {
			return kh.app, nil
		}
		kh.app.busy = true
		kh.app.setStatus(MsgLoggingIn, StatusInfo)
		return kh.app, kh.app.login(user, pass)

	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) switchLoginField() tea.Cmd {
	if kh.app.userInput.Focused() {
		kh.app.userInput.Blur()
		return kh.app.passInput.Focus()
	}
	kh.app.passInput.Blur()
	return kh.app.userInput.Focus()
}

// delegateToTextInput passes the key to the focused text input
func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewSearch:
		prev := sanitizeSearchInput(kh.app.searchInput.Value())
		kh.app.searchInput, cmd = kh.app.searchInput.Update(msg)

		newVal := sanitizeSearchInput(kh.app.searchInput.Value())
		if newVal != prev {
			kh.app.pendingSearchQuery = newVal
			kh.app.searchSeq++
			seq := kh.app.searchSeq
			wait := kh.app.searchDebounce
			return kh.app, tea.Batch(cmd, tea.Tick(wait, func(time.Time) tea.Msg { return searchDebounceFireMsg{seq: seq} }))
		}
		return kh.app, cmd

	case ViewLogin:
		if kh.app.passInput.Focused() {
			kh.app.passInput, cmd = kh.app.passInput.Update(msg)
		} else {
			kh.app.userInput, cmd = kh.app.userInput.Update(msg)
		}
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch {
	case kh.isQuit(key):
		return kh.app, tea.Quit, true
	case kh.isBack(key):
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case key == kh.bound(kh.keys.Search):
		model, cmd := kh.enterSearchMode()
		return model, cmd, true
	case key == kh.bound(kh.keys.Stats):
		return kh.app, kh.enterStats(), true
	case key == kh.bound(kh.keys.Aish):
		return kh.app, kh.enterAish(), true
	case key == kh.bound(kh.keys.Login):
		return kh.app, kh.toggleLogin(), true
	}

	switch kh.app.view {
	case ViewFeed:
		return kh.handleFeedCustomKeys(key)
	case ViewReader:
		return kh.handlePostKeys(key, kh.app.currentPost)
	case ViewSearch:
		return kh.handlePostKeys(key, kh.app.selectedPost(kh.app.searchList))
	case ViewAuthor:
		return kh.handlePostKeys(key, kh.app.selectedPost(kh.app.authorList))
	case ViewAish:
		return kh.handleAishCustomKeys(key)
	default:
		return kh.app, nil, false
	}
}

// handleFeedCustomKeys drives the feed controller. want runs ahead of the
// controller so that a burst of presses settles on the last choice.
func (kh *KeyHandler) handleFeedCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	if a.feed == nil {
		return a, nil, false
	}

	switch key {
	case kh.bound(kh.keys.Refresh):
		a.feed.Refresh()
		a.setStatus(MsgRefreshing, StatusInfo)
		return a, a.spinner.Tick, true
	case kh.bound(kh.keys.NextPage):
		a.feed.NextPage()
		return a, nil, true
	case kh.bound(kh.keys.PrevPage):
		a.feed.PrevPage()
		return a, nil, true
	case kh.bound(kh.keys.FirstPage):
		a.feed.SetPage(0)
		return a, nil, true
	case kh.bound(kh.keys.LastPage):
		if a.snap.TotalPages > 0 {
			a.feed.SetPage(a.snap.TotalPages - 1)
		}
		return a, nil, true
	case kh.bound(kh.keys.CycleField):
		a.want.Field = a.want.Field.Next()
		a.want.Page = 0
		a.feed.SetSortField(a.want.Field)
	case kh.bound(kh.keys.ToggleOrder):
		a.want.Direction = a.want.Direction.Toggle()
		a.want.Page = 0
		a.feed.SetSortDirection(a.want.Direction)
	case kh.bound(kh.keys.CycleRange):
		a.want.LikeRange = a.want.LikeRange.Next()
		a.want.Page = 0
		a.feed.SetLikeRange(a.want.LikeRange)
	case kh.bound(kh.keys.CycleSize):
		a.want.PageSize = a.want.NextPageSize(kh.config.Feed.AllowedPageSizes())
		a.want.Page = 0
		a.feed.SetPageSize(a.want.PageSize)
	default:
		return kh.handlePostKeys(key, a.selectedPost(a.feedList))
	}

	a.setStatus("→ "+a.want.Summary(), StatusInfo)
	return a, nil, true
}

// handlePostKeys covers actions on a single post from any post view.
func (kh *KeyHandler) handlePostKeys(key string, p *api.Post) (tea.Model, tea.Cmd, bool) {
	switch key {
	case kh.bound(kh.keys.OpenImage):
		if p == nil {
			return kh.app, nil, true
		}
		link := media.FirstImageURL(p.Content)
		if link == "" {
			kh.app.setStatus(MsgNoImage, StatusWarn)
			return kh.app, nil, true
		}
		return kh.app, kh.app.openLink(link), true
	case kh.bound(kh.keys.Author):
		if p == nil || strings.TrimSpace(p.Author) == "" {
			return kh.app, nil, true
		}
		return kh.app, kh.enterAuthor(p.Author), true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleAishCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	if key != kh.bound(kh.keys.OpenImage) && key != "enter" {
		return kh.app, nil, false
	}
	i := kh.app.aishTable.Cursor()
	if i < 0 || i >= len(kh.app.aishPosts) {
		return kh.app, nil, true
	}
	link := kh.app.aishPosts[i].ArticleURL
	if link == "" {
		return kh.app, nil, true
	}
	return kh.app, kh.app.openLink(link), true
}

// delegateToCharm lets Charm handle all keys we don't intercept
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a := kh.app

	switch a.view {
	case ViewFeed, ViewAuthor:
		l := a.activeList()
		*l, cmd = l.Update(msg)
		if msg.String() == "enter" {
			if p := a.selectedPost(*l); p != nil {
				return a, kh.openReader(*p)
			}
		}
		return a, cmd

	case ViewSearch:
		switch msg.String() {
		case "tab", "shift+tab", "/":
			return a, a.searchInput.Focus()
		case "up":
			if a.searchList.Index() == 0 {
				return a, a.searchInput.Focus()
			}
		}
		a.searchList, cmd = a.searchList.Update(msg)
		if msg.String() == "enter" {
			if p := a.selectedPost(a.searchList); p != nil {
				return a, kh.openReader(*p)
			}
		}
		return a, cmd

	case ViewReader:
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	case ViewStats:
		a.statsTable, cmd = a.statsTable.Update(msg)
		if msg.String() == "enter" {
			if row := a.statsTable.SelectedRow(); len(row) > 0 && row[0] != "" {
				return a, kh.enterAuthor(row[0])
			}
		}
		return a, cmd

	case ViewAish:
		a.aishTable, cmd = a.aishTable.Update(msg)
		return a, cmd

	default:
		return a, nil
	}
}

func (kh *KeyHandler) openReader(p api.Post) tea.Cmd {
	a := kh.app
	a.currentPost = &p
	a.loadingPost = true
	a.push(ViewReader)
	return tea.Batch(a.spinner.Tick, a.renderPost(p))
}

func (kh *KeyHandler) enterAuthor(author string) tea.Cmd {
	a := kh.app
	a.currentAuthor = author
	a.authorSeq++
	a.busy = true
	a.authorList.Title = "› " + author
	a.authorList.SetItems(nil)
	a.push(ViewAuthor)
	a.setStatus(MsgLoading, StatusInfo)
	return tea.Batch(a.spinner.Tick, a.loadAuthor(a.authorSeq, author))
}

func (kh *KeyHandler) enterStats() tea.Cmd {
	a := kh.app
	if a.view == ViewStats {
		return nil
	}
	a.busy = true
	a.push(ViewStats)
	a.setStatus(MsgLoading, StatusInfo)
	return tea.Batch(a.spinner.Tick, a.loadStats())
}

func (kh *KeyHandler) enterAish() tea.Cmd {
	a := kh.app
	if a.view == ViewAish {
		return nil
	}
	a.busy = true
	a.push(ViewAish)
	a.setStatus(MsgLoading, StatusInfo)
	return tea.Batch(a.spinner.Tick, a.loadAish())
}

// toggleLogin logs out when a session exists, otherwise opens the form.
func (kh *KeyHandler) toggleLogin() tea.Cmd {
	a := kh.app
	if a.session.Authenticated() {
		a.busy = true
		return a.logout()
	}
	return a.enterLogin("")
}

// navigateBack pops the view history. Backing out of the feed quits.
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := kh.app

	switch a.view {
	case ViewFeed:
		return a, tea.Quit
	case ViewSearch:
		a.searchInput.Reset()
		a.searchInput.Blur()
		a.pendingSearchQuery = ""
		a.searchSeq++
		a.searching = false
		a.searchList.SetItems(nil)
	case ViewAuthor:
		a.authorSeq++
		a.busy = false
	case ViewReader:
		a.loadingPost = false
	case ViewLogin:
		a.userInput.Blur()
		a.passInput.Blur()
		a.busy = false
	case ViewStats, ViewAish:
		a.busy = false
	}

	a.pop()
	if a.view == ViewSearch && len(a.searchList.Items()) > 0 {
		a.searchInput.Blur()
	}
	return a, nil
}

// enterSearchMode transitions to search view
func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	a := kh.app
	if a.view == ViewSearch {
		return a, a.searchInput.Focus()
	}
	a.push(ViewSearch)
	a.searchInput.Reset()
	a.pendingSearchQuery = ""
	a.searchList.SetItems(nil)

	if ds, ok := a.index.(search.DebugStatser); ok {
		if n, err := ds.DocCount(); err == nil {
			a.setStatus(fmt.Sprintf("Search • local idx: %d", n), StatusInfo)
		}
	}
	return a, a.searchInput.Focus()
}

// GetHelpForCurrentView returns only our custom help text (Charm handles the rest)
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	b := kh.keys
	m := kh.modifierKey
	login := m + b.Login + ": login"
	if kh.app.session.Authenticated() {
		login = m + b.Login + ": logout"
	}

	switch kh.app.view {
	case ViewFeed:
		return []string{
			m + b.NextPage + "/" + b.PrevPage + ": page",
			m + b.CycleField + ": field",
			m + b.ToggleOrder + ": order",
			m + b.CycleRange + ": likes",
			m + b.CycleSize + ": size",
			m + b.Refresh + ": refresh",
			m + b.Search + ": search",
			m + b.Stats + ": stats",
			m + b.Aish + ": aish",
			login,
		}
	case ViewReader:
		return []string{m + b.OpenImage + ": image", m + b.Author + ": author", "esc: back"}
	case ViewSearch:
		return []string{m + b.OpenImage + ": image", m + b.Author + ": author"}
	case ViewAuthor:
		return []string{"enter: read", m + b.OpenImage + ": image", "esc: back"}
	case ViewStats:
		return []string{"enter: author posts", "esc: back"}
	case ViewAish:
		return []string{"enter: open thread", "esc: back"}
	case ViewLogin:
		return []string{"enter: submit", "esc: cancel"}
	default:
		return []string{}
	}
}

func firstPost(items []list.Item) *api.Post {
	if len(items) == 0 {
		return nil
	}
	if i, ok := items[0].(postItem); ok {
		p := i.post
		return &p
	}
	return nil
}
