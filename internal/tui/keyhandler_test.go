package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/treehole/internal/config"
	"github.com/pders01/treehole/internal/query"
	"github.com/pders01/treehole/internal/session"
)

func TestKeyHandler_ModifierKey(t *testing.T) {
	ta := newTestApp()
	assert.NotNil(t, ta.keyHandler)
	assert.Equal(t, "ctrl+", ta.keyHandler.modifierKey)
}

func TestKeyHandler_FeedPaging(t *testing.T) {
	ta := newTestApp()
	ta.snap.TotalPages = 7

	for _, k := range []tea.KeyType{tea.KeyCtrlN, tea.KeyCtrlP, tea.KeyCtrlG, tea.KeyCtrlE} {
		_, _ = update(t, ta.App, tea.KeyMsg{Type: k})
	}

	assert.Equal(t, []string{"next", "prev", "page", "page"}, ta.feed.Calls())
	assert.Equal(t, []int{0, 6}, ta.feed.pages)
}

func TestKeyHandler_LastPageWithoutPages(t *testing.T) {
	ta := newTestApp()
	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlE})
	assert.Empty(t, ta.feed.Calls())
}

func TestKeyHandler_CyclesRunAheadOfController(t *testing.T) {
	ta := newTestApp()
	ta.want.Page = 3

	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlF})
	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.Equal(t, []query.SortField{query.FieldLike, query.FieldDislike}, ta.feed.fields)
	assert.Equal(t, 0, ta.want.Page)

	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Equal(t, []query.Direction{query.Asc}, ta.feed.dirs)

	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlL})
	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Equal(t, []query.LikeRange{query.Range0To25, query.Range26To50}, ta.feed.ranges)

	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlW})
	assert.Equal(t, []int{25}, ta.feed.sizes)
	assert.Equal(t, "→ "+ta.want.Summary(), ta.status)
}

func TestKeyHandler_PageSizeUsesConfiguredSizes(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Feed.PageSizes = []int{20, 50}
	ta := newTestAppWithConfig(cfg)

	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlW})
	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlW})
	assert.Equal(t, []int{50, 20}, ta.feed.sizes)
}

func TestKeyHandler_Refresh(t *testing.T) {
	ta := newTestApp()
	_, cmd := update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.NotNil(t, cmd)
	assert.Equal(t, []string{"refresh"}, ta.feed.Calls())
	assert.Equal(t, MsgRefreshing, ta.status)
}

func TestKeyHandler_FeedKeysIgnoredElsewhere(t *testing.T) {
	ta := newTestApp()
	ta.view = ViewStats
	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Empty(t, ta.feed.Calls())
}

func TestKeyHandler_CustomModifier(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Keys.Modifier = "alt"
	ta := newTestAppWithConfig(cfg)
	assert.Equal(t, "alt+", ta.keyHandler.modifierKey)

	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Empty(t, ta.feed.Calls())

	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n"), Alt: true})
	assert.Equal(t, []string{"next"}, ta.feed.Calls())
}

func TestKeyHandler_QuitOnlyOutsideTextInput(t *testing.T) {
	ta := newTestApp()
	_, cmd := update(t, ta.App, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	app, _ := update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlS})
	app, cmd = update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, "q", app.searchInput.Value())
	if cmd != nil {
		_, isQuit := cmd().(tea.QuitMsg)
		assert.False(t, isQuit)
	}
}

func TestKeyHandler_SearchFocusCycling(t *testing.T) {
	ta := newTestApp()
	app, _ := update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.True(t, app.searchInput.Focused())

	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyTab})
	assert.True(t, app.searchInput.Focused(), "tab without results keeps focus")

	app.searchList.SetItems(postItems(samplePosts(), app.now()))
	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyDown})
	assert.False(t, app.searchInput.Focused())

	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyUp})
	assert.True(t, app.searchInput.Focused())
}

func TestKeyHandler_SearchEnterOpensFirstResult(t *testing.T) {
	ta := newTestApp()
	app, _ := update(t, ta.App, tea.KeyMsg{Type: tea.KeyCtrlS})
	app.searchList.SetItems(postItems(samplePosts(), app.now()))

	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewReader, app.view)
	assert.Equal(t, "p1", app.currentPost.PostID)
}

func TestKeyHandler_LoginRequiresBothFields(t *testing.T) {
	ta := newTestApp()
	ta.enterLogin("")
	ta.passInput.SetValue("secret")

	_, cmd := update(t, ta.App, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, StatusWarn, ta.statusKind)
	assert.Empty(t, ta.backend.logins)
}

func TestKeyHandler_LoginTabSwitchesField(t *testing.T) {
	ta := newTestApp()
	ta.enterLogin("")
	require.True(t, ta.userInput.Focused())

	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyTab})
	assert.True(t, ta.passInput.Focused())
	assert.False(t, ta.userInput.Focused())

	_, _ = update(t, ta.App, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.True(t, ta.userInput.Focused())
}

func TestGetHelpForCurrentView(t *testing.T) {
	ta := newTestApp()

	for _, v := range []View{ViewFeed, ViewReader, ViewSearch, ViewAuthor, ViewStats, ViewAish, ViewLogin} {
		ta.view = v
		assert.NotEmpty(t, ta.keyHandler.GetHelpForCurrentView(), v.String())
	}

	ta.view = ViewFeed
	assert.Contains(t, ta.keyHandler.GetHelpForCurrentView(), "ctrl+u: login")
	require.NoError(t, ta.session.Set(session.Credential{Token: "t", Username: "alice"}))
	assert.Contains(t, ta.keyHandler.GetHelpForCurrentView(), "ctrl+u: logout")
}
