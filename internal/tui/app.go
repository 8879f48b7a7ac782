package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/config"
	"github.com/pders01/treehole/internal/feed"
	"github.com/pders01/treehole/internal/media"
	"github.com/pders01/treehole/internal/query"
	"github.com/pders01/treehole/internal/search"
	"github.com/pders01/treehole/internal/session"
	"github.com/pders01/treehole/internal/validation"
)

// FeedSource is the controller surface the feed view drives.
type FeedSource interface {
	Start()
	Refresh()
	SetPage(page int)
	NextPage()
	PrevPage()
	SetPageSize(size int)
	SetSortField(f query.SortField)
	SetSortDirection(d query.Direction)
	SetLikeRange(r query.LikeRange)
	Snapshot() feed.Snapshot
	Updates() <-chan feed.Snapshot
}

// Finder looks posts up by keyword or author.
type Finder interface {
	Search(ctx context.Context, keyword string) (*feed.Result, error)
	PostsByAuthor(ctx context.Context, author string) (*feed.Result, error)
}

// Backend covers the remaining server calls.
type Backend interface {
	Statistics(ctx context.Context) ([]api.Stat, error)
	AishPosts(ctx context.Context) ([]api.AishPost, error)
	Login(ctx context.Context, username, password string) (session.Credential, error)
	Logout(ctx context.Context) error
}

type QuerySaver interface {
	SaveQuery(q query.State) error
}

type Opener interface {
	Open(link string) error
}

// Deps wires the app to its collaborators. Queries, Opener and Index are
// optional.
type Deps struct {
	Context context.Context
	Config  *config.Config
	Feed    FeedSource
	Finder  Finder
	Backend Backend
	Session *session.Context
	Queries QuerySaver
	Opener  Opener
	Index   search.Searcher
}

type App struct {
	ctx        context.Context
	config     *config.Config
	feed       FeedSource
	finder     Finder
	backend    Backend
	session    *session.Context
	queries    QuerySaver
	opener     Opener
	index      search.Searcher
	links      *validation.URLValidator
	renderer   *postRenderer
	keyHandler *KeyHandler
	loginCh    chan struct{}
	now        func() time.Time

	feedList    list.Model
	searchList  list.Model
	authorList  list.Model
	statsTable  table.Model
	aishTable   table.Model
	searchInput textinput.Model
	userInput   textinput.Model
	passInput   textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model

	view    View
	history []View
	width   int
	height  int

	snap          feed.Snapshot
	want          query.State
	savedQuery    query.State
	currentPost   *api.Post
	currentAuthor string
	aishPosts     []api.AishPost

	searchSeq          int
	searchDebounce     time.Duration
	pendingSearchQuery string
	searching          bool
	authorSeq          int
	loadingPost        bool
	busy               bool

	status     string
	statusKind StatusKind
}

func NewApp(deps Deps) *App {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.TestConfig()
	}
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ApplyTheme(cfg.UI.Colors)

	feedList := newList("› treehole")
	searchList := newList("› search results")
	authorList := newList("› author")

	si := textinput.New()
	si.Placeholder = "Search posts..."
	si.CharLimit = 256

	ui := textinput.New()
	ui.Placeholder = "username"
	pi := textinput.New()
	pi.Placeholder = "password"
	pi.EchoMode = textinput.EchoPassword
	pi.EchoCharacter = '•'

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(SecondaryColor)

	debounceDelay := cfg.Feed.Debounce
	if debounceDelay <= 0 {
		debounceDelay = 300 * time.Millisecond
	}

	app := &App{
		ctx:            ctx,
		config:         cfg,
		feed:           deps.Feed,
		finder:         deps.Finder,
		backend:        deps.Backend,
		session:        deps.Session,
		queries:        deps.Queries,
		opener:         deps.Opener,
		index:          deps.Index,
		links:          validation.ForConfig(cfg.API.AllowPrivate),
		renderer:       newPostRenderer(),
		loginCh:        make(chan struct{}, 1),
		now:            time.Now,
		feedList:       feedList,
		searchList:     searchList,
		authorList:     authorList,
		statsTable:     newStatsTable(),
		aishTable:      newAishTable(),
		searchInput:    si,
		userInput:      ui,
		passInput:      pi,
		viewport:       viewport.New(0, 0),
		spinner:        sp,
		view:           ViewFeed,
		searchDebounce: debounceDelay,
	}
	if app.session == nil {
		app.session = session.New(nil)
	}
	if app.feed != nil {
		app.snap = app.feed.Snapshot()
		app.want = app.snap.Query
		app.savedQuery = app.snap.Query
	}

	app.keyHandler = NewKeyHandler(app, cfg)
	return app
}

func newList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return l
}

// Navigator returns the hook the API client calls on a 401. It only signals
// the UI loop; the switch to the login view happens in Update.
func (a *App) Navigator() api.Navigator {
	return api.NavigatorFunc(func() {
		select {
		case a.loginCh <- struct{}{}:
		default:
		}
	})
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.EnterAltScreen, a.waitForLogin(), a.spinner.Tick}
	if a.feed != nil {
		a.busy = true
		cmds = append(cmds, a.startFeed(), waitForSnapshot(a.feed.Updates()))
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		if a.view == ViewReader && a.currentPost != nil {
			return a, a.renderPost(*a.currentPost)
		}
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case snapshotMsg:
		return a, tea.Batch(a.applySnapshot(msg.snap), waitForSnapshot(a.feed.Updates()))

	case postRenderedMsg:
		if a.view == ViewReader && a.currentPost != nil && a.currentPost.Key() == msg.key {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.loadingPost = false
		}
		return a, nil

	case searchDebounceFireMsg:
		if msg.seq != a.searchSeq || a.view != ViewSearch {
			return a, nil
		}
		if len([]rune(a.pendingSearchQuery)) < 2 {
			a.searching = false
			a.searchList.SetItems(nil)
			return a, nil
		}
		a.searching = true
		a.setStatus(MsgSearching, StatusInfo)
		return a, a.performSearch(msg.seq, a.pendingSearchQuery)

	case searchResultsMsg:
		if msg.seq != a.searchSeq {
			return a, nil
		}
		a.searching = false
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		a.searchList.SetItems(postItems(msg.posts, a.now()))
		a.setStatus(resultStatus(len(msg.posts), msg.offline), StatusInfo)
		return a, nil

	case authorLoadedMsg:
		if msg.seq != a.authorSeq {
			return a, nil
		}
		a.busy = false
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		a.authorList.SetItems(postItems(msg.posts, a.now()))
		a.setStatus(resultStatus(len(msg.posts), msg.offline), StatusInfo)
		return a, nil

	case statsLoadedMsg:
		a.busy = false
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		a.statsTable.SetRows(statsRows(msg.stats))
		a.setStatus(MsgResultsCount(len(msg.stats)), StatusInfo)
		return a, nil

	case aishLoadedMsg:
		a.busy = false
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		a.aishPosts = msg.posts
		a.aishTable.SetRows(aishRows(msg.posts, a.now()))
		a.setStatus(MsgResultsCount(len(msg.posts)), StatusInfo)
		return a, nil

	case loginResultMsg:
		a.busy = false
		if msg.err != nil {
			a.setError(msg.err)
			a.passInput.Reset()
			return a, a.passInput.Focus()
		}
		a.userInput.Reset()
		a.passInput.Reset()
		a.userInput.Blur()
		a.passInput.Blur()
		a.view = ViewFeed
		a.history = nil
		a.setStatus(MsgLoggedIn(msg.cred.Username), StatusSuccess)
		if a.feed != nil {
			a.feed.Refresh()
		}
		return a, nil

	case logoutResultMsg:
		a.busy = false
		if msg.err != nil {
			a.setStatus(MsgLoggedOut+" (server: "+describeErr(msg.err)+")", StatusWarn)
			return a, nil
		}
		a.setStatus(MsgLoggedOut, StatusSuccess)
		return a, nil

	case unauthorizedMsg:
		if a.view == ViewLogin {
			// rejected credentials; loginResultMsg reports it
			return a, a.waitForLogin()
		}
		return a, tea.Batch(a.enterLogin(MsgLoginNeeded), a.waitForLogin())

	case querySavedMsg:
		if msg.err == nil {
			a.savedQuery = msg.query
		}
		return a, nil

	case errorMsg:
		a.setError(msg.err)
		return a, nil

	case statusMsg:
		a.setStatus(msg.text, msg.kind)
		return a, nil
	}

	return a, nil
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	body := height - 5
	if body < 3 {
		body = 3
	}
	a.feedList.SetSize(width, body)
	a.authorList.SetSize(width, body)

	searchListHeight := height - 10
	if searchListHeight < 5 {
		searchListHeight = 5
	}
	a.searchList.SetSize(width, searchListHeight)

	a.statsTable.SetWidth(width)
	a.statsTable.SetHeight(body)
	a.aishTable.SetWidth(width)
	a.aishTable.SetHeight(body)

	a.viewport.Width = width
	a.viewport.Height = height - 3

	inputWidth := width - 8
	if inputWidth < 10 {
		inputWidth = width - 4
	}
	a.searchInput.Width = inputWidth
	a.userInput.Width = min(inputWidth, 40)
	a.passInput.Width = min(inputWidth, 40)
}

// applySnapshot mirrors the controller into the feed view. want holds the
// sort settings the user asked for, which run ahead of the controller while
// a mutation is still debounced, so repeated presses keep cycling from the
// latest choice. Only the page is taken back from the controller.
func (a *App) applySnapshot(s feed.Snapshot) tea.Cmd {
	prevSeq := a.snap.Seq
	a.snap = s
	a.want.Page = s.Query.Page
	if !s.Loading {
		a.busy = false
	}

	if s.Seq != prevSeq || len(a.feedList.Items()) != len(s.Posts) {
		a.feedList.SetItems(postItems(s.Posts, a.now()))
		a.feedList.Select(0)
	}
	a.feedList.Title = "› treehole  " + renderMuted(s.Query.Summary())

	if s.Err != nil && !s.Loading {
		a.setError(s.Err)
	} else if !s.Loading && a.statusKind != StatusError {
		a.setStatus(MsgPageSummary(s.Query.Page, s.TotalPages, s.Total), StatusInfo)
	}

	if !s.Loading && s.Err == nil && s.Query != a.savedQuery {
		return a.saveQuery(s.Query)
	}
	return nil
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) setError(err error) {
	if err == nil {
		return
	}
	a.setStatus(describeErr(err), StatusError)
}

// push shows v and remembers the current view for navigateBack.
func (a *App) push(v View) {
	if a.view == v {
		return
	}
	a.history = append(a.history, a.view)
	a.view = v
}

func (a *App) pop() {
	if len(a.history) == 0 {
		a.view = ViewFeed
		return
	}
	a.view = a.history[len(a.history)-1]
	a.history = a.history[:len(a.history)-1]
}

func (a *App) enterLogin(reason string) tea.Cmd {
	a.push(ViewLogin)
	a.busy = false
	a.userInput.Reset()
	a.passInput.Reset()
	a.passInput.Blur()
	if reason != "" {
		a.setStatus(reason, StatusWarn)
	}
	return a.userInput.Focus()
}

func (a *App) selectedPost(l list.Model) *api.Post {
	if i, ok := l.SelectedItem().(postItem); ok {
		p := i.post
		return &p
	}
	return nil
}

func (a *App) activeList() *list.Model {
	switch a.view {
	case ViewFeed:
		return &a.feedList
	case ViewSearch:
		return &a.searchList
	case ViewAuthor:
		return &a.authorList
	default:
		return nil
	}
}

func (a *App) View() string {
	var content string
	bodyHeight := a.height - 3

	switch a.view {
	case ViewFeed:
		switch {
		case a.busy && len(a.snap.Posts) == 0:
			content = renderCentered(a.width, bodyHeight, a.spinner.View()+" "+MsgLoading)
		case a.snap.Empty():
			content = renderCentered(a.width, bodyHeight, GetEmptyFeedMessage())
		default:
			content = a.feedList.View()
		}
		content = lipgloss.JoinVertical(lipgloss.Top,
			content,
			renderPageBar(a.snap.Window, a.snap.Query.Page, a.snap.TotalPages)+a.loadingMarker(),
		)

	case ViewReader:
		if a.loadingPost {
			content = renderCentered(a.width, bodyHeight, renderMuted(a.spinner.View()+" Loading post…"))
		} else {
			content = a.viewport.View()
		}

	case ViewSearch:
		header := "› search"
		help := "Type to search • Tab/↓: results • Esc: back"
		if !a.searchInput.Focused() {
			if len(a.searchList.Items()) > 0 {
				help = "↑↓: navigate • Enter: open • Tab: search box • Esc: back"
			} else {
				help = "No results • Tab: search box • Esc: back"
			}
		}
		if a.searching {
			header += " " + a.spinner.View()
		}
		content = ContentWrapper(a.width, bodyHeight).Render(lipgloss.JoinVertical(
			lipgloss.Top,
			HeaderStyle.Render(header),
			"",
			renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width),
			renderHelp(help),
			"",
			a.searchList.View(),
		))

	case ViewAuthor:
		content = a.authorList.View()

	case ViewStats:
		content = lipgloss.JoinVertical(lipgloss.Top,
			renderHeader("› statistics", "per author", a.width),
			a.tableOrSpinner(a.statsTable),
		)

	case ViewAish:
		content = lipgloss.JoinVertical(lipgloss.Top,
			renderHeader("› aish123", "latest threads", a.width),
			a.tableOrSpinner(a.aishTable),
		)

	case ViewLogin:
		form := lipgloss.JoinVertical(
			lipgloss.Left,
			TitleStyle.Render("› login"),
			"",
			renderInputFrame(a.userInput.View(), a.userInput.Focused(), a.userInput.Width),
			renderInputFrame(a.passInput.View(), a.passInput.Focused(), a.passInput.Width),
			"",
			renderHelp("Enter: next/submit • Tab: switch field • Esc: cancel"),
		)
		content = renderCentered(a.width, bodyHeight, form)
	}

	separatorWidth := a.width - 1
	if separatorWidth < 0 {
		separatorWidth = 0
	}
	separator := SeparatorStyle.Render(strings.Repeat("─", separatorWidth))
	return lipgloss.JoinVertical(lipgloss.Top, content, separator, a.statusBar())
}

func (a *App) tableOrSpinner(t table.Model) string {
	if a.busy && len(t.Rows()) == 0 {
		return renderCentered(a.width, a.height-5, a.spinner.View()+" "+MsgLoading)
	}
	return t.View()
}

func (a *App) loadingMarker() string {
	switch {
	case a.snap.Refreshing:
		return " " + a.spinner.View() + " " + renderMuted(MsgRefreshing)
	case a.snap.Loading:
		return " " + a.spinner.View()
	default:
		return ""
	}
}

func (a *App) statusBar() string {
	left := a.statusKind.style().Render(a.status)
	if a.statusKind == StatusError {
		left = ErrorMessageStyle.Render("✗ " + a.status)
	}

	right := strings.Join(a.keyHandler.GetHelpForCurrentView(), " • ")
	user := ""
	if cred := a.session.Get(); !cred.Empty() {
		user = AuthorStyle.Render("@"+cred.Username) + " "
	}

	line := left
	if right != "" {
		if line != "" {
			line += SeparatorStyle.Render("  │  ")
		}
		line += renderMuted(right)
	}
	return StatusBarStyle.Width(a.width).Render(user + line)
}

// postItem renders one post in a list.
type postItem struct {
	post api.Post
	now  time.Time
}

func postItems(posts []api.Post, now time.Time) []list.Item {
	items := make([]list.Item, len(posts))
	for i, p := range posts {
		items[i] = postItem{post: p, now: now}
	}
	return items
}

func (i postItem) Title() string {
	author := i.post.Author
	if author == "" {
		author = "匿名"
	}
	meta := timeAgo(postTime(i.post), i.now)
	if i.post.IPLocation != "" {
		meta += " · " + i.post.IPLocation
	}
	return AuthorStyle.Render(author) + TimeStyle.Render(" · "+meta)
}

func (i postItem) Description() string {
	body := truncateEnd(oneLine(media.StripImages(i.post.Content)), 80)
	if media.FirstImageURL(i.post.Content) != "" {
		body = "🖼 " + body
	}
	votes := fmt.Sprintf(" 👍%d 👎%d 💬%d", i.post.VotePositive, i.post.VoteNegative, i.post.SubCommentCount)
	return renderMuted(body) + TimeStyle.Render(votes)
}

func (i postItem) FilterValue() string { return i.post.Author + " " + i.post.Content }

func newStatsTable() table.Model {
	return table.New(
		table.WithColumns([]table.Column{
			{Title: "Author", Width: 20},
			{Title: "Posts", Width: 8},
			{Title: "Comments", Width: 10},
			{Title: "Likes", Width: 8},
			{Title: "Dislikes", Width: 9},
		}),
		table.WithFocused(true),
	)
}

func statsRows(stats []api.Stat) []table.Row {
	rows := make([]table.Row, len(stats))
	for i, s := range stats {
		rows[i] = table.Row{
			truncateEnd(s.Author, 20),
			itoa(s.ArticlesPosted),
			itoa(s.CommentsReceived),
			itoa(s.TotalLikes),
			itoa(s.TotalDislikes),
		}
	}
	return rows
}

func newAishTable() table.Model {
	return table.New(
		table.WithColumns([]table.Column{
			{Title: "Title", Width: 36},
			{Title: "Area", Width: 10},
			{Title: "Author", Width: 14},
			{Title: "Replies", Width: 8},
			{Title: "Reads", Width: 8},
			{Title: "Last reply", Width: 12},
		}),
		table.WithFocused(true),
	)
}

func aishRows(posts []api.AishPost, now time.Time) []table.Row {
	rows := make([]table.Row, len(posts))
	for i, p := range posts {
		title := p.Title
		if p.IsNewUserPost {
			title = "★ " + title
		}
		rows[i] = table.Row{
			truncateEnd(title, 36),
			truncateEnd(p.Area, 10),
			truncateEnd(p.Author, 14),
			itoa(p.ReplyCount),
			itoa(p.ReadCount),
			timeAgo(p.LastReplyTime.Time, now),
		}
	}
	return rows
}

func resultStatus(n int, offline bool) string {
	if n == 0 {
		return MsgNoResults
	}
	if offline {
		return MsgResultsCount(n) + " • " + MsgOffline
	}
	return MsgResultsCount(n)
}

type snapshotMsg struct {
	snap feed.Snapshot
}

type postRenderedMsg struct {
	key     string
	content string
}

type searchDebounceFireMsg struct {
	seq int
}

type searchResultsMsg struct {
	seq     int
	posts   []api.Post
	offline bool
	err     error
}

type authorLoadedMsg struct {
	seq     int
	posts   []api.Post
	offline bool
	err     error
}

type statsLoadedMsg struct {
	stats []api.Stat
	err   error
}

type aishLoadedMsg struct {
	posts []api.AishPost
	err   error
}

type loginResultMsg struct {
	cred session.Credential
	err  error
}

type logoutResultMsg struct {
	err error
}

type unauthorizedMsg struct{}

type querySavedMsg struct {
	query query.State
	err   error
}

type errorMsg struct {
	err error
}

type statusMsg struct {
	text string
	kind StatusKind
}
