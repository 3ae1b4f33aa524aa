package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/tendr/internal/config"
	"github.com/pders01/tendr/internal/docs"
	"github.com/pders01/tendr/internal/feed"
	"github.com/pders01/tendr/internal/search"
	"github.com/pders01/tendr/internal/storage"
	"github.com/pders01/tendr/internal/tender"
)

const (
	// statusTTL is how long a transient status message stays up.
	statusTTL = 4 * time.Second

	// tendersChrome is the rows the tenders view spends on the tab strip,
	// the search box and the status bar.
	tendersChrome = 7
	findChrome    = 10
)

type App struct {
	config       *config.Config
	store        *storage.Store
	sessions     storage.SessionRepository
	controller   *feed.Controller
	launcher     *docs.Launcher
	searchEngine search.Searcher
	keyHandler   *KeyHandler

	tenderList   list.Model
	documentList list.Model
	findList     list.Model
	searchInput  textinput.Model
	findInput    textinput.Model
	nameInput    textinput.Model
	viewport     viewport.Model
	spinner      spinner.Model
	help         help.Model

	view         View
	previousView View
	cameFromFind bool // current tender was opened from the find view
	current      *tender.Display
	session      storage.Session
	profile      profileStats

	// records merged since the last cache write
	unsaved   []tender.Record
	searchSeq uint64
	findSeq   uint64
	finding   bool
	rendering bool
	spinning  bool

	status     string
	statusKind StatusKind
	statusSeq  uint64

	width           int
	height          int
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

// NewApp builds the dashboard. store and searcher may be nil, in which case
// tenders are neither cached nor searchable offline.
func NewApp(cfg *config.Config, source feed.Source, store *storage.Store, searcher search.Searcher) *App {
	tenderList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	tenderList.Title = "› tenders"
	tenderList.SetShowStatusBar(false)
	tenderList.SetFilteringEnabled(false)
	tenderList.SetShowHelp(false)

	documentList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	documentList.Title = "› documents"
	documentList.SetShowStatusBar(false)
	documentList.SetFilteringEnabled(true)
	documentList.SetShowHelp(true)

	findList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	findList.Title = "› seen tenders"
	findList.SetShowStatusBar(false)
	findList.SetFilteringEnabled(false)
	findList.SetShowHelp(false)

	si := textinput.New()
	si.Placeholder = "Search tenders..."
	si.Prompt = "/ "
	si.CharLimit = maxSearchLen

	fi := textinput.New()
	fi.Placeholder = "Find in tenders seen before..."
	fi.CharLimit = maxSearchLen

	ni := textinput.New()
	ni.Placeholder = "Display name"
	ni.CharLimit = 80

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	app := &App{
		config:       cfg,
		store:        store,
		controller:   feed.NewController(source, cfg.API.PageSize, cfg.Feed.SearchDebounce),
		launcher:     docs.NewLauncher(cfg),
		searchEngine: searcher,
		tenderList:   tenderList,
		documentList: documentList,
		findList:     findList,
		searchInput:  si,
		findInput:    fi,
		nameInput:    ni,
		viewport:     viewport.New(0, 0),
		spinner:      sp,
		help:         help.New(),
		view:         ViewTenders,
		previousView: ViewTenders,
		session:      storage.Session{},
		profile:      profileStats{indexed: -1},
	}
	if store != nil {
		app.sessions = store.Sessions()
	}

	app.controller.Coordinator().OnPage(func(records []tender.Record) {
		app.unsaved = append(app.unsaved, records...)
	})
	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

// Controller exposes the feed the dashboard drives.
func (a *App) Controller() *feed.Controller {
	return a.controller
}

// Close releases the feed and cancels any request still in flight.
func (a *App) Close() {
	a.controller.Dispose()
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	maxWidth := a.config.UI.Detail.WordWrapMaxWidth
	minWidth := a.config.UI.Detail.WordWrapMinWidth

	wordWrapWidth := (a.width * 9) / 10
	if maxWidth > 0 && wordWrapWidth > maxWidth {
		wordWrapWidth = maxWidth
	}
	if wordWrapWidth < minWidth {
		wordWrapWidth = minWidth
	}
	if a.width < 50 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	a.restoreSession()
	filter := feed.Filter{
		Search: sanitizeSearchInput(a.session.String(storage.SessionSearch)),
		Tab:    tender.ParseTab(a.session.String(storage.SessionTab)),
	}
	a.searchInput.SetValue(filter.Search)

	req := a.controller.Start(filter)
	return tea.Batch(
		tea.EnterAltScreen,
		a.setStatus(MsgLoadingTenders, StatusInfo, 0),
		a.fetchPage(req),
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		cmds = append(cmds, a.observeVisible())

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		if !a.busy() {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case pageLoadedMsg:
		return a, a.handlePage(msg.res)

	case searchDebounceFireMsg:
		return a, a.fireSearch(msg.seq)

	case findDebounceFireMsg:
		if msg.seq != a.findSeq || a.view != ViewFind {
			return a, nil
		}
		cmd := a.performFind(msg.query)
		return a, tea.Batch(cmd, a.startSpinner())

	case findResultsMsg:
		if msg.seq != a.findSeq {
			return a, nil
		}
		a.finding = false
		if msg.err != nil {
			return a, a.setStatus(msg.err.Error(), StatusError, statusTTL)
		}
		items := make([]list.Item, len(msg.results))
		for i, r := range msg.results {
			items[i] = findItem{result: r}
		}
		a.findList.SetItems(items)
		if len(items) == 0 {
			return a, a.setStatus(MsgNoResults, StatusWarn, statusTTL)
		}
		return a, a.setStatus(MsgResultsCount(len(items)), StatusInfo, statusTTL)

	case tenderRenderedMsg:
		if a.current == nil || a.current.ID != msg.id {
			return a, nil
		}
		a.rendering = false
		a.viewport.SetContent(msg.content)
		a.viewport.GotoTop()
		a.clearStatus()

	case documentOpenedMsg:
		if msg.err != nil {
			return a, a.setStatus(msg.err.Error(), StatusError, statusTTL)
		}
		return a, a.setStatus(MsgOpening(msg.name), StatusSuccess, statusTTL)

	case sessionSavedMsg:
		if msg.err != nil {
			return a, a.setStatus(wrapErr("saving profile", msg.err).Error(), StatusError, statusTTL)
		}
		for k, v := range msg.patch {
			a.session[k] = v
		}
		a.view = ViewProfile
		a.nameInput.Blur()
		return a, a.setStatus(MsgProfileSaved, StatusSuccess, statusTTL)

	case profileStatsMsg:
		a.profile = msg.stats

	case clearStatusMsg:
		if msg.seq == a.statusSeq {
			a.clearStatus()
		}

	case errorMsg:
		return a, a.setStatus(msg.err.Error(), StatusError, statusTTL)
	}

	switch a.view {
	case ViewTenders:
		newInput, cmd := a.searchInput.Update(msg)
		a.searchInput = newInput
		cmds = append(cmds, cmd)
	case ViewDetail:
		switch msg.(type) {
		case tea.WindowSizeMsg, tea.MouseMsg:
			newViewport, cmd := a.viewport.Update(msg)
			a.viewport = newViewport
			cmds = append(cmds, cmd)
		}
	case ViewEditProfile:
		newInput, cmd := a.nameInput.Update(msg)
		a.nameInput = newInput
		cmds = append(cmds, cmd)
	case ViewFind:
		newInput, cmd := a.findInput.Update(msg)
		a.findInput = newInput
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	a.tenderList.SetSize(width, max(height-tendersChrome, 3))
	a.documentList.SetSize(width, max(height-3, 3))
	a.findList.SetSize(width, max(height-findChrome, 5))
	a.viewport.Width = width
	a.viewport.Height = max(height-3, 1)

	inputWidth := width - 8
	if inputWidth < 10 {
		inputWidth = max(width-4, 1)
	}
	a.searchInput.Width = inputWidth
	a.findInput.Width = inputWidth
	a.nameInput.Width = min(inputWidth, 60)
}

// handlePage merges a finished fetch. Results for an earlier epoch, or a
// page no longer in flight, change nothing.
func (a *App) handlePage(res feed.Result) tea.Cmd {
	if !a.controller.Complete(res) {
		return nil
	}

	a.syncTenderList()
	a.clearStatus()
	if res.Err != nil {
		return nil
	}
	return tea.Batch(a.cacheTenders(), a.observeVisible())
}

// syncTenderList re-projects the loaded records into the list.
func (a *App) syncTenderList() {
	display := a.controller.Items()
	items := make([]list.Item, len(display))
	for i, d := range display {
		items[i] = tenderItem{display: d}
	}
	a.tenderList.SetItems(items)
}

// observeVisible reports the last rendered tender to the feed when it is on
// screen or the cursor is within the prefetch threshold of it.
func (a *App) observeVisible() tea.Cmd {
	if a.view != ViewTenders || a.height == 0 {
		return nil
	}
	st := a.controller.State()
	if st.Err != nil || st.Loading || !st.HasMore {
		return nil
	}

	items := a.tenderList.Items()
	n := len(items)
	if n == 0 {
		// Loaded pages that project to nothing leave no row to observe. While
		// a search edit is debouncing the empty list belongs to the old query.
		if st.Page == 0 || a.controller.SearchPending() {
			return nil
		}
		return a.fetchPage(a.controller.Continue())
	}
	if !a.lastItemVisible(n) {
		return nil
	}
	last, ok := items[n-1].(tenderItem)
	if !ok {
		return nil
	}

	req := a.controller.Observe(last.display.ID)
	if req == nil {
		return nil
	}
	return tea.Batch(a.setStatus(MsgLoadingMore, StatusInfo, 0), a.fetchPage(req))
}

func (a *App) lastItemVisible(n int) bool {
	if _, end := a.tenderList.Paginator.GetSliceBounds(n); end >= n {
		return true
	}
	return a.tenderList.Index() >= n-1-a.config.Feed.PrefetchThreshold
}

// editSearch feeds a search box edit to the controller. The list is
// re-projected at once; the server is asked after the debounce.
func (a *App) editSearch(text string) tea.Cmd {
	text = sanitizeSearchInput(text)
	if text == a.controller.Filter().Search {
		return nil
	}
	tick := a.controller.SetSearch(text)
	a.searchSeq = tick.Seq
	a.syncTenderList()
	return tea.Tick(tick.After, func(time.Time) tea.Msg {
		return searchDebounceFireMsg{seq: tick.Seq}
	})
}

func (a *App) fireSearch(seq uint64) tea.Cmd {
	req := a.controller.FireSearch(seq)
	if req == nil {
		return nil
	}
	a.syncTenderList()
	search := a.controller.Filter().Search
	return tea.Batch(
		a.setStatus(MsgLoadingTenders, StatusInfo, 0),
		a.fetchPage(req),
		a.saveSession(storage.Session{storage.SessionSearch: search}),
	)
}

func (a *App) selectTab(tab tender.Tab) tea.Cmd {
	req := a.controller.SetTab(tab)
	if req == nil {
		return nil
	}
	a.tenderList.Select(0)
	a.syncTenderList()
	return tea.Batch(
		a.setStatus(MsgLoadingTenders, StatusInfo, 0),
		a.fetchPage(req),
		a.saveSession(storage.Session{
			storage.SessionTab:    string(tab),
			storage.SessionSearch: a.controller.Filter().Search,
		}),
	)
}

func (a *App) cycleTab(step int) tea.Cmd {
	current := a.controller.Filter().Tab
	idx := 0
	for i, t := range tender.Tabs {
		if t == current {
			idx = i
			break
		}
	}
	n := len(tender.Tabs)
	return a.selectTab(tender.Tabs[((idx+step)%n+n)%n])
}

func (a *App) retry() tea.Cmd {
	req := a.controller.Retry()
	if req == nil {
		return nil
	}
	if req.Page == 1 {
		a.syncTenderList()
	}
	return tea.Batch(a.setStatus(MsgRetrying, StatusInfo, 0), a.fetchPage(req))
}

func (a *App) restoreSession() {
	if a.sessions == nil {
		return
	}
	if s := a.sessions.Get(); s != nil {
		a.session = s
	}
}

func (a *App) busy() bool {
	return a.controller.State().Loading || a.rendering || a.finding
}

// setStatus shows text in the status bar. A positive ttl clears it again
// unless another status replaced it first.
func (a *App) setStatus(text string, kind StatusKind, ttl time.Duration) tea.Cmd {
	a.status = text
	a.statusKind = kind
	a.statusSeq++

	var cmds []tea.Cmd
	if a.busy() {
		cmds = append(cmds, a.startSpinner())
	}
	if ttl > 0 {
		seq := a.statusSeq
		cmds = append(cmds, tea.Tick(ttl, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} }))
	}
	return tea.Batch(cmds...)
}

func (a *App) clearStatus() {
	a.status = ""
	a.statusKind = StatusInfo
	a.statusSeq++
}

// startSpinner starts the spinner tick loop unless it is already running.
func (a *App) startSpinner() tea.Cmd {
	if a.spinning {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

func (a *App) View() string {
	var content string
	contentHeight := max(a.height-3, 0)

	switch a.view {
	case ViewTenders:
		content = a.tendersView()
	case ViewDetail:
		if a.rendering {
			content = renderCentered(a.width, contentHeight, renderMuted(MsgRendering))
		} else {
			content = a.viewport.View()
		}
	case ViewDocuments:
		content = a.documentList.View()
	case ViewFind:
		content = a.findView()
	case ViewProfile:
		content = renderCentered(a.width, contentHeight, a.profileView())
	case ViewEditProfile:
		content = renderCentered(a.width, contentHeight,
			lipgloss.JoinVertical(
				lipgloss.Center,
				TitleStyle.Render("› edit profile"),
				"",
				renderInputFrame(a.nameInput.View(), true, a.nameInput.Width),
				"",
				renderHelp("Press Enter to save, Esc to cancel"),
			),
		)
	}

	separatorWidth := max(a.width-2, 0)
	separator := SeparatorStyle.Render("─" + strings.Repeat("─", separatorWidth))

	return lipgloss.JoinVertical(lipgloss.Top, content, separator, a.getCustomStatusBar())
}

func (a *App) tendersView() string {
	header := renderTabs(a.controller.Filter().Tab)
	searchBox := renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width)

	var body string
	st := a.controller.State()
	height := max(a.height-tendersChrome, 0)
	switch {
	case len(a.tenderList.Items()) > 0:
		body = a.tenderList.View()
	case st.Loading:
		body = renderCentered(a.width, height, renderMuted(MsgLoadingTenders))
	case st.Page == 0:
		body = renderCentered(a.width, height, GetWelcomeMessage())
	default:
		body = renderCentered(a.width, height, renderMuted("No tenders match the current filter"))
	}

	return lipgloss.JoinVertical(lipgloss.Top, header, searchBox, body)
}

func (a *App) findView() string {
	helpText := "Type to search • Tab/↓: results • Esc: back"
	if !a.findInput.Focused() {
		if len(a.findList.Items()) > 0 {
			helpText = "↑↓: navigate • Enter: select • Tab/↑: search box • Esc: back"
		} else {
			helpText = "No results found • Tab/↑: search box • Esc: back"
		}
	}

	subtitle := ""
	if a.searchEngine == nil {
		subtitle = "offline search is unavailable"
	}

	findContent := lipgloss.JoinVertical(
		lipgloss.Top,
		renderHeader("› find", subtitle, a.width),
		"",
		renderInputFrame(a.findInput.View(), a.findInput.Focused(), a.findInput.Width),
		renderMuted(helpText),
		"",
		a.findList.View(),
	)

	return lipgloss.NewStyle().
		Width(a.width).
		Height(max(a.height-3, 0)).
		MaxHeight(max(a.height-3, 0)).
		Render(findContent)
}

func (a *App) profileView() string {
	name := a.session.String(storage.SessionDisplayName)
	if name == "" {
		name = "Guest"
	}

	lastSync := "never"
	if !a.profile.lastSync.IsZero() {
		lastSync = a.profile.lastSync.Format("02 Jan 2006 15:04")
	}
	indexed := "n/a"
	if a.profile.indexed >= 0 {
		indexed = fmt.Sprintf("%d", a.profile.indexed)
	}

	rows := []string{
		TitleStyle.Render("› " + name),
		"",
		renderField("Email", a.session.String(storage.SessionEmail)),
		renderField("Role", a.session.String(storage.SessionRole)),
		"",
		renderField("Last tab", a.session.String(storage.SessionTab)),
		renderField("Last search", a.session.String(storage.SessionSearch)),
		renderField("Tenders cached", fmt.Sprintf("%d", a.profile.cached)),
		renderField("Search index", indexed),
		renderField("Last sync", lastSync),
		"",
		renderHelp("e: edit display name • Esc: back"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) getCustomStatusBar() string {
	var left string
	st := a.controller.State()

	switch {
	case st.Err != nil && a.view == ViewTenders:
		left = ErrorMessageStyle.Render("✗ "+describeErr(st.Err)) +
			renderMuted(" • "+a.keyHandler.modifierKey+"r: retry")
	case a.status != "":
		text := a.status
		if a.busy() {
			text = a.spinner.View() + " " + text
		}
		left = a.statusKind.style().Render(text)
	case a.view == ViewTenders && st.Page > 0:
		left = renderMuted(MsgFeedSummary(len(a.tenderList.Items()), st))
	}

	commands := strings.Join(a.keyHandler.GetHelpForCurrentView(), " • ")
	line := commands
	if left != "" {
		line = left + renderMuted("  │  ") + renderMuted(commands)
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Foreground(MutedColor).
		Render(line)
}

type profileStats struct {
	cached   int
	indexed  int
	lastSync time.Time
}

type pageLoadedMsg struct {
	res feed.Result
}

type searchDebounceFireMsg struct {
	seq uint64
}

type findDebounceFireMsg struct {
	seq   uint64
	query string
}

type findResultsMsg struct {
	seq     uint64
	results []*search.Result
	err     error
}

type tenderRenderedMsg struct {
	id      string
	content string
}

type documentOpenedMsg struct {
	name string
	err  error
}

type sessionSavedMsg struct {
	patch storage.Session
	err   error
}

type profileStatsMsg struct {
	stats profileStats
}

type clearStatusMsg struct {
	seq uint64
}

type errorMsg struct {
	err error
}
