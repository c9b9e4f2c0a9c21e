package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/newsdesk/internal/cache"
	"github.com/matheuskafuri/newsdesk/internal/config"
	"github.com/matheuskafuri/newsdesk/internal/pager"
	"github.com/matheuskafuri/newsdesk/internal/share"
)

// Preference keys persisted between sessions.
const (
	prefCountry  = "country"
	prefCategory = "category"
	prefQuery    = "query"
)

const loadTimeout = 30 * time.Second

type tab int

const (
	tabBreaking tab = iota
	tabSearch
	tabSaved
)

var tabLabels = []string{"Breaking", "Search", "Saved"}

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeCountry
	modeHelp
)

// Store is the part of the cache the app reads and writes.
type Store interface {
	SaveArticle(a cache.Article) error
	DeleteArticle(url string) (cache.Article, error)
	SavedArticles(opts cache.QueryOpts) ([]cache.Article, error)
	Preference(key string) (string, error)
	SetPreference(key, value string) error
}

// listState is what one tab shows.
type listState struct {
	articles []cache.Article
	cursor   int
	loading  bool
	lastPage bool
	stale    bool
	total    int
	err      error
}

func (l *listState) selected() *cache.Article {
	if l.cursor < 0 || l.cursor >= len(l.articles) {
		return nil
	}
	return &l.articles[l.cursor]
}

func (l *listState) apply(snap pager.Snapshot) {
	l.articles = snap.Articles
	l.lastPage = snap.LastPage
	l.stale = snap.Stale
	l.total = snap.TotalResults
	if l.cursor >= len(l.articles) {
		l.cursor = max(0, len(l.articles)-1)
	}
}

type App struct {
	cfg      *config.Config
	store    Store
	breaking *pager.Breaking
	search   *pager.Search
	logger   *slog.Logger
	delay    time.Duration

	tab   tab
	mode  mode
	lists [3]listState
	saved map[string]bool

	width  int
	height int

	searchInput  textinput.Model
	countryInput textinput.Model
	spinner      spinner.Model
	categories   categoryBar

	searchSeq int
	lastFired string
	undo      *cache.Article
	notice    string
	err       error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Cfg    *config.Config
	Store  Store
	Source pager.Source
	Logger *slog.Logger
	// Country and Category override the saved preference when set.
	Country  string
	Category string
}

func NewApp(opts RunOpts) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	country := resolve(opts.Country, pref(opts.Store, prefCountry), opts.Cfg.Country, config.ValidCountry)
	category := resolve(opts.Category, pref(opts.Store, prefCategory), opts.Cfg.Category, config.ValidCategory)
	pageSize := opts.Cfg.GetPageSize()

	si := textinput.New()
	si.Placeholder = "Search news..."
	si.Prompt = searchPromptStyle.Render("/ ")
	si.CharLimit = 100
	si.SetValue(pref(opts.Store, prefQuery))

	ci := textinput.New()
	ci.Placeholder = "two-letter code, e.g. gb"
	ci.Prompt = searchPromptStyle.Render("country: ")
	ci.CharLimit = 2

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	return &App{
		cfg:          opts.Cfg,
		store:        opts.Store,
		breaking:     pager.NewBreaking(opts.Source, pager.Settings{Country: country, Category: category, PageSize: pageSize}),
		search:       pager.NewSearch(opts.Source, pageSize),
		logger:       logger,
		delay:        opts.Cfg.SearchDelayDuration(),
		saved:        make(map[string]bool),
		searchInput:  si,
		countryInput: ci,
		spinner:      sp,
		categories:   newCategoryBar(category),
	}
}

func pref(store Store, key string) string {
	v, err := store.Preference(key)
	if err != nil {
		return ""
	}
	return v
}

// resolve returns the first candidate that is set and valid.
func resolve(flag, saved, fallback string, valid func(string) bool) string {
	for _, v := range []string{flag, saved} {
		if v != "" && valid(v) {
			return strings.ToLower(v)
		}
	}
	return fallback
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.loadBreaking(), a.loadSavedCmd(), a.spinner.Tick}
	if q := strings.TrimSpace(a.searchInput.Value()); q != "" {
		cmds = append(cmds, a.fireSearch(q))
	}
	return tea.Batch(cmds...)
}

func (a *App) loadBreaking() tea.Cmd {
	a.lists[tabBreaking].loading = true
	a.lists[tabBreaking].err = nil
	b := a.breaking
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		snap, err := b.Next(ctx)
		return pageMsg{tab: tabBreaking, snap: snap, err: err}
	}
}

func (a *App) loadSearch(query string) tea.Cmd {
	a.lists[tabSearch].loading = true
	a.lists[tabSearch].err = nil
	s := a.search
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		snap, err := s.Next(ctx, query)
		return pageMsg{tab: tabSearch, snap: snap, err: err}
	}
}

// fireSearch starts a new search for query unless it is the one already shown.
func (a *App) fireSearch(query string) tea.Cmd {
	if query == "" || query == a.lastFired {
		return nil
	}
	a.lastFired = query
	a.lists[tabSearch].cursor = 0
	a.logger.Debug("searching", "query", query)
	return tea.Batch(a.loadSearch(query), a.setPrefCmd(prefQuery, query), a.spinner.Tick)
}

func (a *App) debounce() tea.Cmd {
	a.searchSeq++
	seq, query := a.searchSeq, a.searchInput.Value()
	return tea.Tick(a.delay, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq, query: query}
	})
}

func (a *App) loadSavedCmd() tea.Cmd {
	store := a.store
	return func() tea.Msg {
		articles, err := store.SavedArticles(cache.QueryOpts{})
		if err != nil {
			return errMsg{err: err}
		}
		return savedLoadedMsg{articles: articles}
	}
}

func (a *App) saveCmd(article cache.Article, undo bool) tea.Cmd {
	store := a.store
	return func() tea.Msg {
		if err := store.SaveArticle(article); err != nil {
			return errMsg{err: err}
		}
		return savedMsg{article: article, undo: undo}
	}
}

func (a *App) deleteCmd(url string) tea.Cmd {
	store := a.store
	return func() tea.Msg {
		article, err := store.DeleteArticle(url)
		if err != nil {
			return errMsg{err: err}
		}
		return deletedMsg{article: article}
	}
}

func (a *App) setPrefCmd(key, value string) tea.Cmd {
	store, logger := a.store, a.logger
	return func() tea.Msg {
		if err := store.SetPreference(key, value); err != nil {
			logger.Warn("saving preference", "key", key, "error", err)
		}
		return nil
	}
}

func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := share.Open(url); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func copyURLCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := share.Copy(url); err != nil {
			return errMsg{err: err}
		}
		return noticeMsg{text: "Link copied"}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky messages on any keypress
		a.err = nil
		a.notice = ""
		return a.handleKey(msg)

	case pageMsg:
		return a, a.handlePage(msg)

	case searchTickMsg:
		if msg.seq != a.searchSeq {
			return a, nil
		}
		return a, a.fireSearch(strings.TrimSpace(msg.query))

	case savedLoadedMsg:
		l := &a.lists[tabSaved]
		l.articles = msg.articles
		l.total = len(msg.articles)
		l.lastPage = true
		if l.cursor >= len(l.articles) {
			l.cursor = max(0, len(l.articles)-1)
		}
		a.saved = make(map[string]bool, len(msg.articles))
		for _, art := range msg.articles {
			a.saved[art.URL] = true
		}
		return a, nil

	case savedMsg:
		if msg.undo {
			a.notice = "Restored"
		} else {
			a.notice = "Saved"
		}
		return a, a.loadSavedCmd()

	case deletedMsg:
		art := msg.article
		a.undo = &art
		a.notice = "Deleted · u undo"
		return a, a.loadSavedCmd()

	case noticeMsg:
		a.notice = msg.text
		return a, nil

	case errMsg:
		a.logger.Warn("action failed", "error", msg.err)
		a.err = msg.err
		return a, nil

	case spinner.TickMsg:
		if a.anyLoading() {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handlePage(msg pageMsg) tea.Cmd {
	l := &a.lists[msg.tab]
	switch {
	case errors.Is(msg.err, pager.ErrBusy), errors.Is(msg.err, pager.ErrSuperseded), errors.Is(msg.err, pager.ErrEmptyQuery):
		// Another load owns this list; its result will arrive separately.
		return nil
	case msg.err != nil && !pager.Benign(msg.err):
		a.logger.Warn("page load failed", "tab", tabLabels[msg.tab], "error", msg.err)
		l.loading = false
		l.err = msg.err
		l.apply(msg.snap)
		return nil
	}

	l.loading = false
	l.apply(msg.snap)
	a.logger.Debug("page loaded", "tab", tabLabels[msg.tab], "page", msg.snap.Page, "articles", len(msg.snap.Articles), "total", msg.snap.TotalResults)
	return nil
}

func (a *App) anyLoading() bool {
	for _, l := range a.lists {
		if l.loading {
			return true
		}
	}
	return false
}

// maybeNextPage loads the next page once the cursor sits on the last item.
func (a *App) maybeNextPage() tea.Cmd {
	l := &a.lists[a.tab]
	if l.loading || l.err != nil || l.lastPage || len(l.articles) == 0 || l.cursor != len(l.articles)-1 {
		return nil
	}
	switch a.tab {
	case tabBreaking:
		return tea.Batch(a.loadBreaking(), a.spinner.Tick)
	case tabSearch:
		if q := a.search.Query(); q != "" {
			return tea.Batch(a.loadSearch(q), a.spinner.Tick)
		}
	}
	return nil
}

// resetBreaking empties the breaking list and starts loading page one.
func (a *App) resetBreaking() tea.Cmd {
	l := &a.lists[tabBreaking]
	l.articles = nil
	l.cursor = 0
	l.lastPage = false
	l.stale = false
	return tea.Batch(a.loadBreaking(), a.spinner.Tick)
}

func (a *App) selectCategory() tea.Cmd {
	category := a.categories.current()
	if !a.breaking.SetCategory(category) {
		return nil
	}
	return tea.Batch(a.resetBreaking(), a.setPrefCmd(prefCategory, category))
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.mode {
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeCountry:
		return a.handleCountryKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	l := &a.lists[a.tab]
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if l.cursor < len(l.articles)-1 {
			l.cursor++
		}
		return a, a.maybeNextPage()
	case "k", "up":
		if l.cursor > 0 {
			l.cursor--
		}
		return a, nil
	case "g", "home":
		l.cursor = 0
		return a, nil
	case "G", "end":
		l.cursor = max(0, len(l.articles)-1)
		return a, a.maybeNextPage()
	case "tab":
		a.tab = (a.tab + 1) % 3
		return a, nil
	case "shift+tab":
		a.tab = (a.tab + 2) % 3
		return a, nil
	case "b":
		a.tab = tabBreaking
		return a, nil
	case "S":
		a.tab = tabSaved
		return a, nil
	case "/":
		a.tab = tabSearch
		a.mode = modeSearch
		a.searchInput.Focus()
		return a, textinput.Blink
	case "o", "enter":
		if art := l.selected(); art != nil {
			return a, openBrowserCmd(art.URL)
		}
		return a, nil
	case "y":
		if art := l.selected(); art != nil {
			return a, copyURLCmd(art.URL)
		}
		return a, nil
	case "s":
		if art := l.selected(); art != nil {
			return a, a.saveCmd(*art, false)
		}
		return a, nil
	case "d":
		if a.tab == tabSaved {
			if art := l.selected(); art != nil {
				return a, a.deleteCmd(art.URL)
			}
		}
		return a, nil
	case "u":
		if a.undo != nil {
			art := *a.undo
			a.undo = nil
			return a, a.saveCmd(art, true)
		}
		return a, nil
	case "r":
		switch a.tab {
		case tabBreaking:
			a.breaking.Refresh()
			return a, a.resetBreaking()
		case tabSearch:
			// retries the page that failed; the cursor only advances on success
			if q := a.search.Query(); q != "" && l.err != nil && !l.loading {
				return a, tea.Batch(a.loadSearch(q), a.spinner.Tick)
			}
			return a, nil
		case tabSaved:
			return a, a.loadSavedCmd()
		}
	case ",":
		a.mode = modeCountry
		a.countryInput.SetValue("")
		a.countryInput.Focus()
		return a, textinput.Blink
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	if a.tab == tabBreaking {
		return a, a.handleCategoryKey(msg)
	}
	return a, nil
}

func (a *App) handleCategoryKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "left", "h":
		a.categories.move(-1)
		return a.selectCategory()
	case "right", "l":
		a.categories.move(1)
		return a.selectCategory()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if a.categories.pick(int(msg.String()[0] - '0')) {
			return a.selectCategory()
		}
	}
	return nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, nil
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		a.searchSeq++ // drop any pending tick
		return a, a.fireSearch(strings.TrimSpace(a.searchInput.Value()))
	}

	before := a.searchInput.Value()
	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	// Only re-query on actual value changes, not cursor moves etc.
	if a.searchInput.Value() == before {
		return a, cmd
	}
	return a, tea.Batch(cmd, a.debounce())
}

func (a *App) handleCountryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.countryInput.Blur()
		return a, nil
	case "enter":
		code := strings.ToLower(strings.TrimSpace(a.countryInput.Value()))
		a.mode = modeNormal
		a.countryInput.Blur()
		if !config.ValidCountry(code) {
			a.err = fmt.Errorf("unsupported country %q", code)
			return a, nil
		}
		if !a.breaking.SetCountry(code) {
			return a, nil
		}
		a.tab = tabBreaking
		return a, tea.Batch(a.resetBreaking(), a.setPrefCmd(prefCountry, code))
	}

	var cmd tea.Cmd
	a.countryInput, cmd = a.countryInput.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  newsdesk")
	}
	if a.mode == modeHelp {
		return a.renderHelp()
	}

	l := &a.lists[a.tab]

	// Header
	country := a.breaking.Country()
	headerLeft := headerStyle.Render("newsdesk")
	meta := flagEmoji(country) + " " + strings.ToUpper(country)
	if l.stale {
		meta = staleStyle.Render("offline · cached") + "  " + meta
	}
	headerRight := headerMetaStyle.Render(meta + " ")
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	tabs := renderTabRow(tabLabels, int(a.tab), a.width)

	// Second row depends on the tab.
	var sub string
	switch a.tab {
	case tabBreaking:
		sub = a.categories.render(a.width)
	case tabSearch:
		sub = " " + a.searchInput.View()
	case tabSaved:
		sub = " " + helpDimStyle.Render(fmt.Sprintf("%d saved", len(l.articles)))
	}
	if a.mode == modeCountry {
		sub = " " + a.countryInput.View()
	}

	contentHeight := a.height - 4 - 4 // header, tabs, sub, status + borders
	if contentHeight < 3 {
		contentHeight = 3
	}
	listWidth := int(float64(a.width) * 0.4)
	previewWidth := a.width - listWidth - 1

	listContent := renderList(l.articles, a.saved, l.cursor, contentHeight, listWidth-4, a.emptyText(), a.listFooter())
	listPane := listPaneStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)

	previewContent := renderPreview(l.selected(), previewWidth-4, contentHeight)
	previewPane := previewPaneStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)

	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	return lipgloss.JoinVertical(lipgloss.Left, header, tabs, sub, content, a.statusLine())
}

func (a *App) emptyText() string {
	l := &a.lists[a.tab]
	switch {
	case l.loading:
		return "Loading..."
	case l.err != nil:
		return pager.Message(l.err)
	case a.tab == tabSearch && a.lastFired == "":
		return "Type / to search"
	case a.tab == tabSaved:
		return "Nothing saved yet"
	}
	return "No articles found"
}

func (a *App) listFooter() string {
	l := &a.lists[a.tab]
	switch {
	case a.tab == tabSaved:
		return ""
	case l.loading:
		return "loading more..."
	case l.err != nil:
		return pager.Message(l.err) + " · r retry"
	case l.lastPage:
		return "end of list"
	}
	return ""
}

func (a *App) statusLine() string {
	l := &a.lists[a.tab]

	left := fmt.Sprintf(" %d", len(l.articles))
	if l.total > len(l.articles) {
		left += fmt.Sprintf("/%d", l.total)
	}
	left += " articles"
	if a.tab == tabBreaking {
		left += " · " + config.CategoryLabel(a.breaking.Category())
	}
	if l.loading {
		left = a.spinner.View() + left
	}

	var hints string
	switch {
	case a.mode == modeSearch:
		hints = "esc done  enter search"
	case a.mode == modeCountry:
		hints = "esc cancel  enter apply"
	case a.tab == tabSaved:
		hints = "d delete  u undo  o open  y copy  ? help  q quit"
	case a.tab == tabBreaking:
		hints = "←/→ category  s save  r refresh  , country  ? help  q quit"
	default:
		hints = "/ search  s save  o open  y copy  ? help  q quit"
	}

	switch {
	case a.err != nil:
		return errorStyle.Render(" " + pager.Message(a.err))
	case a.notice != "":
		left += " · " + a.notice
	}
	return renderStatusBar(left, hints, a.width)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("newsdesk")
	dim := helpDimStyle

	help := title + dim.Render(" · Keyboard Shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓      Move through the list\n" +
		"  g/G           First / last article\n" +
		"  tab, b, /, S  Switch tab (Breaking, Search, Saved)\n\n" +
		dim.Render("Breaking") + "\n" +
		"  ←/→, 1-7      Change category\n" +
		"  ,             Change country\n" +
		"  r             Refresh\n\n" +
		dim.Render("Articles") + "\n" +
		"  o, enter      Open in browser\n" +
		"  y             Copy link\n" +
		"  s             Save\n" +
		"  d, u          Delete saved / undo\n\n" +
		dim.Render("General") + "\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c     Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
