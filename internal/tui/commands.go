package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/tendr/internal/debuglog"
	"github.com/pders01/tendr/internal/feed"
	"github.com/pders01/tendr/internal/search"
	"github.com/pders01/tendr/internal/storage"
	"github.com/pders01/tendr/internal/tender"
)

// findLimit caps how many cached tenders the find view lists.
const findLimit = 30

// fetchPage runs req off the event loop. A nil req means there is nothing
// to load.
func (a *App) fetchPage(req *feed.Request) tea.Cmd {
	if req == nil {
		return nil
	}
	controller := a.controller
	return func() tea.Msg {
		return pageLoadedMsg{res: controller.Fetch(req)}
	}
}

// cacheTenders writes the records merged since the last call to the store
// and the search index. Failures only cost offline search, so they are
// logged and not shown.
func (a *App) cacheTenders() tea.Cmd {
	if len(a.unsaved) == 0 {
		return nil
	}
	records := a.unsaved
	a.unsaved = nil

	store := a.store
	indexer, _ := a.searchEngine.(search.Indexer)
	if store == nil && indexer == nil {
		return nil
	}

	return func() tea.Msg {
		var g errgroup.Group
		if store != nil {
			g.Go(func() error {
				if err := retryOperation(func() error { return store.SaveTenders(records) }); err != nil {
					debuglog.Warnf("caching %d tenders: %v", len(records), err)
				}
				return nil
			})
		}
		if indexer != nil {
			g.Go(func() error {
				if err := indexer.Index(records); err != nil {
					debuglog.Warnf("indexing %d tenders: %v", len(records), err)
				}
				return nil
			})
		}
		g.Wait()
		return nil
	}
}

// renderTender renders d as markdown. The renderer is picked on the event
// loop since it is cached on the App.
func (a *App) renderTender(d tender.Display) tea.Cmd {
	r, err := a.getRenderer()
	if err != nil {
		content := "Error initializing renderer: " + err.Error()
		return func() tea.Msg { return tenderRenderedMsg{id: d.ID, content: content} }
	}

	return func() tea.Msg {
		rendered, err := r.Render(tenderMarkdown(d))
		if err != nil {
			// Always answer so the loading state is cleared.
			return tenderRenderedMsg{id: d.ID, content: fmt.Sprintf("# Error\n\nFailed to render tender: %s\n\nPress Escape to go back.", err.Error())}
		}
		return tenderRenderedMsg{id: d.ID, content: rendered}
	}
}

// tenderMarkdown lays out a tender for the detail view.
func tenderMarkdown(d tender.Display) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	fmt.Fprintf(&b, "**%s** • %s priority • %s\n\n", strings.ToUpper(string(d.Status)), d.Priority, deadlineLabel(d))

	b.WriteString("| | |\n|---|---|\n")
	row := func(label, value string) {
		if value == "" {
			value = "N/A"
		}
		fmt.Fprintf(&b, "| %s | %s |\n", label, strings.ReplaceAll(value, "|", "\\|"))
	}
	row("Estimated value", fmt.Sprintf("%s (%s)", d.EstimatedValue, d.FormattedValue))
	row("Category", d.Category)
	row("Bid deadline", d.Deadline)
	posted := d.Posted
	if d.PostedAgo != "" {
		posted += " (" + d.PostedAgo + ")"
	}
	row("Posted", posted)
	row("Issued by", d.Author)
	if d.HasSubmittedBid {
		row("Your bid", "submitted")
	} else {
		row("Your bid", "not submitted")
	}
	b.WriteString("\n")

	if desc := strings.TrimSpace(d.Description); desc != "" {
		b.WriteString("## Description\n\n")
		b.WriteString(desc)
		b.WriteString("\n\n")
	}

	if d.ContactName != "" || d.ContactEmail != "" || d.ContactPhone != "" {
		b.WriteString("## Contact\n\n")
		if d.ContactName != "" {
			fmt.Fprintf(&b, "- %s\n", d.ContactName)
		}
		if d.ContactEmail != "" {
			fmt.Fprintf(&b, "- Email: %s\n", d.ContactEmail)
		}
		if d.ContactPhone != "" {
			fmt.Fprintf(&b, "- Phone: %s\n", d.ContactPhone)
		}
		b.WriteString("\n")
	}

	if m := d.Meeting; m != nil {
		b.WriteString("## Pre-bid meeting\n\n")
		if !m.Date.IsZero() {
			fmt.Fprintf(&b, "- When: %s\n", m.Date.Format("02 Jan 2006 15:04"))
		}
		if m.Location != "" {
			fmt.Fprintf(&b, "- Where: %s\n", m.Location)
		}
		if m.Link != "" {
			fmt.Fprintf(&b, "- [Join online](%s)\n", m.Link)
		}
		b.WriteString("\n")
	}

	if d.DocumentCount > 0 {
		fmt.Fprintf(&b, "## Documents (%d)\n\n", d.DocumentCount)
		for _, doc := range d.Documents {
			name := doc.Name
			if name == "" {
				name = doc.URL
			}
			fmt.Fprintf(&b, "- [%s](%s)\n", name, doc.URL)
		}
	}

	return b.String()
}

func (a *App) performFind(query string) tea.Cmd {
	seq := a.findSeq
	engine := a.searchEngine
	if engine == nil {
		return func() tea.Msg {
			return findResultsMsg{seq: seq, err: fmt.Errorf("offline search is unavailable")}
		}
	}

	a.finding = true
	return func() tea.Msg {
		results, err := engine.Search(query, findLimit)
		if err != nil {
			return findResultsMsg{seq: seq, err: wrapErr("search", err)}
		}
		return findResultsMsg{seq: seq, results: results}
	}
}

func (a *App) openDocument(doc tender.Document) tea.Cmd {
	launcher := a.launcher
	return func() tea.Msg {
		if err := launcher.Open(doc); err != nil {
			return documentOpenedMsg{name: doc.Name, err: err}
		}
		return documentOpenedMsg{name: doc.Name}
	}
}

// saveSession records patch locally and persists it in the background.
func (a *App) saveSession(patch storage.Session) tea.Cmd {
	for k, v := range patch {
		a.session[k] = v
	}
	sessions := a.sessions
	if sessions == nil {
		return nil
	}
	return func() tea.Msg {
		if err := retryOperation(func() error { return sessions.Merge(patch) }); err != nil {
			debuglog.Warnf("saving session: %v", err)
		}
		return nil
	}
}

// saveProfile persists a display name edit and reports back.
func (a *App) saveProfile(name string) tea.Cmd {
	patch := storage.Session{storage.SessionDisplayName: name}
	sessions := a.sessions
	return func() tea.Msg {
		if sessions == nil {
			return sessionSavedMsg{patch: patch}
		}
		err := retryOperation(func() error { return sessions.Merge(patch) })
		return sessionSavedMsg{patch: patch, err: err}
	}
}

func (a *App) loadProfileStats() tea.Cmd {
	store := a.store
	statser, _ := a.searchEngine.(search.DebugStatser)
	return func() tea.Msg {
		stats := profileStats{indexed: -1}
		if store != nil {
			if n, err := store.CountTenders(); err == nil {
				stats.cached = n
			}
			stats.lastSync = store.LastSync()
		}
		if statser != nil {
			if n, err := statser.DocCount(); err == nil {
				stats.indexed = n
			}
		}
		return profileStatsMsg{stats: stats}
	}
}

// retryOperation retries a database operation up to 3 times with exponential backoff
func retryOperation(operation func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := operation(); err != nil {
			lastErr = err
			if i < maxRetries-1 {
				time.Sleep(baseDelay * time.Duration(1<<i))
			}
			continue
		}
		return nil
	}
	return lastErr
}
