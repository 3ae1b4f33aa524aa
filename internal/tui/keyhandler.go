package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/tendr/internal/config"
	"github.com/pders01/tendr/internal/search"
	"github.com/pders01/tendr/internal/storage"
	"github.com/pders01/tendr/internal/tender"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, modifierKey: modifierKey}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	// The document list's own filter box takes every key but ctrl+c.
	if kh.app.view == ViewDocuments && kh.app.documentList.FilterState() == list.Filtering && key != "ctrl+c" {
		return kh.delegateToCharm(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewTenders:
		return kh.app.searchInput.Focused()
	case ViewFind:
		return kh.app.findInput.Focused()
	case ViewEditProfile:
		return kh.app.nameInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return kh.navigateBack()
	case "ctrl+c":
		return kh.app, tea.Quit
	case "enter":
		return kh.handleTextInputEnter()
	case "tab", "down":
		switch kh.app.view {
		case ViewTenders:
			kh.app.searchInput.Blur()
			return kh.app, nil
		case ViewFind:
			if len(kh.app.findList.Items()) > 0 {
				kh.app.findInput.Blur()
				kh.app.findList.Select(0)
			}
			return kh.app, nil
		}
		return kh.delegateToTextInput(msg)
	default:
		return kh.delegateToTextInput(msg)
	}
}

func (kh *KeyHandler) handleTextInputEnter() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewTenders:
		// Skip the rest of the quiet period.
		kh.app.searchInput.Blur()
		if kh.app.controller.SearchPending() {
			return kh.app, kh.app.fireSearch(kh.app.searchSeq)
		}
		return kh.app, nil

	case ViewFind:
		if items := kh.app.findList.Items(); len(items) > 0 {
			if i, ok := items[0].(findItem); ok {
				return kh.selectFindResult(i)
			}
		}
		return kh.app, nil

	case ViewEditProfile:
		name := strings.TrimSpace(kh.app.nameInput.Value())
		if name == "" {
			return kh.app, kh.app.setStatus("Display name cannot be empty", StatusWarn, statusTTL)
		}
		return kh.app, kh.app.saveProfile(name)

	default:
		return kh.app, nil
	}
}

// delegateToTextInput passes the key to the focused text input
func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewTenders:
		newInput, cmd := kh.app.searchInput.Update(msg)
		kh.app.searchInput = newInput
		return kh.app, tea.Batch(cmd, kh.app.editSearch(kh.app.searchInput.Value()))

	case ViewFind:
		prev := sanitizeSearchInput(kh.app.findInput.Value())
		newInput, cmd := kh.app.findInput.Update(msg)
		kh.app.findInput = newInput

		query := sanitizeSearchInput(kh.app.findInput.Value())
		if query == prev {
			return kh.app, cmd
		}
		kh.app.findSeq++
		if len([]rune(query)) < 2 {
			kh.app.findList.SetItems([]list.Item{})
			return kh.app, cmd
		}
		seq := kh.app.findSeq
		wait := kh.config.Feed.SearchDebounce
		return kh.app, tea.Batch(cmd, tea.Tick(wait, func(time.Time) tea.Msg {
			return findDebounceFireMsg{seq: seq, query: query}
		}))

	case ViewEditProfile:
		newInput, cmd := kh.app.nameInput.Update(msg)
		kh.app.nameInput = newInput
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "ctrl+c", "q":
		return kh.app, tea.Quit, true
	case "esc":
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case kh.modifierKey + "f":
		model, cmd := kh.enterFindMode()
		return model, cmd, true
	case kh.modifierKey + "p":
		model, cmd := kh.enterProfile()
		return model, cmd, true
	}

	switch kh.app.view {
	case ViewTenders:
		return kh.handleTendersCustomKeys(key)
	case ViewDetail:
		return kh.handleDetailCustomKeys(key)
	case ViewDocuments:
		return kh.handleDocumentsCustomKeys(key)
	case ViewProfile:
		return kh.handleProfileCustomKeys(key)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleTendersCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "/":
		kh.app.searchInput.Focus()
		kh.app.searchInput.CursorEnd()
		return kh.app, nil, true
	case "tab", "]":
		return kh.app, kh.app.cycleTab(1), true
	case "shift+tab", "[":
		return kh.app, kh.app.cycleTab(-1), true
	case "1", "2", "3", "4", "5":
		idx := int(key[0] - '1')
		if idx < len(tender.Tabs) {
			return kh.app, kh.app.selectTab(tender.Tabs[idx]), true
		}
	case kh.modifierKey + "r":
		return kh.app, kh.app.retry(), true
	case kh.modifierKey + "o":
		if i, ok := kh.app.tenderList.SelectedItem().(tenderItem); ok {
			d := i.display
			kh.app.current = &d
			model, cmd := kh.openDocumentList()
			return model, cmd, true
		}
		return kh.app, nil, true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleDetailCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	if key == kh.modifierKey+"o" {
		model, cmd := kh.openDocumentList()
		return model, cmd, true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleDocumentsCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	if kh.app.documentList.FilterState() == list.Filtering {
		return kh.app, nil, false
	}
	switch key {
	case "enter", kh.modifierKey + "o":
		if item, ok := kh.app.documentList.SelectedItem().(documentItem); ok {
			return kh.app, tea.Batch(
				kh.app.setStatus(MsgOpening(item.doc.Name), StatusInfo, 0),
				kh.app.openDocument(item.doc),
			), true
		}
		return kh.app, nil, true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleProfileCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "e", "enter":
		kh.app.view = ViewEditProfile
		kh.app.nameInput.SetValue(kh.app.session.String(storage.SessionDisplayName))
		kh.app.nameInput.CursorEnd()
		return kh.app, kh.app.nameInput.Focus(), true
	}
	return kh.app, nil, false
}

// delegateToCharm lets Charm handle all keys we don't intercept
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewTenders:
		kh.app.tenderList, cmd = kh.app.tenderList.Update(msg)
		if msg.String() == "enter" {
			if i, ok := kh.app.tenderList.SelectedItem().(tenderItem); ok {
				kh.app.cameFromFind = false
				return kh.openDetail(i.display)
			}
		}
		// Moving the cursor may bring the last row into view.
		return kh.app, tea.Batch(cmd, kh.app.observeVisible())

	case ViewFind:
		if !kh.app.findInput.Focused() {
			switch msg.String() {
			case "tab", "shift+tab", "/", "i":
				return kh.app, kh.app.findInput.Focus()
			case "up":
				if kh.app.findList.Index() == 0 {
					return kh.app, kh.app.findInput.Focus()
				}
			}
		}

		kh.app.findList, cmd = kh.app.findList.Update(msg)
		if msg.String() == "enter" {
			if i, ok := kh.app.findList.SelectedItem().(findItem); ok {
				return kh.selectFindResult(i)
			}
		}
		return kh.app, cmd

	case ViewDetail:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
		return kh.app, cmd

	case ViewDocuments:
		kh.app.documentList, cmd = kh.app.documentList.Update(msg)
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

// openDetail shows d in the detail view and renders it in the background.
func (kh *KeyHandler) openDetail(d tender.Display) (tea.Model, tea.Cmd) {
	kh.app.current = &d
	kh.app.rendering = true
	kh.app.view = ViewDetail
	return kh.app, tea.Batch(
		kh.app.setStatus(MsgRendering, StatusInfo, 0),
		kh.app.renderTender(d),
	)
}

func (kh *KeyHandler) selectFindResult(item findItem) (tea.Model, tea.Cmd) {
	if item.result == nil || item.result.Tender == nil {
		return kh.app, nil
	}
	kh.app.cameFromFind = true
	kh.app.findInput.Blur()
	return kh.openDetail(tender.Map(item.result.Tender.Record, time.Now()))
}

// openDocumentList lists the current tender's documents.
func (kh *KeyHandler) openDocumentList() (tea.Model, tea.Cmd) {
	d := kh.app.current
	if d == nil {
		return kh.app, nil
	}
	if len(d.Documents) == 0 {
		return kh.app, kh.app.setStatus(MsgNoDocuments, StatusWarn, statusTTL)
	}

	registry := kh.app.launcher.Registry()
	items := make([]list.Item, len(d.Documents))
	for i, doc := range d.Documents {
		kind := registry.Detect(doc.URL)
		items[i] = documentItem{doc: doc, kind: kind, label: registry.Label(kind)}
	}

	kh.app.documentList.ResetFilter()
	kh.app.documentList.SetItems(items)
	kh.app.documentList.Select(0)
	kh.app.documentList.Title = "› documents: " + truncateEnd(d.Title, 50)
	kh.app.previousView = kh.app.view
	kh.app.view = ViewDocuments
	return kh.app, nil
}

// navigateBack implements smart back navigation
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewTenders:
		if kh.app.searchInput.Focused() {
			kh.app.searchInput.Blur()
			return kh.app, nil
		}
		if kh.app.searchInput.Value() != "" {
			kh.app.searchInput.Reset()
			return kh.app, kh.app.editSearch("")
		}
		return kh.app, tea.Quit

	case ViewDetail:
		kh.app.rendering = false
		if kh.app.cameFromFind {
			kh.app.view = ViewFind
			kh.app.cameFromFind = false
			kh.app.findInput.Blur()
			return kh.app, nil
		}
		kh.app.view = ViewTenders
		return kh.app, kh.app.observeVisible()

	case ViewDocuments:
		if kh.app.documentList.FilterState() != list.Unfiltered {
			kh.app.documentList.ResetFilter()
			return kh.app, nil
		}
		kh.app.view = kh.app.previousView
		kh.app.documentList.SetItems([]list.Item{})
		return kh.app, nil

	case ViewFind:
		kh.app.view = kh.app.previousView
		kh.app.findSeq++
		kh.app.finding = false
		kh.app.findInput.Reset()
		kh.app.findList.SetItems([]list.Item{})
		return kh.app, nil

	case ViewProfile:
		kh.app.view = kh.app.previousView
		return kh.app, nil

	case ViewEditProfile:
		kh.app.nameInput.Blur()
		kh.app.view = ViewProfile
		return kh.app, nil

	default:
		return kh.app, tea.Quit
	}
}

// enterFindMode transitions to the offline find view
func (kh *KeyHandler) enterFindMode() (tea.Model, tea.Cmd) {
	if kh.app.view != ViewFind {
		kh.app.previousView = kh.app.view
		if kh.app.previousView == ViewDetail || kh.app.previousView == ViewEditProfile {
			kh.app.previousView = ViewTenders
		}
	}
	kh.app.view = ViewFind
	kh.app.findSeq++
	kh.app.findInput.Reset()
	kh.app.findList.SetItems([]list.Item{})
	focus := kh.app.findInput.Focus()

	if kh.app.searchEngine == nil {
		return kh.app, focus
	}
	engineName := fmt.Sprintf("%T", kh.app.searchEngine)
	if ds, ok := kh.app.searchEngine.(search.DebugStatser); ok {
		if n, err := ds.DocCount(); err == nil {
			return kh.app, tea.Batch(focus, kh.app.setStatus(fmt.Sprintf("Find: %s • idx: %d", engineName, n), StatusInfo, statusTTL))
		}
	}
	return kh.app, tea.Batch(focus, kh.app.setStatus("Find: "+engineName, StatusInfo, statusTTL))
}

func (kh *KeyHandler) enterProfile() (tea.Model, tea.Cmd) {
	if kh.app.view == ViewProfile || kh.app.view == ViewEditProfile {
		return kh.app, nil
	}
	kh.app.previousView = kh.app.view
	if kh.app.previousView == ViewDetail || kh.app.previousView == ViewFind {
		kh.app.previousView = ViewTenders
	}
	kh.app.view = ViewProfile
	return kh.app, kh.app.loadProfileStats()
}

// GetHelpForCurrentView returns only our custom help text (Charm handles the rest)
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	mod := kh.modifierKey
	switch kh.app.view {
	case ViewTenders:
		if kh.app.searchInput.Focused() {
			return []string{"enter: search now", "esc: done"}
		}
		return []string{"/: search", "1-5: tabs", "enter: details", mod + "o: documents", mod + "f: find", mod + "p: profile", mod + "r: retry"}

	case ViewDetail:
		return []string{mod + "o: documents", mod + "f: find", "esc: back"}

	case ViewDocuments:
		return []string{"enter: open", "esc: back"}

	case ViewFind:
		return []string{mod + "f: find", "esc: back"}

	case ViewProfile:
		return []string{"e: edit", "esc: back"}

	case ViewEditProfile:
		return []string{"enter: save", "esc: cancel"}

	default:
		return []string{}
	}
}
