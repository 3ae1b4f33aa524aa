package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/tendr/internal/docs"
	"github.com/pders01/tendr/internal/search"
	"github.com/pders01/tendr/internal/tender"
)

type View int

const (
	ViewTenders View = iota
	ViewDetail
	ViewDocuments
	ViewFind
	ViewProfile
	ViewEditProfile
)

type tenderItem struct {
	display tender.Display
}

func (i tenderItem) Title() string {
	badge := priorityStyle(i.display.Priority).Render("●")
	return badge + " " + i.display.Title
}

func (i tenderItem) Description() string {
	d := i.display
	parts := []string{d.EstimatedValue}
	if d.Category != "" {
		parts = append(parts, d.Category)
	}
	parts = append(parts, deadlineLabel(d))

	status := statusStyle(d.Status).Render(string(d.Status))
	return lipgloss.NewStyle().
		Foreground(MutedColor).
		Render(strings.Join(parts, " • ")) + " • " + status
}

func (i tenderItem) FilterValue() string { return i.display.Title }

// deadlineLabel describes the time left to bid.
func deadlineLabel(d tender.Display) string {
	switch {
	case d.BidDeadline.IsZero():
		return "no deadline"
	case d.DaysLeft < 0:
		return "closed " + d.Deadline
	case d.DaysLeft == 0:
		return "closes today"
	case d.DaysLeft == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", d.DaysLeft)
	}
}

type documentItem struct {
	doc   tender.Document
	kind  docs.Kind
	label string
}

func (i documentItem) Title() string {
	name := i.doc.Name
	if name == "" {
		name = "Untitled document"
	}
	return fmt.Sprintf("[%s] %s", i.label, name)
}

func (i documentItem) Description() string {
	return lipgloss.NewStyle().
		Foreground(MutedColor).
		Render(truncateMiddle(i.doc.URL, 80))
}

func (i documentItem) FilterValue() string { return i.doc.Name }

type findItem struct {
	result *search.Result
}

func (i findItem) Title() string {
	return i.result.Tender.Title
}

func (i findItem) Description() string {
	t := i.result.Tender
	parts := []string{tender.FormatEstimate(t.Value)}
	if t.Category != "" {
		parts = append(parts, t.Category)
	}
	for _, m := range i.result.Matches {
		if m.Field == "description" && m.Text != "" {
			parts = append(parts, truncateEnd(m.Text, 60))
			break
		}
	}
	if !t.SeenAt.IsZero() {
		parts = append(parts, "seen "+tender.FormatDate(t.SeenAt))
	}
	return lipgloss.NewStyle().
		Foreground(MutedColor).
		Render(strings.Join(parts, " • "))
}

func (i findItem) FilterValue() string { return i.result.Tender.Title }
