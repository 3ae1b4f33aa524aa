package tender

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// UnknownAuthor is shown when a tender carries no creator.
	UnknownAuthor = "System"

	highPriorityValue   = 10_000_000
	mediumPriorityValue = 5_000_000

	day = 24 * time.Hour
)

// Display is a Record with its display-ready derived fields.
type Display struct {
	Record

	Author         string
	EstimatedValue string
	FormattedValue string
	Deadline       string
	Posted         string
	PostedAgo      string
	DaysLeft       int
	Status         Status
	Priority       Priority
	DocumentCount  int
	HasMeeting     bool
}

// Map derives the display fields of r relative to now. It has no hidden
// state: the same inputs always give the same output.
func Map(r Record, now time.Time) Display {
	d := Display{
		Record:         r,
		Author:         strings.TrimSpace(r.CreatedBy),
		EstimatedValue: FormatEstimate(r.Value),
		FormattedValue: FormatRupees(r.Value),
		Deadline:       FormatDate(r.BidDeadline),
		Posted:         FormatDate(r.CreatedAt),
		DaysLeft:       DaysLeft(r.BidDeadline, now),
		Priority:       DerivePriority(r.Value),
		DocumentCount:  len(r.Documents),
		HasMeeting:     r.Meeting != nil,
	}
	if d.Author == "" {
		d.Author = UnknownAuthor
	}
	if !r.CreatedAt.IsZero() {
		d.PostedAgo = humanize.RelTime(r.CreatedAt, now, "ago", "from now")
	}
	d.Status = DeriveStatus(r.IsActive, d.DaysLeft)
	return d
}

// DaysLeft returns the whole days until deadline, rounded up. Overdue
// deadlines are negative; a missing deadline counts as zero.
func DaysLeft(deadline, now time.Time) int {
	if deadline.IsZero() {
		return 0
	}
	return int(math.Ceil(float64(deadline.Sub(now)) / float64(day)))
}

// DeriveStatus never yields StatusAwarded: the record carries no field
// that could tell an awarded tender apart.
func DeriveStatus(active bool, daysLeft int) Status {
	switch {
	case !active:
		return StatusDraft
	case daysLeft < 0:
		return StatusEvaluation
	default:
		return StatusPublished
	}
}

func DerivePriority(value float64) Priority {
	switch {
	case value > highPriorityValue:
		return PriorityHigh
	case value > mediumPriorityValue:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Derivable reports whether s can be produced by DeriveStatus.
func Derivable(s Status) bool {
	return s == StatusDraft || s == StatusPublished || s == StatusEvaluation
}
