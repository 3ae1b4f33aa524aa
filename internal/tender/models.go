package tender

import (
	"time"
)

type Status string

const (
	StatusDraft      Status = "draft"
	StatusPublished  Status = "published"
	StatusEvaluation Status = "evaluation"
	StatusAwarded    Status = "awarded"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Tab is a status filter tab of the tender dashboard.
type Tab string

const (
	TabAll        Tab = "all"
	TabDraft      Tab = Tab(StatusDraft)
	TabPublished  Tab = Tab(StatusPublished)
	TabEvaluation Tab = Tab(StatusEvaluation)
	TabAwarded    Tab = Tab(StatusAwarded)
)

// Tabs lists the dashboard tabs in display order.
var Tabs = []Tab{TabAll, TabDraft, TabPublished, TabEvaluation, TabAwarded}

// ParseTab maps a string onto a known tab, falling back to TabAll.
func ParseTab(s string) Tab {
	for _, t := range Tabs {
		if string(t) == s {
			return t
		}
	}
	return TabAll
}

type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Meeting struct {
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
	Link     string    `json:"link"`
}

// Record is a tender as served by the remote API. The dashboard never edits
// a Record; list operations replace them wholesale.
type Record struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Value           float64    `json:"value"`
	BidDeadline     time.Time  `json:"bidDeadline"`
	CreatedAt       time.Time  `json:"createdAt"`
	IsActive        bool       `json:"isActive"`
	HasSubmittedBid bool       `json:"hasSubmittedBid"`
	CreatedBy       string     `json:"createdBy"`
	ContactName     string     `json:"contactName"`
	ContactEmail    string     `json:"contactEmail"`
	ContactPhone    string     `json:"contactPhone"`
	Documents       []Document `json:"documents"`
	Meeting         *Meeting   `json:"meeting,omitempty"`
}
