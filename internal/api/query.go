package api

import (
	"net/url"
	"strconv"
)

// Query is the list endpoint's parameter set. Search and Status are sent
// only when non-empty.
type Query struct {
	Page   int
	Limit  int
	Search string
	Status string
}

func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	return v
}
