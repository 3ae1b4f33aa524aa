package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/pders01/tendr/internal/api"
	"github.com/pders01/tendr/internal/tender"
)

// fakeSource serves total records per distinct search text, paged by the
// query's limit. Record IDs embed the search text so records from
// different filters can be told apart.
type fakeSource struct {
	total   int
	calls   []api.Query
	failErr error
	failOn  map[int]bool // call index (0-based) -> fail
}

func newFakeSource(total int) *fakeSource {
	return &fakeSource{total: total, failOn: map[int]bool{}}
}

var errUnreachable = errors.New("connection refused")

func (s *fakeSource) List(_ context.Context, q api.Query) (*api.Page, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, q)

	if s.failOn[idx] {
		err := s.failErr
		if err == nil {
			err = &api.TransportError{Op: "fetching tenders", Err: errUnreachable}
		}
		return nil, err
	}

	pages := (s.total + q.Limit - 1) / q.Limit
	start := (q.Page - 1) * q.Limit
	var data []tender.Record
	for i := start; i < start+q.Limit && i < s.total; i++ {
		data = append(data, fakeRecord(q.Search, i))
	}
	return &api.Page{Success: true, Data: data, TotalCount: s.total, TotalPages: pages}, nil
}

func fakeID(search string, i int) string {
	return fmt.Sprintf("%s#%03d", search, i)
}

func fakeRecord(search string, i int) tender.Record {
	return tender.Record{
		ID:       fakeID(search, i),
		Title:    fmt.Sprintf("Tender %d %s", i, search),
		Category: "Works",
		IsActive: true,
		Value:    float64(i) * 1_000_000,
	}
}

func ids(records []tender.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
