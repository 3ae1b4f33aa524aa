package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/tendr/internal/api"
	"github.com/pders01/tendr/internal/config"
	"github.com/pders01/tendr/internal/tender"
)

var ctlNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// tenderServer is a minimal /tenders endpoint over n generated records.
// Even records are road works, odd ones bridge repairs.
type tenderServer struct {
	mu       sync.Mutex
	records  []tender.Record
	requests []hit
	failNext int
}

type hit struct {
	page   int
	search string
	status string
}

func newTenderServer(t *testing.T, n int) (*tenderServer, *api.Client) {
	t.Helper()
	ts := &tenderServer{}
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("Road works %d", i)
		if i%2 == 1 {
			title = fmt.Sprintf("Bridge repair %d", i)
		}
		ts.records = append(ts.records, tender.Record{
			ID:          fmt.Sprintf("t-%02d", i),
			Title:       title,
			Category:    "Works",
			IsActive:    true,
			BidDeadline: ctlNow.Add(5 * 24 * time.Hour),
		})
	}

	server := httptest.NewServer(http.HandlerFunc(ts.serve))
	t.Cleanup(server.Close)

	cfg := config.TestConfig()
	cfg.API.BaseURL = server.URL
	return ts, api.NewClient(cfg)
}

func (ts *tenderServer) serve(w http.ResponseWriter, r *http.Request) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	ts.requests = append(ts.requests, hit{page: page, search: q.Get("search"), status: q.Get("status")})

	if ts.failNext > 0 {
		ts.failNext--
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "message": "database unavailable"}`))
		return
	}

	var matched []tender.Record
	search := strings.ToLower(q.Get("search"))
	for _, rec := range ts.records {
		if search == "" || strings.Contains(strings.ToLower(rec.Title), search) {
			matched = append(matched, rec)
		}
	}

	start := (page - 1) * limit
	end := start + limit
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	json.NewEncoder(w).Encode(api.Page{
		Success:    true,
		Data:       matched[start:end],
		TotalCount: len(matched),
		TotalPages: (len(matched) + limit - 1) / limit,
	})
}

func (ts *tenderServer) seen() []hit {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]hit(nil), ts.requests...)
}

func (ts *tenderServer) fail(n int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.failNext = n
}

func newTestController(t *testing.T, n int) (*Controller, *tenderServer) {
	t.Helper()
	ts, client := newTenderServer(t, n)
	ctl := NewController(client, 10, 300*time.Millisecond)
	ctl.SetClock(func() time.Time { return ctlNow })
	t.Cleanup(ctl.Dispose)
	return ctl, ts
}

func complete(t *testing.T, ctl *Controller, req *Request) Result {
	t.Helper()
	require.NotNil(t, req)
	res := ctl.Fetch(req)
	ctl.Complete(res)
	return res
}

func lastID(ctl *Controller) string {
	items := ctl.Items()
	if len(items) == 0 {
		return ""
	}
	return items[len(items)-1].ID
}

func TestController_ScrollsToEnd(t *testing.T) {
	ctl, ts := newTestController(t, 25)

	complete(t, ctl, ctl.Start(Filter{}))
	require.Len(t, ctl.Items(), 10)

	assert.Nil(t, ctl.Observe("t-03"), "only the last rendered row triggers")

	req := ctl.Observe(lastID(ctl))
	require.NotNil(t, req)
	assert.Equal(t, 2, req.Page)
	assert.Nil(t, ctl.Observe(lastID(ctl)), "in flight")
	complete(t, ctl, req)

	assert.Nil(t, ctl.Observe("t-09"), "old anchor is spent")
	complete(t, ctl, ctl.Observe(lastID(ctl)))

	assert.Len(t, ctl.Items(), 25)
	assert.False(t, ctl.State().HasMore)
	assert.Nil(t, ctl.Observe(lastID(ctl)))

	pages := []int{}
	for _, u := range ts.seen() {
		pages = append(pages, u.page)
	}
	assert.Equal(t, []int{1, 2, 3}, pages)
}

func TestController_SearchProjectsBeforeServerAnswers(t *testing.T) {
	ctl, ts := newTestController(t, 25)
	complete(t, ctl, ctl.Start(Filter{}))

	tick := ctl.SetSearch("bridge")
	for _, item := range ctl.Items() {
		assert.Contains(t, item.Title, "Bridge")
	}
	assert.Len(t, ctl.Items(), 5)
	assert.Equal(t, "", ctl.State().Filter.Search, "server filter lags until the debounce fires")

	req := ctl.FireSearch(tick.Seq)
	require.NotNil(t, req)
	assert.Equal(t, "bridge", req.Query.Search)
	complete(t, ctl, req)

	assert.Len(t, ctl.Items(), 10)
	assert.Equal(t, 12, ctl.State().TotalCount)
	assert.Equal(t, "bridge", ts.seen()[1].search)
}

func TestController_SetTab(t *testing.T) {
	ctl, ts := newTestController(t, 25)
	complete(t, ctl, ctl.Start(Filter{}))

	assert.Nil(t, ctl.SetTab(tender.TabAll), "same tab is a no-op")

	tick := ctl.SetSearch("road")
	req := ctl.SetTab(tender.TabPublished)
	require.NotNil(t, req)
	assert.Equal(t, "road", req.Query.Search)
	assert.Equal(t, "published", req.Query.Status)
	assert.False(t, ctl.SearchPending())
	assert.Nil(t, ctl.FireSearch(tick.Seq), "tab change absorbed the pending search")

	complete(t, ctl, req)
	seen := ts.seen()
	require.Len(t, seen, 2)
	assert.Equal(t, hit{page: 1, search: "road", status: "published"}, seen[1])
}

func TestController_StaleEpochIsDiscarded(t *testing.T) {
	ctl, _ := newTestController(t, 25)
	complete(t, ctl, ctl.Start(Filter{}))

	next := ctl.Observe(lastID(ctl))
	require.NotNil(t, next)

	fresh := ctl.SetTab(tender.TabDraft)
	require.NotNil(t, fresh)

	res := ctl.Fetch(next)
	assert.False(t, ctl.Complete(res))
	assert.Empty(t, ctl.Items())
	assert.True(t, ctl.State().Loading)

	complete(t, ctl, fresh)
	assert.Equal(t, 1, ctl.State().Page)
}

func TestController_Retry(t *testing.T) {
	ctl, ts := newTestController(t, 25)

	ts.fail(1)
	res := complete(t, ctl, ctl.Start(Filter{}))
	require.Error(t, res.Err)
	assert.True(t, api.IsServer(ctl.State().Err))
	assert.Contains(t, ctl.State().Err.Error(), "database unavailable")

	complete(t, ctl, ctl.Retry())
	require.NoError(t, ctl.State().Err)
	assert.Len(t, ctl.Items(), 10)

	ts.fail(1)
	res = complete(t, ctl, ctl.Observe(lastID(ctl)))
	require.Error(t, res.Err)
	assert.Len(t, ctl.Items(), 10, "records survive a failed page")

	retry := ctl.Retry()
	require.NotNil(t, retry)
	assert.Equal(t, 2, retry.Page, "retry asks for the failed page again")
	complete(t, ctl, retry)
	assert.Len(t, ctl.Items(), 20)
}

// pagedSource serves fixed pages in order, whatever the query asks for.
type pagedSource struct {
	pages [][]tender.Record
}

func (s *pagedSource) List(_ context.Context, q api.Query) (*api.Page, error) {
	var data []tender.Record
	if q.Page >= 1 && q.Page <= len(s.pages) {
		data = s.pages[q.Page-1]
	}
	total := 0
	for _, p := range s.pages {
		total += len(p)
	}
	return &api.Page{Success: true, Data: data, TotalCount: total, TotalPages: len(s.pages)}, nil
}

func TestController_PageWithoutNewVisibleRowStillContinues(t *testing.T) {
	open := func(id string) tender.Record {
		return tender.Record{ID: id, Title: "Tender " + id, IsActive: true, BidDeadline: ctlNow.Add(5 * 24 * time.Hour)}
	}
	// Published on the server, but past its deadline it derives as evaluation.
	overdue := tender.Record{ID: "late", Title: "Tender late", IsActive: true, BidDeadline: ctlNow.Add(-2 * 24 * time.Hour)}

	tests := []struct {
		name  string
		tab   tender.Tab
		pages [][]tender.Record
	}{
		{
			name:  "page hidden by the projection",
			tab:   tender.TabPublished,
			pages: [][]tender.Record{{open("a")}, {overdue}, {open("b")}},
		},
		{
			name:  "page of duplicates only",
			tab:   tender.TabAll,
			pages: [][]tender.Record{{open("a")}, {open("a")}, {open("b")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := NewController(&pagedSource{pages: tt.pages}, 1, 300*time.Millisecond)
			ctl.SetClock(func() time.Time { return ctlNow })
			t.Cleanup(ctl.Dispose)

			complete(t, ctl, ctl.Start(Filter{Tab: tt.tab}))
			require.Equal(t, "a", lastID(ctl))

			complete(t, ctl, ctl.Observe("a"))
			require.Equal(t, 2, ctl.State().Page)
			require.Equal(t, "a", lastID(ctl), "page 2 added no visible row")
			require.True(t, ctl.State().HasMore)

			req := ctl.Observe("a")
			require.NotNil(t, req, "the unchanged last row must reach page 3")
			assert.Equal(t, 3, req.Page)
			assert.Nil(t, ctl.Observe("a"), "in flight")

			complete(t, ctl, req)
			assert.Equal(t, "b", lastID(ctl))
			assert.False(t, ctl.State().HasMore)
			assert.Nil(t, ctl.Observe("b"))
		})
	}
}

func TestController_FailedPageKeepsSentinelSpent(t *testing.T) {
	ctl, ts := newTestController(t, 25)
	complete(t, ctl, ctl.Start(Filter{}))

	ts.fail(1)
	res := complete(t, ctl, ctl.Observe(lastID(ctl)))
	require.Error(t, res.Err)

	assert.Nil(t, ctl.Observe(lastID(ctl)), "a failure is retried by hand, not by scrolling")
}
