package finicity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// pagedServer serves transaction pages of the given sizes, reporting
// moreAvailable on every page but the last, and records the start offsets it
// was asked for.
func pagedServer(t *testing.T, pageSizes []int, found int) (*httptest.Server, *[]int) {
	t.Helper()
	var starts []int
	page := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, err := strconv.Atoi(r.URL.Query().Get("start"))
		if err != nil {
			t.Errorf("bad start parameter %q", r.URL.Query().Get("start"))
		}
		starts = append(starts, start)

		if page >= len(pageSizes) {
			t.Errorf("server asked for page %d, only %d defined", page+1, len(pageSizes))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		size := pageSizes[page]
		page++

		txs := make([]interface{}, size)
		for i := range txs {
			txs[i] = map[string]interface{}{"id": start + i}
		}
		resp := map[string]interface{}{
			"found":         found,
			"displaying":    size,
			"moreAvailable": page < len(pageSizes),
			"sort":          "asc",
			"transactions":  txs,
			"dailyBalances": []interface{}{
				map[string]interface{}{"date": "2023-01-31", "beginningBalance": 100.0, "endingBalance": 250.5},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	return server, &starts
}

func TestFetchTransactionPages_ConcatenatesToFound(t *testing.T) {
	server, starts := pagedServer(t, []int{20, 20, 5}, 45)
	defer server.Close()

	c := NewClient(server.URL, testCreds())
	c.token = "t"

	var emitted []int
	pages, total, err := c.FetchTransactionPages(context.Background(), "5011648377",
		TransactionQuery{FromDate: 1, ToDate: 2, PageSize: 20},
		func(page int, doc map[string]interface{}) error {
			emitted = append(emitted, page)
			return nil
		})
	if err != nil {
		t.Fatalf("FetchTransactionPages() error: %v", err)
	}
	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if total != 45 {
		t.Errorf("total transactions = %d, want found = 45", total)
	}
	if want := []int{1, 21, 41}; fmt.Sprint(*starts) != fmt.Sprint(want) {
		t.Errorf("start offsets = %v, want %v", *starts, want)
	}
	if fmt.Sprint(emitted) != fmt.Sprint([]int{1, 2, 3}) {
		t.Errorf("emitted pages = %v, want [1 2 3]", emitted)
	}
}

func TestFetchTransactionPages_OffsetAdvancesByActualCount(t *testing.T) {
	// The server returns a short page (18 < limit 20) but still reports more
	// available. The next start must be 19, not 21, or records get skipped.
	server, starts := pagedServer(t, []int{18, 2}, 20)
	defer server.Close()

	c := NewClient(server.URL, testCreds())
	c.token = "t"

	pages, total, err := c.FetchTransactionPages(context.Background(), "5011648377",
		TransactionQuery{FromDate: 1, ToDate: 2, PageSize: 20},
		func(int, map[string]interface{}) error { return nil })
	if err != nil {
		t.Fatalf("FetchTransactionPages() error: %v", err)
	}
	if pages != 2 || total != 20 {
		t.Errorf("pages, total = %d, %d, want 2, 20", pages, total)
	}
	if want := []int{1, 19}; fmt.Sprint(*starts) != fmt.Sprint(want) {
		t.Errorf("start offsets = %v, want %v", *starts, want)
	}
}

func TestFetchTransactionPages_StopsOnEmptyPageDespiteMoreAvailable(t *testing.T) {
	// A server bug: zero transactions but moreAvailable=true. The loop must
	// terminate rather than spin.
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"found":10,"displaying":0,"moreAvailable":true,"transactions":[]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, testCreds())
	c.token = "t"

	pages, total, err := c.FetchTransactionPages(context.Background(), "5011648377",
		TransactionQuery{FromDate: 1, ToDate: 2, PageSize: 20},
		func(int, map[string]interface{}) error { return nil })
	if err != nil {
		t.Fatalf("FetchTransactionPages() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("server calls = %d, want 1", calls)
	}
	if pages != 1 || total != 0 {
		t.Errorf("pages, total = %d, %d, want 1, 0", pages, total)
	}
}

func TestFetchTransactionPages_PageErrorIsFatal(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"found":40,"displaying":20,"moreAvailable":true,"transactions":[` +
				pageOfIDs(20) + `]}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream error"))
	}))
	defer server.Close()

	c := NewClient(server.URL, testCreds())
	c.token = "t"

	_, _, err := c.FetchTransactionPages(context.Background(), "5011648377",
		TransactionQuery{FromDate: 1, ToDate: 2, PageSize: 20},
		func(int, map[string]interface{}) error { return nil })
	if err == nil {
		t.Fatal("expected error on second page, got nil")
	}
}

func TestFetchTransactionPages_RequestsBalanceSideChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("includeBalances") != "true" {
			t.Errorf("includeBalances = %q, want true", q.Get("includeBalances"))
		}
		if q.Get("sort") != "asc" || q.Get("includePending") != "false" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`{"found":0,"displaying":0,"moreAvailable":false,"transactions":[]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, testCreds())
	c.token = "t"
	_, _, err := c.FetchTransactionPages(context.Background(), "5011648377",
		TransactionQuery{FromDate: 1, ToDate: 2, PageSize: 20},
		func(int, map[string]interface{}) error { return nil })
	if err != nil {
		t.Fatalf("FetchTransactionPages() error: %v", err)
	}
}

func pageOfIDs(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"id":%d}`, i+1)
	}
	return out
}
