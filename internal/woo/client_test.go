package woo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"order_sync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	ids          []int64
	rejectMinID  bool
	failAll      bool
	filteredHits atomic.Int64
	totalHits    atomic.Int64
}

func (f *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.totalHits.Add(1)
	if r.URL.Path != ordersPath {
		http.NotFound(w, r)
		return
	}
	user, pass, ok := r.BasicAuth()
	if !ok || user != "ck" || pass != "cs" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if f.failAll {
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	q := r.URL.Query()
	minID := int64(0)
	if v := q.Get("min_id"); v != "" {
		f.filteredHits.Add(1)
		if f.rejectMinID {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"rest_invalid_param"}`))
			return
		}
		minID, _ = strconv.ParseInt(v, 10, 64)
	}

	var matching []Order
	for _, id := range f.ids {
		if id >= minID {
			matching = append(matching, Order{ID: id, Status: "processing"})
		}
	}

	perPage, _ := strconv.Atoi(q.Get("per_page"))
	pageNum, _ := strconv.Atoi(q.Get("page"))
	pages := (len(matching) + perPage - 1) / perPage
	start := min((pageNum-1)*perPage, len(matching))
	end := min(start+perPage, len(matching))

	w.Header().Set(totalPagesHeader, strconv.Itoa(pages))
	_ = json.NewEncoder(w).Encode(matching[start:end])
}

func newTestClient(url string) *Client {
	c := NewClient(url+"/", "ck", "cs", config.FastResilienceConfig.OrderAPI)
	c.perPage = 2
	return c
}

func ids(orders []Order) []int64 {
	out := make([]int64, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestFetchNewUsesMinIDAndPaginates(t *testing.T) {
	store := &fakeStore{ids: []int64{3, 5, 8, 9, 12}}
	srv := httptest.NewServer(store)
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.FetchNew(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, []int64{5, 8, 9, 12}, ids(got))
	assert.Equal(t, int64(2), store.filteredHits.Load())
	assert.Equal(t, int64(2), c.GetAPICallCount())
}

func TestFetchNewFallsBackWhenMinIDRejected(t *testing.T) {
	store := &fakeStore{ids: []int64{3, 5, 8}, rejectMinID: true}
	srv := httptest.NewServer(store)
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchNew(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, []int64{5, 8}, ids(got))
	assert.Equal(t, int64(1), store.filteredHits.Load(), "a 400 must not be retried")
}

func TestFetchNewEmptyStore(t *testing.T) {
	srv := httptest.NewServer(&fakeStore{})
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchNew(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchNewFailsAfterRetries(t *testing.T) {
	store := &fakeStore{ids: []int64{1}, failAll: true}
	srv := httptest.NewServer(store)
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchNew(context.Background(), 0)

	require.Error(t, err)
	// three attempts for the filtered request, three for the fallback
	assert.Equal(t, int64(6), store.totalHits.Load())
}

func TestParseTotalPages(t *testing.T) {
	assert.Equal(t, 1, parseTotalPages(""))
	assert.Equal(t, 1, parseTotalPages("zero"))
	assert.Equal(t, 1, parseTotalPages("0"))
	assert.Equal(t, 4, parseTotalPages(" 4 "))
}
