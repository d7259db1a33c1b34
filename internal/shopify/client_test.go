package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"order_sync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOrders(w http.ResponseWriter, ids ...int64) {
	body := struct {
		Orders []Order `json:"orders"`
	}{}
	for _, id := range ids {
		body.Orders = append(body.Orders, Order{ID: id, Name: fmt.Sprintf("#%d", id)})
	}
	_ = json.NewEncoder(w).Encode(body)
}

func orderIDs(orders []Order) []int64 {
	out := make([]int64, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestFetchNewFollowsLinkHeader(t *testing.T) {
	var srv *httptest.Server
	var sinceIDs []string
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get(tokenHeader))
		switch r.URL.Query().Get("page_info") {
		case "":
			sinceIDs = append(sinceIDs, r.URL.Query().Get("since_id"))
			w.Header().Set("Link", fmt.Sprintf(`<%s%s?limit=250&page_info=p2>; rel="next"`, srv.URL, ordersPath))
			writeOrders(w, 11, 12)
		case "p2":
			w.Header().Set("Link", fmt.Sprintf(`<%s%s?page_info=p1>; rel="previous"`, srv.URL, ordersPath))
			writeOrders(w, 13)
		default:
			t.Errorf("unexpected page %q", r.URL.RawQuery)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", config.FastResilienceConfig.OrderAPI)
	got, err := c.FetchNew(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12, 13}, orderIDs(got))
	assert.Equal(t, []string{"10"}, sinceIDs)
	assert.Equal(t, int64(2), c.GetAPICallCount())
}

func TestFetchNewOmitsSinceIDOnFirstRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("since_id"))
		assert.Equal(t, "any", r.URL.Query().Get("status"))
		writeOrders(w, 1)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "tok", config.FastResilienceConfig.OrderAPI).FetchNew(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, []int64{1}, orderIDs(got))
}

func TestFetchNewStopsWhenPageHasNothingNewer(t *testing.T) {
	calls := 0
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?page_info=again%d>; rel="next"`, srv.URL, ordersPath, calls))
		writeOrders(w, 3, 4)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "tok", config.FastResilienceConfig.OrderAPI).FetchNew(context.Background(), 5)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, calls)
}

func TestFetchNewUnauthorizedIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad", config.FastResilienceConfig.OrderAPI).FetchNew(context.Background(), 0)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFetchNewRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeOrders(w, 7)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "tok", config.FastResilienceConfig.OrderAPI).FetchNew(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, []int64{7}, orderIDs(got))
	assert.Equal(t, 3, calls)
}

func TestNoteAttributeIsCaseInsensitive(t *testing.T) {
	o := Order{NoteAttributes: []NoteAttribute{{Name: " full NAME ", Value: "Ada Obi"}}}
	assert.Equal(t, "Ada Obi", o.NoteAttribute("Full name"))
	assert.Empty(t, o.NoteAttribute("Phone"))
}

func TestNextPageURL(t *testing.T) {
	h := `<https://s.example/a?page_info=x>; rel="previous", <https://s.example/a?page_info=y>; rel="next"`
	assert.Equal(t, "https://s.example/a?page_info=y", nextPageURL(h))
	assert.Empty(t, nextPageURL(""))
	assert.Empty(t, nextPageURL(`<https://s.example/a>; rel="previous"`))
}
