package woo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"order_sync/internal/orders"
	"order_sync/internal/retry"

	"github.com/rs/zerolog/log"
)

const (
	ordersPath       = "/wp-json/wc/v3/orders"
	defaultPerPage   = 100
	totalPagesHeader = "X-WP-TotalPages"
)

type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	perPage        int
	retryConfig    retry.Config
	client         *http.Client
	apiCallCount   int64
	apiCallMutex   sync.Mutex
}

func NewClient(baseURL, consumerKey, consumerSecret string, retryConfig retry.Config) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		perPage:        defaultPerPage,
		retryConfig:    retryConfig,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) incrementAPICall() {
	c.apiCallMutex.Lock()
	c.apiCallCount++
	c.apiCallMutex.Unlock()
}

// GetAPICallCount returns the number of HTTP requests made, retries included.
func (c *Client) GetAPICallCount() int64 {
	c.apiCallMutex.Lock()
	defer c.apiCallMutex.Unlock()
	return c.apiCallCount
}

func (c *Client) ResetAPICallCount() {
	c.apiCallMutex.Lock()
	c.apiCallCount = 0
	c.apiCallMutex.Unlock()
}

type page struct {
	orders     []Order
	totalPages int
}

// FetchNew returns every order with an id above cursor, oldest first. It asks the store to
// filter with min_id; stores that reject the parameter are scanned in full and filtered here.
func (c *Client) FetchNew(ctx context.Context, cursor int64) ([]Order, error) {
	found, err := c.fetchAll(ctx, cursor, true)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().
			Err(err).
			Str("base_url", c.baseURL).
			Int64("cursor", cursor).
			Msg("Filtered order request failed, falling back to full scan")

		found, err = c.fetchAll(ctx, cursor, false)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch woocommerce orders: %w", err)
		}
	}

	var fresh []Order
	for _, o := range found {
		if o.ID > cursor {
			fresh = append(fresh, o)
		}
	}

	log.Debug().
		Str("base_url", c.baseURL).
		Int("received", len(found)).
		Int("new", len(fresh)).
		Msg("Fetched woocommerce orders")
	return fresh, nil
}

func (c *Client) fetchAll(ctx context.Context, cursor int64, filtered bool) ([]Order, error) {
	var all []Order
	totalPages := 1
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		p, err := retry.WithRetry(ctx, c.retryConfig, func(ctx context.Context) (page, error) {
			return c.getPage(ctx, pageNum, cursor, filtered)
		})
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		if pageNum == 1 {
			totalPages = p.totalPages
		}
		all = append(all, p.orders...)
	}
	return all, nil
}

func (c *Client) getPage(ctx context.Context, pageNum int, cursor int64, filtered bool) (page, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(c.perPage))
	params.Set("orderby", "id")
	params.Set("order", "asc")
	params.Set("page", strconv.Itoa(pageNum))
	if filtered {
		params.Set("min_id", strconv.FormatInt(cursor+1, 10))
	}

	reqURL := c.baseURL + ordersPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return page{}, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)
	req.Header.Set("Accept", "application/json")

	c.incrementAPICall()

	resp, err := c.client.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if err := orders.CheckResponse(orders.KindWoo, resp); err != nil {
		return page{}, err
	}

	var batch []Order
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return page{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return page{
		orders:     batch,
		totalPages: parseTotalPages(resp.Header.Get(totalPagesHeader)),
	}, nil
}

func parseTotalPages(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
