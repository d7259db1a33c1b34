package shopify

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
	"github.com/tomnomnom/linkheader"
)

const (
	ordersPath  = "/admin/api/2023-10/orders.json"
	tokenHeader = "X-Shopify-Access-Token"
	pageLimit   = 250
)

type Client struct {
	baseURL      string
	accessToken  string
	limit        int
	retryConfig  retry.Config
	client       *http.Client
	apiCallCount int64
	apiCallMutex sync.Mutex
}

func NewClient(baseURL, accessToken string, retryConfig retry.Config) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		limit:       pageLimit,
		retryConfig: retryConfig,
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
	orders []Order
	next   string
}

// FetchNew returns orders with an id above cursor. It follows the Link header until a
// page comes back empty or holds nothing newer than cursor.
func (c *Client) FetchNew(ctx context.Context, cursor int64) ([]Order, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("status", "any")
	params.Set("order", "created_at asc")
	if cursor > 0 {
		params.Set("since_id", strconv.FormatInt(cursor, 10))
	}

	next := c.baseURL + ordersPath + "?" + params.Encode()
	seen := make(map[string]bool)
	var fresh []Order

	for next != "" && !seen[next] {
		seen[next] = true
		pageURL := next

		p, err := retry.WithRetry(ctx, c.retryConfig, func(ctx context.Context) (page, error) {
			return c.getPage(ctx, pageURL)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch shopify orders: %w", err)
		}
		if len(p.orders) == 0 {
			break
		}

		newer := 0
		for _, o := range p.orders {
			if o.ID > cursor {
				fresh = append(fresh, o)
				newer++
			}
		}
		if newer == 0 {
			break
		}
		next = p.next
	}

	log.Debug().
		Str("base_url", c.baseURL).
		Int64("cursor", cursor).
		Int("new", len(fresh)).
		Msg("Fetched shopify orders")
	return fresh, nil
}

func (c *Client) getPage(ctx context.Context, pageURL string) (page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return page{}, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set(tokenHeader, c.accessToken)
	req.Header.Set("Accept", "application/json")

	c.incrementAPICall()

	resp, err := c.client.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if err := orders.CheckResponse(orders.KindShopify, resp); err != nil {
		return page{}, err
	}

	var body struct {
		Orders []Order `json:"orders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return page{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return page{
		orders: body.Orders,
		next:   nextPageURL(resp.Header.Get("Link")),
	}, nil
}

// nextPageURL extracts the rel="next" target of a Link header. The target already
// carries every query parameter needed for the following page.
func nextPageURL(header string) string {
	if header == "" {
		return ""
	}
	links := linkheader.Parse(header).FilterByRel("next")
	if len(links) == 0 {
		return ""
	}
	return links[0].URL
}
