package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"order_sync/internal/retry"

	"github.com/rs/zerolog/log"
)

const (
	DefaultTwilioURL = "https://api.twilio.com"
	whatsAppPrefix   = "whatsapp:"
	circuitThreshold = 5
	circuitCooldown  = 30 * time.Second
)

// Client sends WhatsApp messages through the Twilio Messages API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accountSID  string
	authToken   string
	from        string
	enabled     bool
	retryConfig retry.Config
	// Circuit breaker state
	failures    int
	lastFailure time.Time
	circuitOpen bool
	mutex       sync.Mutex
	// Metrics
	totalSent   int64
	totalFailed int64
}

type NotificationError struct {
	Type       string
	StatusCode int
	Attempt    int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s] attempt %d: %v", e.Type, e.Attempt, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "timeout":
		return true
	case "rate_limit":
		return true
	case "auth", "client", "circuit_open", "disabled":
		return false
	default:
		return e.StatusCode >= 500
	}
}

func NewClient(baseURL, accountSID, authToken, from string, enabled bool, retryConfig retry.Config) *Client {
	if baseURL == "" {
		baseURL = DefaultTwilioURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		accountSID:  accountSID,
		authToken:   authToken,
		from:        from,
		enabled:     enabled,
		retryConfig: retryConfig,
	}
}

// Send delivers body to a WhatsApp number and returns the message SID.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	if !c.enabled {
		log.Debug().Str("to", to).Msg("Notifications disabled, skipping")
		return "", &NotificationError{Type: "disabled", Underlying: errors.New("notifications disabled")}
	}

	if c.isCircuitOpen() {
		log.Warn().Msg("Circuit breaker open, skipping notification")
		return "", &NotificationError{
			Type:       "circuit_open",
			Underlying: fmt.Errorf("circuit breaker is open"),
		}
	}

	attempt := 0
	sid, err := retry.WithRetry(ctx, c.retryConfig, func(ctx context.Context) (string, error) {
		attempt++
		sid, err := c.sendSingleMessage(ctx, to, body, attempt)
		var notifErr *NotificationError
		if errors.As(err, &notifErr) && !notifErr.IsRetryable() {
			return "", retry.Permanent(err)
		}
		return sid, err
	})
	if err != nil {
		c.recordFailure()
		return "", err
	}

	c.recordSuccess()
	return sid, nil
}

func (c *Client) sendSingleMessage(ctx context.Context, to, body string, attempt int) (string, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))

	form := url.Values{}
	form.Set("From", whatsAppAddress(c.from))
	form.Set("To", whatsAppAddress(to))
	form.Set("Body", body)

	log.Debug().
		Str("to", to).
		Int("attempt", attempt).
		Msg("Sending WhatsApp message")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &NotificationError{
			Type:       "client",
			Attempt:    attempt,
			Underlying: err,
		}
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errType := "network"
		if ctx.Err() != nil {
			errType = "timeout"
		}
		return "", &NotificationError{
			Type:       errType,
			Attempt:    attempt,
			Underlying: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &NotificationError{
			Type:       c.categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
		}
	}

	var msg struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return "", &NotificationError{
			Type:       "server",
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Underlying: fmt.Errorf("failed to decode response: %w", err),
		}
	}

	log.Debug().
		Str("sid", msg.SID).
		Str("status", msg.Status).
		Int("attempt", attempt).
		Msg("WhatsApp message accepted")
	return msg.SID, nil
}

func whatsAppAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, whatsAppPrefix) {
		return number
	}
	return whatsAppPrefix + number
}

func (c *Client) isCircuitOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.circuitOpen {
		return false
	}

	if time.Since(c.lastFailure) > circuitCooldown {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker moving to half-open state")
	}

	return c.circuitOpen
}

func (c *Client) recordSuccess() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalSent++
	c.failures = 0
	if c.circuitOpen {
		c.circuitOpen = false
		log.Info().Msg("Circuit breaker closed after successful notification")
	}
}

func (c *Client) recordFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalFailed++
	c.failures++
	c.lastFailure = time.Now()

	// Open circuit breaker after 5 consecutive failures
	if c.failures >= circuitThreshold && !c.circuitOpen {
		c.circuitOpen = true
		log.Warn().
			Int("failures", c.failures).
			Msg("Circuit breaker opened due to consecutive failures")
	}
}

func (c *Client) categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// GetMetrics returns current notification metrics
func (c *Client) GetMetrics() (sent, failed int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalSent, c.totalFailed
}
