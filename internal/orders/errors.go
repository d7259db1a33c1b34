package orders

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"order_sync/internal/retry"
)

// APIError is a non-2xx response from an order platform.
type APIError struct {
	Platform   Kind
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Platform, e.StatusCode, e.Body)
}

// IsRetryable reports whether repeating the same request may succeed.
func (e *APIError) IsRetryable() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return e.StatusCode >= 500
	}
}

// CheckResponse turns a non-2xx response into an *APIError. Client errors are marked
// permanent so the retry loop gives up on them immediately.
func CheckResponse(platform Kind, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	apiErr := &APIError{
		Platform:   platform,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
	if !apiErr.IsRetryable() {
		return retry.Permanent(apiErr)
	}
	return apiErr
}

// Text is a JSON scalar kept as its literal text. Platforms send prices and quantities
// as strings or numbers depending on version and plugins.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*t = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(raw)
	return nil
}

func (t Text) String() string {
	return string(t)
}
