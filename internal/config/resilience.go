package config

import (
	"time"

	"order_sync/internal/retry"
)

type ResilienceConfig struct {
	OrderAPI   retry.Config
	SheetRead  retry.Config
	SheetWrite retry.Config
	Messaging  retry.Config
}

// DefaultResilienceConfig is used by every outbound call site. Order APIs get three
// attempts with a fixed five second pause; messaging is attempted once.
var DefaultResilienceConfig = ResilienceConfig{
	OrderAPI: retry.Config{
		MaxRetries: 2,
		BaseDelay:  5 * time.Second,
		MaxDelay:   5 * time.Second,
		Timeout:    60 * time.Second,
		Backoff:    retry.Fixed(5 * time.Second),
	},
	SheetRead: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    15 * time.Second,
	},
	SheetWrite: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    30 * time.Second,
	},
	Messaging: retry.Config{
		MaxRetries: 0,
		BaseDelay:  time.Second,
		MaxDelay:   time.Second,
		Timeout:    15 * time.Second,
	},
}

// FastResilienceConfig keeps the order API attempt count with millisecond delays.
// Used by tests running against httptest servers.
var FastResilienceConfig = ResilienceConfig{
	OrderAPI: retry.Config{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Timeout:    5 * time.Second,
		Backoff:    retry.Fixed(time.Millisecond),
	},
	SheetRead: retry.Config{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Timeout:    5 * time.Second,
	},
	SheetWrite: retry.Config{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Timeout:    5 * time.Second,
	},
	Messaging: retry.Config{
		MaxRetries: 0,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Timeout:    5 * time.Second,
	},
}
