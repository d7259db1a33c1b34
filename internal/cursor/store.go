// Package cursor persists the "last processed" markers that gate every pipeline stage:
// the highest order id seen per store and the row watermarks for distribution and
// notification.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Defaults returned when a key has never been written.
const (
	DefaultOrderID      int64 = 0
	DefaultRowWatermark int64 = 1
)

// DistributedKey holds the sheet row number of the last master row handed to an agent.
const DistributedKey = "last_distributed_row"

var ErrNegativeValue = errors.New("cursor values must be non-negative")

// Store is a small key/value store of non-negative integers.
type Store interface {
	Get(ctx context.Context, key string, fallback int64) (int64, error)
	Set(ctx context.Context, key string, value int64) error
}

// OrderKey is the cursor key for a store's last seen order id.
func OrderKey(storeName string) string {
	return "last_order_id_" + Sanitize(storeName)
}

// SentKey is the cursor key for the last sheet row notified to an agent.
func SentKey(agentName string) string {
	return "last_sent_row_" + Sanitize(agentName)
}

// Sanitize keeps letters, digits, '-' and '_' so a name can be used as a file name.
func Sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		}
	}
	return strings.Trim(sb.String(), "_")
}

// Advance moves key forward to value. Values at or below the stored one are ignored, so a
// cursor never goes backwards. It reports whether a write happened.
func Advance(ctx context.Context, s Store, key string, value, fallback int64) (bool, error) {
	current, err := s.Get(ctx, key, fallback)
	if err != nil {
		return false, fmt.Errorf("failed to read cursor %s: %w", key, err)
	}
	if value <= current {
		log.Debug().
			Str("key", key).
			Int64("current", current).
			Int64("proposed", value).
			Msg("Cursor already at or past proposed value")
		return false, nil
	}
	if err := s.Set(ctx, key, value); err != nil {
		return false, fmt.Errorf("failed to write cursor %s: %w", key, err)
	}
	log.Debug().
		Str("key", key).
		Int64("from", current).
		Int64("to", value).
		Msg("Advanced cursor")
	return true, nil
}
