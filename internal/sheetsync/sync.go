// Package sheetsync appends newly fetched orders to the master sheet without duplicating
// rows that are already there.
package sheetsync

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"order_sync/internal/normalize"
	"order_sync/internal/orders"
	"order_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

type Syncer struct {
	Master sheets.Sheet
}

func NewSyncer(master sheets.Sheet) *Syncer {
	return &Syncer{Master: master}
}

// Sync normalizes fetched, drops rows whose order number is already on the master sheet,
// and appends the rest in one batch sorted by order number. The sheet is read fresh on
// every call. It returns the number of rows appended.
func (s *Syncer) Sync(ctx context.Context, fetched []orders.Fetched) (int, error) {
	if _, err := sheets.EnsureHeader(ctx, s.Master, orders.Headers, false); err != nil {
		return 0, fmt.Errorf("failed to ensure master header: %w", err)
	}
	if len(fetched) == 0 {
		log.Debug().Msg("No fetched orders to sync")
		return 0, nil
	}

	existing, err := s.Master.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read master sheet: %w", err)
	}
	seen := ExistingKeys(existing)

	rows := normalize.All(fetched)
	fresh := make([]orders.Row, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		if seen[strings.TrimSpace(r.OrderNumber)] {
			skipped++
			continue
		}
		fresh = append(fresh, r)
	}

	if len(fresh) == 0 {
		log.Info().Int("skipped", skipped).Msg("All fetched orders already on master sheet")
		return 0, nil
	}

	SortRows(fresh)

	values := make([][]interface{}, 0, len(fresh))
	for _, r := range fresh {
		values = append(values, r.Values())
	}
	if err := s.Master.Append(ctx, values); err != nil {
		return 0, fmt.Errorf("failed to append orders: %w", err)
	}

	log.Info().
		Int("added", len(fresh)).
		Int("skipped", skipped).
		Msg("Master sheet update complete")
	return len(fresh), nil
}

// ExistingKeys collects the order numbers of every data row, header excluded.
func ExistingKeys(values [][]interface{}) map[string]bool {
	keys := make(map[string]bool)
	for i, row := range values {
		if i == 0 || len(row) <= orders.ColOrderNumber {
			continue
		}
		key := strings.TrimSpace(orders.CellString(row[orders.ColOrderNumber]))
		if key != "" {
			keys[key] = true
		}
	}
	log.Debug().Int("entries", len(keys)).Msg("Built existing order map")
	return keys
}

// SortRows orders rows by order number, keeping line items of one order together.
func SortRows(rows []orders.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return OrderKeyLess(rows[i].OrderNumber, rows[j].OrderNumber)
	})
}

// OrderKeyLess compares order numbers after dropping one leading '#'. Numeric keys sort
// numerically and ahead of anything else; the rest compare as text.
func OrderKeyLess(a, b string) bool {
	a, b = strings.TrimPrefix(strings.TrimSpace(a), "#"), strings.TrimPrefix(strings.TrimSpace(b), "#")
	an, bn := isDigits(a), isDigits(b)
	switch {
	case an && bn:
		return numericLess(a, b)
	case an != bn:
		return an
	default:
		return a < b
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// numericLess compares digit strings of any length without overflow.
func numericLess(a, b string) bool {
	a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
