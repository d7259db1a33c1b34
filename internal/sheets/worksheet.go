package sheets

import (
	"context"
	"fmt"
	"strings"

	"order_sync/internal/retry"

	"github.com/rs/zerolog/log"
)

// Sheet is a single tab addressed by 1-based row numbers and 0-based column indexes.
// Row 1 is the header.
type Sheet interface {
	Name() string
	// ReadAll returns every non-empty row including the header.
	ReadAll(ctx context.Context) ([][]interface{}, error)
	Header(ctx context.Context) ([]interface{}, error)
	Append(ctx context.Context, rows [][]interface{}) error
	UpdateRow(ctx context.Context, row int, values []interface{}) error
	UpdateCell(ctx context.Context, row, col int, value interface{}) error
}

type Resilience struct {
	Read  retry.Config
	Write retry.Config
}

type Worksheet struct {
	client        *Client
	spreadsheetID string
	tab           string
	res           Resilience
}

func (w *Worksheet) Name() string {
	return w.spreadsheetID + "/" + w.tab
}

func (w *Worksheet) ReadAll(ctx context.Context) ([][]interface{}, error) {
	values, err := retry.WithRetry(ctx, w.res.Read, func(ctx context.Context) ([][]interface{}, error) {
		return w.client.ReadSheet(ctx, w.spreadsheetID, quoteTab(w.tab))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", w.Name(), err)
	}
	log.Debug().Str("sheet", w.Name()).Int("rows", len(values)).Msg("Read sheet")
	return values, nil
}

func (w *Worksheet) Header(ctx context.Context) ([]interface{}, error) {
	values, err := retry.WithRetry(ctx, w.res.Read, func(ctx context.Context) ([][]interface{}, error) {
		return w.client.ReadSheet(ctx, w.spreadsheetID, quoteTab(w.tab)+"!1:1")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", w.Name(), err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

func (w *Worksheet) Append(ctx context.Context, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := retry.WithRetry(ctx, w.res.Write, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.client.AppendRows(ctx, w.spreadsheetID, quoteTab(w.tab)+"!A1", rows)
	})
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", w.Name(), err)
	}
	return nil
}

func (w *Worksheet) UpdateRow(ctx context.Context, row int, values []interface{}) error {
	if row < 1 {
		return fmt.Errorf("invalid row %d", row)
	}
	rng := quoteTab(w.tab) + "!" + CellRef(row, 0)
	_, err := retry.WithRetry(ctx, w.res.Write, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.client.UpdateRange(ctx, w.spreadsheetID, rng, [][]interface{}{values})
	})
	if err != nil {
		return fmt.Errorf("failed to update row %d of %s: %w", row, w.Name(), err)
	}
	return nil
}

func (w *Worksheet) UpdateCell(ctx context.Context, row, col int, value interface{}) error {
	if row < 1 || col < 0 {
		return fmt.Errorf("invalid cell row=%d col=%d", row, col)
	}
	rng := quoteTab(w.tab) + "!" + CellRef(row, col)
	_, err := retry.WithRetry(ctx, w.res.Write, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.client.UpdateRange(ctx, w.spreadsheetID, rng, [][]interface{}{{value}})
	})
	if err != nil {
		return fmt.Errorf("failed to update %s of %s: %w", CellRef(row, col), w.Name(), err)
	}
	return nil
}

// ColumnLetter converts a 0-based column index to A1 letters: 0 is "A", 26 is "AA".
func ColumnLetter(col int) string {
	var sb []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		sb = append([]byte{byte('A' + (n-1)%26)}, sb...)
	}
	return string(sb)
}

func CellRef(row, col int) string {
	return fmt.Sprintf("%s%d", ColumnLetter(col), row)
}

// quoteTab wraps a tab name in single quotes so names with spaces work in A1 ranges.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// HeaderMatches compares a sheet header against want, ignoring surrounding whitespace.
func HeaderMatches(got []interface{}, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if strings.TrimSpace(fmt.Sprintf("%v", got[i])) != strings.TrimSpace(want[i]) {
			return false
		}
	}
	return true
}

// EnsureHeader writes want into row 1 when the row is empty. With overwrite set, a
// header that differs is replaced as well. It reports whether a write happened.
func EnsureHeader(ctx context.Context, s Sheet, want []string, overwrite bool) (bool, error) {
	got, err := s.Header(ctx)
	if err != nil {
		return false, err
	}
	if len(got) > 0 && (!overwrite || HeaderMatches(got, want)) {
		return false, nil
	}

	values := make([]interface{}, len(want))
	for i, h := range want {
		values[i] = h
	}
	if err := s.UpdateRow(ctx, 1, values); err != nil {
		return false, fmt.Errorf("failed to write header: %w", err)
	}
	log.Info().Str("sheet", s.Name()).Bool("replaced", len(got) > 0).Msg("Wrote sheet header")
	return true, nil
}
