// Package testutil holds in-memory doubles shared by package tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrInjected = errors.New("injected failure")

// FakeSheet is an in-memory sheet. Rows are stored as strings; row 1 is values[0].
type FakeSheet struct {
	mu     sync.Mutex
	name   string
	rows   [][]string
	Writes int
	Reads  int

	// FailReads makes every read fail.
	FailReads bool
	// FailWritesAfter lets that many writes through, then fails the rest. Negative disables.
	FailWritesAfter int
}

func NewFakeSheet(name string, rows ...[]string) *FakeSheet {
	f := &FakeSheet{name: name, FailWritesAfter: -1}
	for _, r := range rows {
		f.rows = append(f.rows, append([]string(nil), r...))
	}
	return f
}

func (f *FakeSheet) Name() string { return f.name }

func (f *FakeSheet) ReadAll(_ context.Context) ([][]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if f.FailReads {
		return nil, ErrInjected
	}
	out := make([][]interface{}, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, toValues(r))
	}
	// The Sheets API drops trailing empty rows.
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *FakeSheet) Header(_ context.Context) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if f.FailReads {
		return nil, ErrInjected
	}
	if len(f.rows) == 0 {
		return nil, nil
	}
	return toValues(f.rows[0]), nil
}

func (f *FakeSheet) Append(_ context.Context, rows [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(); err != nil {
		return err
	}
	for _, r := range rows {
		f.rows = append(f.rows, toStrings(r))
	}
	return nil
}

func (f *FakeSheet) UpdateRow(_ context.Context, row int, values []interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row < 1 {
		return fmt.Errorf("invalid row %d", row)
	}
	if err := f.write(); err != nil {
		return err
	}
	f.grow(row)
	f.rows[row-1] = toStrings(values)
	return nil
}

func (f *FakeSheet) UpdateCell(_ context.Context, row, col int, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row < 1 || col < 0 {
		return fmt.Errorf("invalid cell %d,%d", row, col)
	}
	if err := f.write(); err != nil {
		return err
	}
	f.grow(row)
	for len(f.rows[row-1]) <= col {
		f.rows[row-1] = append(f.rows[row-1], "")
	}
	f.rows[row-1][col] = fmt.Sprintf("%v", value)
	return nil
}

// Rows returns a copy of the stored rows, header first.
func (f *FakeSheet) Rows() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.rows))
	for i, r := range f.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Cell returns the value at a 1-based row and 0-based column, or "".
func (f *FakeSheet) Cell(row, col int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row < 1 || row > len(f.rows) || col >= len(f.rows[row-1]) {
		return ""
	}
	return f.rows[row-1][col]
}

func (f *FakeSheet) write() error {
	if f.FailWritesAfter == 0 {
		return ErrInjected
	}
	if f.FailWritesAfter > 0 {
		f.FailWritesAfter--
	}
	f.Writes++
	return nil
}

func (f *FakeSheet) grow(row int) {
	for len(f.rows) < row {
		f.rows = append(f.rows, nil)
	}
}

func toValues(r []string) []interface{} {
	end := len(r)
	for end > 0 && r[end-1] == "" {
		end--
	}
	out := make([]interface{}, end)
	for i := 0; i < end; i++ {
		out[i] = r[i]
	}
	return out
}

func toStrings(values []interface{}) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprintf("%v", v)
	}
	return out
}
