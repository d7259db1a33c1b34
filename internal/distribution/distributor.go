// Package distribution hands master sheet rows to agents, either round-robin or by an
// explicit operator assignment.
//
// The watermark stored under cursor.DistributedKey is the sheet row number of the last
// distributed row. Row 1 is the header, so a fresh watermark of 1 means nothing has been
// handed out yet, and data row d (1-based, header excluded) sits at sheet row d+1.
package distribution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"order_sync/internal/cursor"
	"order_sync/internal/orders"
	"order_sync/internal/roster"
	"order_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidRange = errors.New("invalid row range")
	ErrUnknownAgent = errors.New("unknown agent")
)

// SheetOpener returns the sheet an agent works from.
type SheetOpener func(agent roster.Agent) sheets.Sheet

// Assignment hands data rows Start..End (inclusive, 1-based, header excluded) to Agent.
type Assignment struct {
	Start int
	End   int
	Agent string
}

type Distributor struct {
	master  sheets.Sheet
	roster  *roster.Roster
	open    SheetOpener
	cursors cursor.Store
}

func NewDistributor(master sheets.Sheet, r *roster.Roster, open SheetOpener, cursors cursor.Store) *Distributor {
	return &Distributor{master: master, roster: r, open: open, cursors: cursors}
}

// Auto assigns every data row past the watermark round-robin by row number. Rows that
// already name an agent are left alone. The watermark moves after each row is fully
// written; a failed write stops the run and leaves it at the last completed row, so only
// the first row of the next run can be half done, and it is checked against the agent
// sheet before copying.
func (d *Distributor) Auto(ctx context.Context) (int, error) {
	if d.roster == nil || d.roster.Len() == 0 {
		return 0, roster.ErrEmptyRoster
	}

	data, err := d.readData(ctx)
	if err != nil {
		return 0, err
	}

	watermark, err := d.cursors.Get(ctx, cursor.DistributedKey, cursor.DefaultRowWatermark)
	if err != nil {
		return 0, fmt.Errorf("failed to read distribution watermark: %w", err)
	}
	first := int(max(watermark, cursor.DefaultRowWatermark))
	if first > len(data) {
		log.Info().Int64("watermark", watermark).Int("data_rows", len(data)).Msg("No new rows to distribute")
		return 0, nil
	}

	ready := make(map[string]bool)
	distributed := 0
	for row := first; row <= len(data); row++ {
		values := data[row-1]
		sheetRow := row + 1

		if assigned := agentCell(values); assigned != "" {
			log.Debug().Int("sheet_row", sheetRow).Str("agent", assigned).Msg("Row already assigned; skipping")
		} else {
			agent := d.roster.ForRow(row)
			copied := false
			if row == first {
				// A previous run may have stopped between copying this row and marking it.
				if copied, err = d.alreadyCopied(ctx, agent, data, row); err != nil {
					return distributed, err
				}
			}
			if copied {
				log.Info().Int("sheet_row", sheetRow).Str("agent", agent.Name).Msg("Row already on agent sheet; marking only")
			} else if err := d.assign(ctx, agent, [][]interface{}{values}, ready); err != nil {
				return distributed, err
			}
			if err := d.master.UpdateCell(ctx, sheetRow, orders.ColAgentInCharge, agent.Name); err != nil {
				return distributed, fmt.Errorf("failed to mark row %d for %s: %w", sheetRow, agent.Name, err)
			}
			distributed++
			log.Info().Int("sheet_row", sheetRow).Str("agent", agent.Name).Msg("Distributed order row")
		}

		if _, err := cursor.Advance(ctx, d.cursors, cursor.DistributedKey, int64(sheetRow), cursor.DefaultRowWatermark); err != nil {
			return distributed, err
		}
	}

	log.Info().Int("distributed", distributed).Int("data_rows", len(data)).Msg("Auto distribution complete")
	return distributed, nil
}

// Manual copies an explicit row range to one agent and marks those rows on the master.
// The watermark is raised to the end of the range and never lowered.
func (d *Distributor) Manual(ctx context.Context, a Assignment) (int, error) {
	if d.roster == nil {
		return 0, roster.ErrEmptyRoster
	}
	agent, ok := d.roster.Resolve(a.Agent)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAgent, a.Agent)
	}

	data, err := d.readData(ctx)
	if err != nil {
		return 0, err
	}
	if a.Start < 1 || a.End < a.Start || a.End > len(data) {
		return 0, fmt.Errorf("%w: %d-%d with %d data rows", ErrInvalidRange, a.Start, a.End, len(data))
	}

	selected := data[a.Start-1 : a.End]
	if err := d.assign(ctx, agent, selected, make(map[string]bool)); err != nil {
		return 0, err
	}
	for row := a.Start; row <= a.End; row++ {
		if err := d.master.UpdateCell(ctx, row+1, orders.ColAgentInCharge, agent.Name); err != nil {
			return 0, fmt.Errorf("failed to mark row %d for %s: %w", row+1, agent.Name, err)
		}
	}

	if _, err := cursor.Advance(ctx, d.cursors, cursor.DistributedKey, int64(a.End+1), cursor.DefaultRowWatermark); err != nil {
		return len(selected), err
	}

	log.Info().
		Str("agent", agent.Name).
		Int("start", a.Start).
		Int("end", a.End).
		Msg("Manual distribution complete")
	return len(selected), nil
}

func (d *Distributor) readData(ctx context.Context) ([][]interface{}, error) {
	values, err := d.master.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read master sheet: %w", err)
	}
	if len(values) <= 1 {
		return nil, nil
	}
	return values[1:], nil
}

// assign appends rows to the agent's sheet with the agent column filled in. The agent
// header is checked once per agent per run.
func (d *Distributor) assign(ctx context.Context, agent roster.Agent, rows [][]interface{}, ready map[string]bool) error {
	sheet := d.open(agent)
	if !ready[agent.Name] {
		if _, err := sheets.EnsureHeader(ctx, sheet, orders.Headers, true); err != nil {
			return fmt.Errorf("failed to prepare sheet for %s: %w", agent.Name, err)
		}
		ready[agent.Name] = true
	}

	out := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		padded := orders.PadValues(r)
		padded[orders.ColAgentInCharge] = agent.Name
		out = append(out, padded)
	}
	if err := sheet.Append(ctx, out); err != nil {
		return fmt.Errorf("failed to copy rows to %s: %w", agent.Name, err)
	}
	return nil
}

// alreadyCopied reports whether the agent sheet holds a copy of data row `row` that no
// earlier master row assigned to the same agent accounts for. Identical line items are
// matched by count, not just presence.
func (d *Distributor) alreadyCopied(ctx context.Context, agent roster.Agent, data [][]interface{}, row int) (bool, error) {
	want := orders.RowFromValues(data[row-1])
	want.AgentInCharge = agent.Name

	onMaster := 0
	for _, values := range data[:row-1] {
		if orders.RowFromValues(values) == want {
			onMaster++
		}
	}

	values, err := d.open(agent).ReadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read sheet for %s: %w", agent.Name, err)
	}
	onAgent := 0
	for i, v := range values {
		if i == 0 {
			continue
		}
		if orders.RowFromValues(v) == want {
			onAgent++
		}
	}
	return onAgent > onMaster, nil
}

func agentCell(values []interface{}) string {
	if len(values) <= orders.ColAgentInCharge {
		return ""
	}
	return strings.TrimSpace(orders.CellString(values[orders.ColAgentInCharge]))
}
