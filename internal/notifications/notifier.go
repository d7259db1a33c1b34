package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"order_sync/internal/cursor"
	"order_sync/internal/orders"
	"order_sync/internal/roster"
	"order_sync/internal/sheets"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const DefaultCurrency = "NGN"

var errInterrupted = errors.New("notification run interrupted")

// Sender delivers one message and returns its provider id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Notifier messages each agent about rows added to their sheet since the last run.
//
// The per-agent watermark is the sheet row number of the last row already handled, with
// the header at row 1. After a pass it is moved to the last data row read, whether or not
// every send succeeded, so a row is messaged at most once.
type Notifier struct {
	roster   *roster.Roster
	open     func(roster.Agent) sheets.Sheet
	cursors  cursor.Store
	sender   Sender
	currency string
	delay    time.Duration
	pacer    *rate.Limiter
}

func NewNotifier(r *roster.Roster, open func(roster.Agent) sheets.Sheet, cursors cursor.Store, sender Sender, delay time.Duration, currency string) *Notifier {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Notifier{
		roster:   r,
		open:     open,
		cursors:  cursors,
		sender:   sender,
		currency: currency,
		delay:    delay,
	}
}

func (n *Notifier) resetPacer() {
	n.pacer = nil
	if n.delay > 0 {
		n.pacer = rate.NewLimiter(rate.Every(n.delay), 1)
	}
}

// pace blocks after a successful send until the next one may start. A token that built up
// while idle (between runs, or while reading the next agent's sheet) is drained first, so
// consecutive sends always start at least one delay apart.
func (n *Notifier) pace(ctx context.Context) error {
	if n.pacer == nil {
		return nil
	}
	n.pacer.Allow()
	return n.pacer.Wait(ctx)
}

// Run notifies every agent in roster order. A failing agent is logged and the rest still
// run; their errors are joined in the result.
func (n *Notifier) Run(ctx context.Context) (int, error) {
	if n.roster == nil || n.roster.Len() == 0 {
		return 0, roster.ErrEmptyRoster
	}
	n.resetPacer()

	total := 0
	var errs []error
	for _, agent := range n.roster.Agents {
		sent, err := n.notifyAgent(ctx, agent)
		total += sent
		if err != nil {
			log.Warn().Err(err).Str("agent", agent.Name).Msg("Failed to notify agent")
			errs = append(errs, fmt.Errorf("agent %s: %w", agent.Name, err))
			if errors.Is(err, errInterrupted) {
				break
			}
		}
	}

	log.Info().Int("messages_sent", total).Msg("WhatsApp notifications complete")
	return total, errors.Join(errs...)
}

func (n *Notifier) notifyAgent(ctx context.Context, agent roster.Agent) (int, error) {
	if agent.WhatsApp == "" {
		log.Warn().Str("agent", agent.Name).Msg("Agent has no WhatsApp number; skipping")
		return 0, nil
	}

	values, err := n.open(agent).ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read agent sheet: %w", err)
	}
	if len(values) == 0 {
		log.Debug().Str("agent", agent.Name).Msg("Agent sheet is empty")
		return 0, nil
	}

	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = strings.TrimSpace(orders.CellString(h))
	}
	data := values[1:]

	key := cursor.SentKey(agent.Name)
	watermark, err := n.cursors.Get(ctx, key, cursor.DefaultRowWatermark)
	if err != nil {
		return 0, fmt.Errorf("failed to read notify watermark: %w", err)
	}
	start := int(max(watermark-1, 0))
	if start >= len(data) {
		log.Info().Str("agent", agent.Name).Msg("No new rows to notify")
		return 0, nil
	}

	sent := 0
	for i := start; i < len(data); i++ {
		if blankRow(data[i]) {
			continue
		}
		msg := FormatMessage(header, data[i], n.currency)
		sid, err := n.sender.Send(ctx, agent.WhatsApp, msg)
		if err != nil {
			log.Warn().Err(err).Str("agent", agent.Name).Int("sheet_row", i+2).Msg("WhatsApp send failed")
			if ctx.Err() != nil {
				return sent, errors.Join(errInterrupted, ctx.Err(), n.save(context.WithoutCancel(ctx), key, int64(i+1)))
			}
			continue
		}
		sent++
		log.Info().Str("agent", agent.Name).Str("sid", sid).Int("sheet_row", i+2).Msg("Sent WhatsApp message")

		if err := n.pace(ctx); err != nil {
			return sent, errors.Join(errInterrupted, err, n.save(context.WithoutCancel(ctx), key, int64(i+2)))
		}
	}

	if err := n.save(ctx, key, int64(1+len(data))); err != nil {
		return sent, err
	}
	return sent, nil
}

func (n *Notifier) save(ctx context.Context, key string, row int64) error {
	if _, err := cursor.Advance(ctx, n.cursors, key, row, cursor.DefaultRowWatermark); err != nil {
		return err
	}
	return nil
}

// FormatMessage renders one agent sheet row, looked up by header name.
func FormatMessage(header []string, row []interface{}, currency string) string {
	r := orders.RowFromRecord(header, row)
	orderNumber := r.OrderNumber
	if !hasColumn(header, orders.Headers[orders.ColOrderNumber]) {
		orderNumber = "N/A"
	}

	lines := []string{
		"New Order Assigned 🛍️",
		"Order #" + orderNumber,
		fmt.Sprintf("Customer: %s %s", r.FirstName, r.LastName),
		"Phone: " + r.Phone,
	}
	if strings.TrimSpace(r.Address) != "" {
		lines = append(lines, "Address: "+r.Address)
	}
	lines = append(lines,
		"Location: "+r.Location,
		"Items:",
		fmt.Sprintf(" - %s x%s @ %s %s", r.Product, r.Quantity, currency, r.Price),
	)
	return strings.Join(lines, "\n")
}

func hasColumn(header []string, name string) bool {
	for _, h := range header {
		if strings.TrimSpace(h) == name {
			return true
		}
	}
	return false
}

func blankRow(row []interface{}) bool {
	for _, v := range row {
		if strings.TrimSpace(orders.CellString(v)) != "" {
			return false
		}
	}
	return true
}
