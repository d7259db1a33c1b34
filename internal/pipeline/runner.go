// Package pipeline runs the stages in order: fetch and sync, auto distribution, then
// notification.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order_sync/internal/cursor"
	"order_sync/internal/distribution"
	"order_sync/internal/notifications"
	"order_sync/internal/sheetsync"
	"order_sync/internal/stores"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// APICounter counts requests made to an external API.
type APICounter interface {
	GetAPICallCount() int64
}

// MessageMetrics reports lifetime delivery totals of a messaging client.
type MessageMetrics interface {
	GetMetrics() (sent, failed int64)
}

type Runner struct {
	Stores      []stores.Store
	Cursors     cursor.Store
	Syncer      *sheetsync.Syncer
	Distributor *distribution.Distributor
	// Notifier is optional; a nil notifier skips the notify stage.
	Notifier *notifications.Notifier

	// SheetCalls and Messages only feed the run summary and may be nil.
	SheetCalls APICounter
	Messages   MessageMetrics
}

type Summary struct {
	RunID       string
	Fetched     int
	Appended    int
	Distributed int
	Notified    int
	Duration    time.Duration

	SheetAPICalls  int64
	MessagesSent   int64
	MessagesFailed int64
}

// FetchAndSync pulls new orders from every store, appends them to the master sheet, and
// only then saves the store cursors. A failed append leaves the cursors where they were
// so the next run fetches the same orders again.
func (r *Runner) FetchAndSync(ctx context.Context) (fetched, appended int, err error) {
	if len(r.Stores) == 0 {
		return 0, 0, stores.ErrNoStores
	}

	batch := stores.AggregateOrders(ctx, r.Stores, r.Cursors)
	if batch.Empty() {
		log.Info().Int("stores", len(r.Stores)).Msg("No new orders from any store")
	}
	appended, err = r.Syncer.Sync(ctx, batch.Orders)
	if err != nil {
		return len(batch.Orders), 0, fmt.Errorf("sheet sync failed: %w", err)
	}
	if err := batch.Commit(ctx, r.Cursors); err != nil {
		return len(batch.Orders), appended, err
	}
	return len(batch.Orders), appended, nil
}

// Run executes every stage once. A failing stage is logged and the later stages still
// run; all stage errors are returned together.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	s := Summary{RunID: uuid.NewString()}
	log.Info().Str("run_id", s.RunID).Msg("Starting pipeline run")
	sheetCallsBefore := r.sheetCalls()
	sentBefore, failedBefore := r.messageMetrics()

	var errs []error

	fetched, appended, err := r.FetchAndSync(ctx)
	s.Fetched, s.Appended = fetched, appended
	if err != nil {
		log.Error().Err(err).Str("run_id", s.RunID).Msg("Fetch and sync stage failed")
		errs = append(errs, fmt.Errorf("fetch: %w", err))
	}

	if r.Distributor != nil {
		s.Distributed, err = r.Distributor.Auto(ctx)
		if err != nil {
			log.Error().Err(err).Str("run_id", s.RunID).Msg("Distribution stage failed")
			errs = append(errs, fmt.Errorf("distribute: %w", err))
		}
	}

	if r.Notifier != nil {
		s.Notified, err = r.Notifier.Run(ctx)
		if err != nil {
			log.Error().Err(err).Str("run_id", s.RunID).Msg("Notify stage failed")
			errs = append(errs, fmt.Errorf("notify: %w", err))
		}
	} else {
		log.Debug().Str("run_id", s.RunID).Msg("Notifications disabled, skipping notify stage")
	}

	s.Duration = time.Since(start)
	s.SheetAPICalls = r.sheetCalls() - sheetCallsBefore
	sent, failed := r.messageMetrics()
	s.MessagesSent, s.MessagesFailed = sent-sentBefore, failed-failedBefore

	log.Info().
		Str("run_id", s.RunID).
		Int("fetched", s.Fetched).
		Int("appended", s.Appended).
		Int("distributed", s.Distributed).
		Int("notified", s.Notified).
		Int64("sheet_api_calls", s.SheetAPICalls).
		Int64("messages_sent", s.MessagesSent).
		Int64("messages_failed", s.MessagesFailed).
		Dur("duration", s.Duration).
		Int("failed_stages", len(errs)).
		Msg("Pipeline run complete")

	return s, errors.Join(errs...)
}

func (r *Runner) sheetCalls() int64 {
	if r.SheetCalls == nil {
		return 0
	}
	return r.SheetCalls.GetAPICallCount()
}

func (r *Runner) messageMetrics() (sent, failed int64) {
	if r.Messages == nil {
		return 0, 0
	}
	return r.Messages.GetMetrics()
}
