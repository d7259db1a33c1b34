package stores

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"order_sync/internal/cursor"
	"order_sync/internal/orders"
	"order_sync/internal/shopify"
	"order_sync/internal/woo"

	"github.com/rs/zerolog/log"
)

var ErrNoStores = errors.New("no stores configured")

// Adapter fetches orders newer than a cursor from one platform.
type Adapter interface {
	FetchNew(ctx context.Context, cursor int64) ([]orders.Raw, error)
	GetAPICallCount() int64
	ResetAPICallCount()
}

type Store struct {
	Name    string
	Kind    orders.Kind
	Adapter Adapter
}

// Batch is the result of one aggregation pass. Advances holds the highest order id
// fetched per store; nothing is persisted until Commit.
type Batch struct {
	Orders   []orders.Fetched
	Advances map[string]int64
}

// Empty reports whether no store returned a new order.
func (b *Batch) Empty() bool {
	return b == nil || len(b.Orders) == 0
}

// Commit persists every pending advance. Stores are committed in name order and the
// first failure stops the commit.
func (b *Batch) Commit(ctx context.Context, cursors cursor.Store) error {
	if b == nil {
		return nil
	}
	names := make([]string, 0, len(b.Advances))
	for name := range b.Advances {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		maxID := b.Advances[name]
		moved, err := cursor.Advance(ctx, cursors, cursor.OrderKey(name), maxID, cursor.DefaultOrderID)
		if err != nil {
			return fmt.Errorf("failed to commit cursor for store %s: %w", name, err)
		}
		if moved {
			log.Info().Str("store", name).Int64("last_order_id", maxID).Msg("Saved order cursor")
		}
	}
	return nil
}

// AggregateOrders fetches new orders from every store in turn. A store that fails, or
// whose kind is unknown, is logged and skipped; the others still contribute.
func AggregateOrders(ctx context.Context, stores []Store, cursors cursor.Store) *Batch {
	batch := &Batch{Advances: make(map[string]int64)}

	for _, s := range stores {
		if !s.Kind.Known() || s.Adapter == nil {
			log.Warn().Str("store", s.Name).Str("kind", string(s.Kind)).Msg("Unknown store kind; skipping")
			continue
		}

		last, err := cursors.Get(ctx, cursor.OrderKey(s.Name), cursor.DefaultOrderID)
		if err != nil {
			log.Warn().Err(err).Str("store", s.Name).Msg("Failed to read order cursor; skipping store")
			continue
		}

		s.Adapter.ResetAPICallCount()
		found, err := s.Adapter.FetchNew(ctx, last)
		if err != nil {
			log.Warn().
				Err(err).
				Str("store", s.Name).
				Int64("cursor", last).
				Int64("api_calls", s.Adapter.GetAPICallCount()).
				Msg("Failed to fetch orders for store")
			continue
		}

		maxID := last
		for _, o := range found {
			batch.Orders = append(batch.Orders, orders.Fetched{Source: s.Name, Kind: s.Kind, Order: o})
			if o.OrderID() > maxID {
				maxID = o.OrderID()
			}
		}
		if len(found) > 0 {
			batch.Advances[s.Name] = maxID
		}

		log.Info().
			Str("store", s.Name).
			Int64("cursor", last).
			Int("new_orders", len(found)).
			Int64("api_calls", s.Adapter.GetAPICallCount()).
			Msg("Fetched store orders")
	}

	log.Debug().Int("combined_orders", len(batch.Orders)).Msg("Aggregated orders from all stores")
	return batch
}

type wooAdapter struct {
	*woo.Client
}

func (a wooAdapter) FetchNew(ctx context.Context, last int64) ([]orders.Raw, error) {
	found, err := a.Client.FetchNew(ctx, last)
	if err != nil {
		return nil, err
	}
	raw := make([]orders.Raw, 0, len(found))
	for _, o := range found {
		raw = append(raw, o)
	}
	return raw, nil
}

type shopifyAdapter struct {
	*shopify.Client
}

func (a shopifyAdapter) FetchNew(ctx context.Context, last int64) ([]orders.Raw, error) {
	found, err := a.Client.FetchNew(ctx, last)
	if err != nil {
		return nil, err
	}
	raw := make([]orders.Raw, 0, len(found))
	for _, o := range found {
		raw = append(raw, o)
	}
	return raw, nil
}

// WooAdapter wraps a WooCommerce client.
func WooAdapter(c *woo.Client) Adapter {
	return wooAdapter{Client: c}
}

// ShopifyAdapter wraps a Shopify client.
func ShopifyAdapter(c *shopify.Client) Adapter {
	return shopifyAdapter{Client: c}
}
