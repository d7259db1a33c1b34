package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"order_sync/internal/config"
	"order_sync/internal/cursor"
	"order_sync/internal/distribution"
	"order_sync/internal/notifications"
	"order_sync/internal/orders"
	"order_sync/internal/pipeline"
	"order_sync/internal/roster"
	"order_sync/internal/sheets"
	"order_sync/internal/sheetsync"
	"order_sync/internal/shopify"
	"order_sync/internal/stores"
	"order_sync/internal/woo"

	"github.com/rs/zerolog/log"
)

// Services is everything a command needs, built once from Config.
type Services struct {
	Config      *Config
	Cursors     cursor.Store
	Sheets      *sheets.Client
	Master      sheets.Sheet
	Roster      *roster.Roster
	Stores      []stores.Store
	Syncer      *sheetsync.Syncer
	Distributor *distribution.Distributor
	Notifier    *notifications.Notifier
	Runner      *pipeline.Runner

	closers []func() error
}

func (s *Services) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("Failed to close resource")
		}
	}
}

// OpenCursorStore returns the configured cursor backend and a close function.
func OpenCursorStore(ctx context.Context, cfg *Config) (cursor.Store, func() error, error) {
	switch cfg.CursorBackend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.CursorDB), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create cursor db dir: %w", err)
		}
		s, err := cursor.OpenSQLite(ctx, cfg.CursorDB)
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("path", cfg.CursorDB).Msg("Using sqlite cursor store")
		return s, s.Close, nil
	default:
		log.Debug().Str("dir", cfg.StateDir).Msg("Using file cursor store")
		return cursor.NewFileStore(cfg.StateDir), func() error { return nil }, nil
	}
}

// BuildStores creates one platform client per configured store.
func BuildStores(cfg *Config, res config.ResilienceConfig) []stores.Store {
	out := make([]stores.Store, 0, len(cfg.Stores))
	for _, sc := range cfg.Stores {
		var adapter stores.Adapter
		switch sc.Kind {
		case orders.KindWoo:
			adapter = stores.WooAdapter(woo.NewClient(sc.BaseURL, sc.ConsumerKey, sc.ConsumerSecret, res.OrderAPI))
		case orders.KindShopify:
			adapter = stores.ShopifyAdapter(shopify.NewClient(sc.BaseURL, sc.AccessToken, res.OrderAPI))
		default:
			log.Warn().Str("store", sc.Name).Str("kind", string(sc.Kind)).Msg("Unknown store kind; skipping")
			continue
		}
		out = append(out, stores.Store{Name: sc.Name, Kind: sc.Kind, Adapter: adapter})
		log.Debug().Str("store", sc.Name).Str("kind", string(sc.Kind)).Msg("Configured store")
	}
	return out
}

// InitializeServices connects to Google Sheets, opens the cursor store and loads the
// roster. The notifier is only built when notifications are enabled.
func InitializeServices(ctx context.Context, cfg *Config) (*Services, error) {
	log.Debug().Msg("Initializing services")
	res := config.DefaultResilienceConfig

	svc := &Services{Config: cfg}

	cursors, closeCursors, err := OpenCursorStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc.Cursors = cursors
	svc.closers = append(svc.closers, closeCursors)

	sheetsClient, err := sheets.NewClient(ctx, cfg.CredsFile)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Sheets = sheetsClient

	sheetRes := sheets.Resilience{Read: res.SheetRead, Write: res.SheetWrite}
	svc.Master = sheetsClient.Worksheet(cfg.MasterSheetID, cfg.MasterTab, sheetRes)
	open := func(a roster.Agent) sheets.Sheet {
		return sheetsClient.Worksheet(a.SheetID, a.Tab, sheetRes)
	}

	svc.Roster, err = roster.Load(cfg.AgentsFile, cfg.AgentTab)
	if err != nil {
		svc.Close()
		return nil, err
	}

	svc.Stores = BuildStores(cfg, res)
	svc.Syncer = sheetsync.NewSyncer(svc.Master)
	svc.Distributor = distribution.NewDistributor(svc.Master, svc.Roster, open, cursors)

	var client *notifications.Client
	if cfg.NotifyEnabled {
		if err := cfg.ValidateTwilio(); err != nil {
			svc.Close()
			return nil, err
		}
		tw := cfg.Twilio
		client = notifications.NewClient(tw.BaseURL, tw.AccountSID, tw.AuthToken, tw.From, true, res.Messaging)
		svc.Notifier = notifications.NewNotifier(svc.Roster, open, cursors, client, cfg.WhatsAppDelay, cfg.Currency)
		log.Info().Str("from", tw.From).Msg("WhatsApp notifications enabled")
	} else {
		log.Debug().Msg("WhatsApp notifications disabled")
	}

	svc.Runner = &pipeline.Runner{
		Stores:      svc.Stores,
		Cursors:     cursors,
		Syncer:      svc.Syncer,
		Distributor: svc.Distributor,
		Notifier:    svc.Notifier,
		SheetCalls:  sheetsClient,
	}
	if client != nil {
		svc.Runner.Messages = client
	}

	log.Debug().
		Int("stores", len(svc.Stores)).
		Int("agents", svc.Roster.Len()).
		Str("cursor_backend", cfg.CursorBackend).
		Msg("Services initialized successfully")
	return svc, nil
}
