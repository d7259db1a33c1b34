package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"order_sync/internal/config"
	"order_sync/internal/cursor"
	"order_sync/internal/orders"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) Getenv {
	return func(k string) string { return m[k] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFrom(envOf(map[string]string{"MASTER_SHEET_ID": "master"}))
	require.NoError(t, err)

	assert.Equal(t, "credentials.json", cfg.CredsFile)
	assert.Equal(t, "Sheet1", cfg.MasterTab)
	assert.Equal(t, "Sheet1", cfg.AgentTab)
	assert.Equal(t, "agents.yaml", cfg.AgentsFile)
	assert.Equal(t, "NGN", cfg.Currency)
	assert.True(t, cfg.NotifyEnabled)
	assert.Equal(t, 5*time.Second, cfg.WhatsAppDelay)
	assert.Equal(t, "file", cfg.CursorBackend)
	assert.Equal(t, "state", cfg.StateDir)
	assert.Equal(t, filepath.Join("state", "cursors.db"), cfg.CursorDB)
	assert.Empty(t, cfg.Stores)
}

func TestLoadConfigReportsEveryProblem(t *testing.T) {
	_, err := LoadConfigFrom(envOf(map[string]string{
		"NOTIFY_ENABLED":         "maybe",
		"WHATSAPP_DELAY_SECONDS": "-1",
		"CURSOR_BACKEND":         "redis",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MASTER_SHEET_ID")
	assert.Contains(t, err.Error(), "NOTIFY_ENABLED")
	assert.Contains(t, err.Error(), "WHATSAPP_DELAY_SECONDS")
	assert.Contains(t, err.Error(), "CURSOR_BACKEND")
}

func TestLoadStores(t *testing.T) {
	got := LoadStores(envOf(map[string]string{
		"WOO1_NAME":            "Main",
		"WOO1_URL":             "https://main.example",
		"WOO1_CONSUMER_KEY":    "ck",
		"WOO1_CONSUMER_SECRET": "cs",
		"WOO2_NAME":            "NoURL",
		"WOO3_NAME":            "Third",
		"WOO3_URL":             "https://third.example",
		"SHOPIFY_NAME":         "Shop",
		"SHOPIFY_URL":          "https://shop.example",
		"SHOPIFY_ACCESS_TOKEN": "tok",
		"SHOPIFY2_NAME":        "Shop Two",
		"SHOPIFY2_URL":         "https://two.example",
	}))

	require.Len(t, got, 4)
	assert.Equal(t, StoreConfig{Name: "Main", Kind: orders.KindWoo, BaseURL: "https://main.example", ConsumerKey: "ck", ConsumerSecret: "cs"}, got[0])
	assert.Equal(t, "Third", got[1].Name)
	assert.Equal(t, orders.KindShopify, got[2].Kind)
	assert.Equal(t, "tok", got[2].AccessToken)
	assert.Equal(t, "Shop Two", got[3].Name)
}

func TestValidateTwilio(t *testing.T) {
	cfg := &Config{Twilio: TwilioConfig{AccountSID: "AC"}}
	err := cfg.ValidateTwilio()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TWILIO_AUTH")
	assert.Contains(t, err.Error(), "TWILIO_FROM")

	cfg.Twilio = TwilioConfig{AccountSID: "AC", AuthToken: "t", From: "+1"}
	assert.NoError(t, cfg.ValidateTwilio())
}

func TestBuildStores(t *testing.T) {
	cfg := &Config{Stores: []StoreConfig{
		{Name: "W", Kind: orders.KindWoo, BaseURL: "https://w.example"},
		{Name: "S", Kind: orders.KindShopify, BaseURL: "https://s.example"},
		{Name: "M", Kind: "magento", BaseURL: "https://m.example"},
	}}

	got := BuildStores(cfg, config.FastResilienceConfig)
	require.Len(t, got, 2)
	assert.Equal(t, "W", got[0].Name)
	assert.Equal(t, orders.KindShopify, got[1].Kind)
	assert.NotNil(t, got[1].Adapter)
}

func TestOpenCursorStoreBackends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := &Config{
				CursorBackend: backend,
				StateDir:      filepath.Join(dir, backend),
				CursorDB:      filepath.Join(dir, backend, "nested", "cursors.db"),
			}
			store, closeFn, err := OpenCursorStore(ctx, cfg)
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeFn()) }()

			require.NoError(t, store.Set(ctx, cursor.DistributedKey, 9))
			got, err := store.Get(ctx, cursor.DistributedKey, cursor.DefaultRowWatermark)
			require.NoError(t, err)
			assert.Equal(t, int64(9), got)
		})
	}
}
