package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"order_sync/internal/orders"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxStoreSlots bounds the numbered WOO<n>_ / SHOPIFY<n>_ variables that are scanned.
const maxStoreSlots = 20

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	// Configure logging
	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "":
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

type StoreConfig struct {
	Name           string
	Kind           orders.Kind
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
}

type Config struct {
	Stores []StoreConfig

	CredsFile     string
	MasterSheetID string
	MasterTab     string
	AgentTab      string
	AgentsFile    string

	NotifyEnabled bool
	Twilio        TwilioConfig
	WhatsAppDelay time.Duration
	Currency      string

	StateDir      string
	CursorBackend string
	CursorDB      string
}

// Getenv looks up one variable. os.Getenv satisfies it.
type Getenv func(string) string

func (g Getenv) withDefault(key, def string) string {
	if v := strings.TrimSpace(g(key)); v != "" {
		return v
	}
	return def
}

// LoadConfig reads the process environment.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv)
}

// LoadConfigFrom builds a Config from getenv. Every missing or malformed value is reported
// in the returned error, not just the first.
func LoadConfigFrom(getenv Getenv) (*Config, error) {
	var errs []error

	cfg := &Config{
		Stores:        LoadStores(getenv),
		CredsFile:     getenv.withDefault("CREDS_FILE", "credentials.json"),
		MasterSheetID: strings.TrimSpace(getenv("MASTER_SHEET_ID")),
		MasterTab:     getenv.withDefault("MASTER_SHEET_TAB", "Sheet1"),
		AgentTab:      getenv.withDefault("AGENT_SHEET_TAB", "Sheet1"),
		AgentsFile:    getenv.withDefault("AGENTS_FILE", "agents.yaml"),
		Currency:      getenv.withDefault("CURRENCY_LABEL", "NGN"),
		Twilio: TwilioConfig{
			AccountSID: strings.TrimSpace(getenv("TWILIO_SID")),
			AuthToken:  strings.TrimSpace(getenv("TWILIO_AUTH")),
			From:       strings.TrimSpace(getenv("TWILIO_FROM")),
			BaseURL:    strings.TrimSpace(getenv("TWILIO_API_URL")),
		},
	}
	errs = append(errs, cfg.loadState(getenv)...)

	if cfg.MasterSheetID == "" {
		errs = append(errs, errors.New("MASTER_SHEET_ID environment variable is required"))
	}

	enabled, err := strconv.ParseBool(getenv.withDefault("NOTIFY_ENABLED", "true"))
	if err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_ENABLED: %w", err))
	}
	cfg.NotifyEnabled = enabled

	delay, err := strconv.ParseFloat(getenv.withDefault("WHATSAPP_DELAY_SECONDS", "5"), 64)
	if err != nil || delay < 0 {
		errs = append(errs, errors.New("WHATSAPP_DELAY_SECONDS must be a non-negative number"))
	}
	cfg.WhatsAppDelay = time.Duration(delay * float64(time.Second))

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStateConfig reads only the cursor store settings. Operator commands that touch
// cursors use it so they work without sheet or store credentials.
func LoadStateConfig(getenv Getenv) (*Config, error) {
	cfg := &Config{}
	if err := errors.Join(cfg.loadState(getenv)...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadState(getenv Getenv) []error {
	c.StateDir = getenv.withDefault("STATE_DIR", "state")
	c.CursorBackend = strings.ToLower(getenv.withDefault("CURSOR_BACKEND", "file"))
	c.CursorDB = getenv.withDefault("CURSOR_DB", filepath.Join(c.StateDir, "cursors.db"))

	switch c.CursorBackend {
	case "file", "sqlite":
		return nil
	default:
		return []error{fmt.Errorf("CURSOR_BACKEND must be file or sqlite, got %q", c.CursorBackend)}
	}
}

// ValidateTwilio reports missing Twilio credentials. Only needed when notifying.
func (c *Config) ValidateTwilio() error {
	var errs []error
	for key, v := range map[string]string{
		"TWILIO_SID":  c.Twilio.AccountSID,
		"TWILIO_AUTH": c.Twilio.AuthToken,
		"TWILIO_FROM": c.Twilio.From,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s environment variable is required", key))
		}
	}
	return errors.Join(errs...)
}

// LoadStores reads WOO1_..WOO<n>_ and SHOPIFY_, SHOPIFY2_..SHOPIFY<n>_ store slots. A slot
// without a name or URL is skipped.
func LoadStores(getenv Getenv) []StoreConfig {
	var out []StoreConfig

	for i := 1; i <= maxStoreSlots; i++ {
		prefix := fmt.Sprintf("WOO%d_", i)
		sc := StoreConfig{
			Name:           strings.TrimSpace(getenv(prefix + "NAME")),
			Kind:           orders.KindWoo,
			BaseURL:        strings.TrimSpace(getenv(prefix + "URL")),
			ConsumerKey:    strings.TrimSpace(getenv(prefix + "CONSUMER_KEY")),
			ConsumerSecret: strings.TrimSpace(getenv(prefix + "CONSUMER_SECRET")),
		}
		if keep(prefix, sc) {
			out = append(out, sc)
		}
	}

	for i := 1; i <= maxStoreSlots; i++ {
		prefix := "SHOPIFY_"
		if i > 1 {
			prefix = fmt.Sprintf("SHOPIFY%d_", i)
		}
		sc := StoreConfig{
			Name:        strings.TrimSpace(getenv(prefix + "NAME")),
			Kind:        orders.KindShopify,
			BaseURL:     strings.TrimSpace(getenv(prefix + "URL")),
			AccessToken: strings.TrimSpace(getenv(prefix + "ACCESS_TOKEN")),
		}
		if keep(prefix, sc) {
			out = append(out, sc)
		}
	}

	return out
}

func keep(prefix string, sc StoreConfig) bool {
	switch {
	case sc.Name == "" && sc.BaseURL == "":
		return false
	case sc.Name == "" || sc.BaseURL == "":
		log.Warn().Str("prefix", prefix).Str("name", sc.Name).Msg("Store slot missing name or URL; skipping")
		return false
	default:
		return true
	}
}
