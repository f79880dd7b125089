package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile               = ".env"
	defaultPort                  = "8080"
	defaultReadTimeout           = 15 * time.Second
	defaultWriteTimeout          = 30 * time.Second
	defaultIdleTimeout           = 120 * time.Second
	defaultCurrency              = "EUR"
	defaultLocale                = "de-DE"
	defaultTaxRate               = 0.19
	defaultFreeShippingThreshold = int64(5000)
	defaultFlatShippingFee       = int64(499)
	defaultCartStateFile         = "cart-state.json"
	defaultCatalogSource         = "file"
	defaultCatalogSeedFile       = "catalog.yaml"
	defaultCatalogCollection     = "products"
	defaultCaseSize              = 6
	defaultSessionTTL            = 30 * time.Minute
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Pricing  PricingConfig
	Cart     CartConfig
	Catalog  CatalogConfig
	PSP      PSPConfig
	Checkout CheckoutConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PricingConfig controls how totals are derived and displayed.
type PricingConfig struct {
	Currency              string
	Locale                string
	TaxRate               float64
	FreeShippingThreshold int64
	FlatShippingFee       int64
}

// CartConfig controls cart state persistence.
type CartConfig struct {
	StateFile string
}

// CatalogConfig selects and parameterises the product catalog backend.
// Source is either "file" (YAML seed) or "firestore" (headless CMS).
type CatalogConfig struct {
	Source              string
	SeedFile            string
	FirestoreProjectID  string
	FirestoreCollection string
	EmulatorHost        string
}

// PSPConfig collects payment provider credentials.
type PSPConfig struct {
	StripeAPIKey string
	SuccessURL   string
	CancelURL    string
}

// CheckoutConfig controls the eligibility gate and payment sessions.
type CheckoutConfig struct {
	CaseSize   int
	SessionTTL time.Duration
}

// ValidationError reports configuration fields with missing or invalid values.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: missing or invalid fields: %s", strings.Join(e.fields, ", "))
}

func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "SHOP_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "SHOP_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SHOP_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SHOP_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Pricing: PricingConfig{
			Currency:              strings.ToUpper(stringWithDefault(lookup, "SHOP_PRICING_CURRENCY", defaultCurrency)),
			Locale:                stringWithDefault(lookup, "SHOP_PRICING_LOCALE", defaultLocale),
			TaxRate:               floatWithDefault(lookup, "SHOP_PRICING_TAX_RATE", defaultTaxRate),
			FreeShippingThreshold: int64WithDefault(lookup, "SHOP_PRICING_FREE_SHIPPING_THRESHOLD", defaultFreeShippingThreshold),
			FlatShippingFee:       int64WithDefault(lookup, "SHOP_PRICING_FLAT_SHIPPING_FEE", defaultFlatShippingFee),
		},
		Cart: CartConfig{
			StateFile: stringWithDefault(lookup, "SHOP_CART_STATE_FILE", defaultCartStateFile),
		},
		Catalog: CatalogConfig{
			Source:              strings.ToLower(stringWithDefault(lookup, "SHOP_CATALOG_SOURCE", defaultCatalogSource)),
			SeedFile:            stringWithDefault(lookup, "SHOP_CATALOG_SEED_FILE", defaultCatalogSeedFile),
			FirestoreProjectID:  stringWithDefault(lookup, "SHOP_CATALOG_FIRESTORE_PROJECT_ID", ""),
			FirestoreCollection: stringWithDefault(lookup, "SHOP_CATALOG_FIRESTORE_COLLECTION", defaultCatalogCollection),
			EmulatorHost:        stringWithDefault(lookup, "SHOP_CATALOG_FIRESTORE_EMULATOR_HOST", ""),
		},
		PSP: PSPConfig{
			StripeAPIKey: stringWithDefault(lookup, "SHOP_PSP_STRIPE_API_KEY", ""),
			SuccessURL:   stringWithDefault(lookup, "SHOP_PSP_SUCCESS_URL", ""),
			CancelURL:    stringWithDefault(lookup, "SHOP_PSP_CANCEL_URL", ""),
		},
		Checkout: CheckoutConfig{
			CaseSize:   intWithDefault(lookup, "SHOP_CHECKOUT_CASE_SIZE", defaultCaseSize),
			SessionTTL: durationWithDefault(lookup, "SHOP_CHECKOUT_SESSION_TTL", defaultSessionTTL),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if len(cfg.Pricing.Currency) != 3 {
		missing = append(missing, "Pricing.Currency")
	}
	if cfg.Pricing.TaxRate < 0 || cfg.Pricing.TaxRate >= 1 {
		missing = append(missing, "Pricing.TaxRate")
	}
	if cfg.Pricing.FreeShippingThreshold < 0 {
		missing = append(missing, "Pricing.FreeShippingThreshold")
	}
	if cfg.Pricing.FlatShippingFee < 0 {
		missing = append(missing, "Pricing.FlatShippingFee")
	}
	if strings.TrimSpace(cfg.Cart.StateFile) == "" {
		missing = append(missing, "Cart.StateFile")
	}
	switch cfg.Catalog.Source {
	case "file":
		if strings.TrimSpace(cfg.Catalog.SeedFile) == "" {
			missing = append(missing, "Catalog.SeedFile")
		}
	case "firestore":
		if strings.TrimSpace(cfg.Catalog.FirestoreProjectID) == "" {
			missing = append(missing, "Catalog.FirestoreProjectID")
		}
		if strings.TrimSpace(cfg.Catalog.FirestoreCollection) == "" {
			missing = append(missing, "Catalog.FirestoreCollection")
		}
	default:
		missing = append(missing, "Catalog.Source")
	}
	if cfg.Checkout.CaseSize <= 0 {
		missing = append(missing, "Checkout.CaseSize")
	}
	if cfg.Checkout.SessionTTL <= 0 {
		missing = append(missing, "Checkout.SessionTTL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
