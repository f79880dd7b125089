package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Pricing.Currency != "EUR" {
		t.Errorf("expected default currency EUR, got %s", cfg.Pricing.Currency)
	}
	if cfg.Pricing.Locale != "de-DE" {
		t.Errorf("expected default locale de-DE, got %s", cfg.Pricing.Locale)
	}
	if cfg.Pricing.TaxRate != defaultTaxRate {
		t.Errorf("unexpected default tax rate: %v", cfg.Pricing.TaxRate)
	}
	if cfg.Pricing.FreeShippingThreshold != defaultFreeShippingThreshold {
		t.Errorf("unexpected default free shipping threshold: %d", cfg.Pricing.FreeShippingThreshold)
	}
	if cfg.Cart.StateFile != defaultCartStateFile {
		t.Errorf("unexpected default cart state file: %s", cfg.Cart.StateFile)
	}
	if cfg.Catalog.Source != "file" {
		t.Errorf("expected default catalog source file, got %s", cfg.Catalog.Source)
	}
	if cfg.Checkout.CaseSize != defaultCaseSize {
		t.Errorf("unexpected default case size: %d", cfg.Checkout.CaseSize)
	}
	if cfg.Checkout.SessionTTL != defaultSessionTTL {
		t.Errorf("unexpected default session ttl: %s", cfg.Checkout.SessionTTL)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"SHOP_SERVER_PORT":                     "9090",
		"SHOP_SERVER_READ_TIMEOUT":             "20s",
		"SHOP_SERVER_IDLE_TIMEOUT":             "2m",
		"SHOP_PRICING_CURRENCY":                "chf",
		"SHOP_PRICING_LOCALE":                  "de-CH",
		"SHOP_PRICING_TAX_RATE":                "0.081",
		"SHOP_PRICING_FREE_SHIPPING_THRESHOLD": "10000",
		"SHOP_PRICING_FLAT_SHIPPING_FEE":       "900",
		"SHOP_CART_STATE_FILE":                 "/var/lib/shop/cart.json",
		"SHOP_CATALOG_SOURCE":                  "firestore",
		"SHOP_CATALOG_FIRESTORE_PROJECT_ID":    "shop-prod",
		"SHOP_CATALOG_FIRESTORE_COLLECTION":    "wines",
		"SHOP_PSP_STRIPE_API_KEY":              "sk_test_123",
		"SHOP_PSP_SUCCESS_URL":                 "https://shop.example.com/success",
		"SHOP_PSP_CANCEL_URL":                  "https://shop.example.com/cart",
		"SHOP_CHECKOUT_CASE_SIZE":              "12",
		"SHOP_CHECKOUT_SESSION_TTL":            "45m",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Pricing.Currency != "CHF" {
		t.Errorf("expected currency upper-cased to CHF, got %s", cfg.Pricing.Currency)
	}
	if cfg.Pricing.TaxRate != 0.081 {
		t.Errorf("unexpected tax rate %v", cfg.Pricing.TaxRate)
	}
	if cfg.Pricing.FreeShippingThreshold != 10000 {
		t.Errorf("unexpected threshold %d", cfg.Pricing.FreeShippingThreshold)
	}
	if cfg.Catalog.Source != "firestore" {
		t.Errorf("unexpected catalog source %s", cfg.Catalog.Source)
	}
	if cfg.Catalog.FirestoreProjectID != "shop-prod" {
		t.Errorf("unexpected firestore project %s", cfg.Catalog.FirestoreProjectID)
	}
	if cfg.PSP.StripeAPIKey != "sk_test_123" {
		t.Errorf("unexpected stripe key %s", cfg.PSP.StripeAPIKey)
	}
	if cfg.Checkout.CaseSize != 12 {
		t.Errorf("unexpected case size %d", cfg.Checkout.CaseSize)
	}
	if cfg.Checkout.SessionTTL != 45*time.Minute {
		t.Errorf("unexpected session ttl %s", cfg.Checkout.SessionTTL)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "SHOP_SERVER_PORT=7070\nSHOP_PRICING_CURRENCY=GBP\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Pricing.Currency != "GBP" {
		t.Errorf("expected currency from dotenv, got %s", cfg.Pricing.Currency)
	}
}

func TestLoadEnvMapOverridesDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	if err := os.WriteFile(envPath, []byte("SHOP_SERVER_PORT=7070\n"), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(WithEnvFile(envPath), WithoutSystemEnv(), WithEnvMap(map[string]string{"SHOP_SERVER_PORT": "6060"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("explicit env map must win over dotenv, got %s", cfg.Server.Port)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{
			name:  "tax rate above one",
			env:   map[string]string{"SHOP_PRICING_TAX_RATE": "1.5"},
			field: "Pricing.TaxRate",
		},
		{
			name:  "unknown catalog source",
			env:   map[string]string{"SHOP_CATALOG_SOURCE": "mongo"},
			field: "Catalog.Source",
		},
		{
			name:  "firestore source without project",
			env:   map[string]string{"SHOP_CATALOG_SOURCE": "firestore"},
			field: "Catalog.FirestoreProjectID",
		},
		{
			name:  "non-positive case size",
			env:   map[string]string{"SHOP_CHECKOUT_CASE_SIZE": "0"},
			field: "Checkout.CaseSize",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(WithEnvMap(tc.env), WithoutSystemEnv(), WithEnvFile(""))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			found := false
			for _, field := range verr.Fields() {
				if field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected field %s in %v", tc.field, verr.Fields())
			}
		})
	}
}
