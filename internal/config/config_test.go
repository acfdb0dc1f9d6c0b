package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if !cfg.Presale.MinPurchase.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Expected default min purchase 5000, got %s", cfg.Presale.MinPurchase.String())
	}
	if !cfg.Presale.MaxPurchase.Equal(decimal.NewFromInt(200000)) {
		t.Errorf("Expected default max purchase 200000, got %s", cfg.Presale.MaxPurchase.String())
	}
	if cfg.Presale.TokenScale != 8 {
		t.Errorf("Expected default token scale 8, got %d", cfg.Presale.TokenScale)
	}
	if cfg.Webhook.InsecureSkipVerify {
		t.Error("Signature verification must be on by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("PRESALE_MIN_PURCHASE", "100")
	t.Setenv("PRESALE_MAX_PURCHASE", "1000.50")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "10s")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Expected addr :9090, got %s", cfg.Server.Addr)
	}
	maxPurchase, _ := decimal.NewFromString("1000.50")
	if !cfg.Presale.MaxPurchase.Equal(maxPurchase) {
		t.Errorf("Expected max purchase 1000.50, got %s", cfg.Presale.MaxPurchase.String())
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected shutdown timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("Unexpected allowed origins: %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_RejectsInvertedPurchaseBounds(t *testing.T) {
	t.Setenv("PRESALE_MIN_PURCHASE", "1000")
	t.Setenv("PRESALE_MAX_PURCHASE", "500")

	if _, err := Load(); err == nil {
		t.Error("Expected error when max purchase is below min purchase")
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("PRESALE_MIN_PURCHASE", "not-a-number")
	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid decimal")
	}
}
