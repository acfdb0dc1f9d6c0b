package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Presale  PresaleConfig
	Webhook  WebhookConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path               string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	PingTimeout        time.Duration
	CreateDemoAccounts bool
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// PresaleConfig holds sale-ledger settings
type PresaleConfig struct {
	// MinPurchase and MaxPurchase bound a single purchase in fiat units.
	MinPurchase decimal.Decimal
	MaxPurchase decimal.Decimal
	// TokenScale is the number of decimal places token amounts are truncated
	// to. Truncation (round toward zero) can never over-credit a buyer.
	TokenScale int32
	// FiatCurrency and TokenSymbol label transaction records.
	FiatCurrency string
	TokenSymbol  string
	// StagesFile is an optional YAML file with stage definitions to seed.
	StagesFile string
}

// WebhookConfig holds payment-webhook verification settings
type WebhookConfig struct {
	// Secret is the shared HMAC secret for webhook signatures. An empty
	// secret is a startup error unless InsecureSkipVerify is set.
	Secret             string
	InsecureSkipVerify bool
}
