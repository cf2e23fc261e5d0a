package config

import (
	"flag"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultServerAddress   = ":8080"
	defaultDatabaseDSN     = ""
	defaultLogLevel        = "debug"
	defaultTokenKey        = "f53ac685bbceebd75043e6be2e06ee07"
	defaultCurrency        = "inr"
	defaultTaxRate         = "0.02"
	defaultPendingOrderTTL = 24 * time.Hour
	defaultNotifyWorkers   = 4
	defaultNotifyQueueSize = 1024
	defaultSMTPPort        = 587
)

type Config struct {
	ServerAddr  string
	DatabaseDSN string
	LogLevel    string
	// AuthTokenKey is the hex encoded key auth tokens are signed with.
	AuthTokenKey string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	TaxRate             decimal.Decimal

	SellerEmail        string
	SellerPasswordHash string
	AllowGuestOnline   bool
	PendingOrderTTL    time.Duration

	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	SMTPFrom        string
	NotifyQueueURL  string
	NotifyWorkers   int
	NotifyQueueSize int
}

var (
	once      sync.Once
	singleton *Config
	loadErr   error
)

// New returns new Config. It parses command line and environment variables only once.
func New() (*Config, error) {
	once.Do(func() {
		cfg := Config{}
		var taxRate string

		// initialize flags
		flag.StringVar(&cfg.ServerAddr, "a", defaultServerAddress, "server address")
		flag.StringVar(&cfg.DatabaseDSN, "d", defaultDatabaseDSN, "database DSN, in-memory store if empty")
		flag.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")
		flag.StringVar(&cfg.AuthTokenKey, "k", defaultTokenKey, "hex encoded auth token key")
		flag.StringVar(&cfg.Currency, "c", defaultCurrency, "checkout currency")
		flag.StringVar(&taxRate, "t", defaultTaxRate, "tax rate")
		flag.BoolVar(&cfg.AllowGuestOnline, "g", true, "allow guests to pay online")
		flag.DurationVar(&cfg.PendingOrderTTL, "p", defaultPendingOrderTTL, "cancel unpaid online orders after this long, 0 disables")

		flag.Parse()

		cfg.SMTPPort = defaultSMTPPort
		cfg.NotifyWorkers = defaultNotifyWorkers
		cfg.NotifyQueueSize = defaultNotifyQueueSize

		// if environment variable is set, then using it
		if v := os.Getenv("RUN_ADDRESS"); v != "" {
			cfg.ServerAddr = v
		}
		if v := os.Getenv("DATABASE_URI"); v != "" {
			cfg.DatabaseDSN = v
		}
		if v := os.Getenv("LOG_LEVEL"); v != "" {
			cfg.LogLevel = v
		}
		if v := os.Getenv("AUTH_TOKEN_KEY"); v != "" {
			cfg.AuthTokenKey = v
		}
		if v := os.Getenv("CURRENCY"); v != "" {
			cfg.Currency = v
		}
		if v := os.Getenv("TAX_RATE"); v != "" {
			taxRate = v
		}
		if v := os.Getenv("ALLOW_GUEST_ONLINE"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				cfg.AllowGuestOnline = b
			}
		}
		if v := os.Getenv("PENDING_ORDER_TTL"); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				cfg.PendingOrderTTL = d
			}
		}
		if v := os.Getenv("SMTP_PORT"); v != "" {
			if p, err := strconv.Atoi(v); err == nil {
				cfg.SMTPPort = p
			}
		}
		if v := os.Getenv("NOTIFY_WORKERS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				cfg.NotifyWorkers = n
			}
		}
		if v := os.Getenv("NOTIFY_QUEUE_SIZE"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				cfg.NotifyQueueSize = n
			}
		}

		cfg.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
		cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
		cfg.SellerEmail = os.Getenv("SELLER_EMAIL")
		cfg.SellerPasswordHash = os.Getenv("SELLER_PASSWORD_HASH")
		cfg.SMTPHost = os.Getenv("SMTP_HOST")
		cfg.SMTPUser = os.Getenv("SMTP_USER")
		cfg.SMTPPassword = os.Getenv("SMTP_PASS")
		cfg.SMTPFrom = os.Getenv("SMTP_FROM")
		cfg.NotifyQueueURL = os.Getenv("NOTIFY_QUEUE_URL")

		rate, err := decimal.NewFromString(taxRate)
		if err != nil {
			loadErr = err
			return
		}
		cfg.TaxRate = rate

		singleton = &cfg
	})

	return singleton, loadErr
}
