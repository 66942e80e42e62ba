package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

// ConfigPathEnv - переменная с путём к YAML-конфигу
const ConfigPathEnv = "LEDGER_CONFIG_PATH"

type LedgerConfig struct {
	Env            string `yaml:"env" env:"LEDGER_ENV" env-default:"local"`
	HTTPServer     `yaml:"http_server"`
	GRPCServer     `yaml:"grpc_server"`
	LedgerDB       `yaml:"ledger_db"`
	LogConfig      `yaml:"log_config"`
	KafkaService   `yaml:"kafka-service"`
	Attribution    `yaml:"attribution"`
	Ledger         `yaml:"ledger"`
	Webhook        `yaml:"webhook"`
	Identity       `yaml:"identity"`
	Fraud          `yaml:"fraud"`
	Reconciliation `yaml:"reconciliation"`
	Outbox         `yaml:"outbox"`
	Cache          `yaml:"cache"`
	Auth           `yaml:"auth"`
}

type HTTPServer struct {
	Host         string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"10s"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"9090"`
}

type LedgerDB struct {
	Dsn             string        `yaml:"dsn" env:"LEDGER_DB_DSN" env-required:"true"`
	MigrationsPath  string        `yaml:"migrations_path" env-default:"./migrations"`
	AutoMigrate     bool          `yaml:"auto_migrate" env-default:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"20"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"30m"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format"`
	LogOutput string `yaml:"log_output" env-default:"stdout"`
}

type KafkaService struct {
	Host          string `yaml:"host" env:"KAFKA_HOST"`
	Port          string `yaml:"port" env:"KAFKA_PORT"`
	ClientID      string `yaml:"client_id" env-default:"affiliate-ledger"`
	Username      string `yaml:"username" env:"KAFKA_USERNAME"`
	Password      string `yaml:"password" env:"KAFKA_PASSWORD"`
	Mechanism     string `yaml:"mechanism" env:"KAFKA_MECHANISM"`
	TLSEnabled    bool   `yaml:"tls_enabled" env:"KAFKA_TLS_ENABLED"`
	ConsumerGroup string `yaml:"consumer_group" env-default:"affiliate-ledger"`
}

func (k KafkaService) Enabled() bool {
	return k.Host != "" && k.Port != ""
}

type Attribution struct {
	Window       time.Duration `yaml:"window" env-default:"720h"`
	CookieName   string        `yaml:"cookie_name" env-default:"ref_code"`
	CookieDomain string        `yaml:"cookie_domain"`
	CookieSecure bool          `yaml:"cookie_secure" env-default:"true"`
	FallbackURL  string        `yaml:"fallback_url" env-default:"/"`
}

type Ledger struct {
	SaleCeiling string `yaml:"sale_ceiling" env-default:"100000.00"`
	Currency    string `yaml:"currency" env-default:"USD"`
	MemberRate  string `yaml:"member_rate" env-default:"0.10"`
	CreatorRate string `yaml:"creator_rate" env-default:"0.70"`
}

type Webhook struct {
	Secret        string        `yaml:"secret" env:"WEBHOOK_SECRET" env-required:"true"`
	VerifyTimeout time.Duration `yaml:"verify_timeout" env-default:"2s"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" env-default:"65536"`
}

type Identity struct {
	HashKey string `yaml:"hash_key" env:"IDENTITY_HASH_KEY" env-required:"true"`
}

type Fraud struct {
	SeedDefaultRules bool `yaml:"seed_default_rules" env-default:"true"`
}

type Reconciliation struct {
	Interval time.Duration `yaml:"interval" env-default:"1h"`
	Fix      bool          `yaml:"fix" env-default:"false"`
	Workers  int           `yaml:"workers" env-default:"4"`
	PageSize int           `yaml:"page_size" env-default:"500"`
}

type Outbox struct {
	Interval  time.Duration `yaml:"interval" env-default:"2s"`
	BatchSize int           `yaml:"batch_size" env-default:"100"`
}

type Cache struct {
	TTL  time.Duration `yaml:"ttl" env-default:"30s"`
	Size int           `yaml:"size" env-default:"10000"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Issuer    string `yaml:"issuer" env-default:"shvark"`
}

// Load reads YAML at path and overlays environment variables.
func Load(path string) (*LedgerConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	var cfg LedgerConfig
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *LedgerConfig) Validate() error {
	var errs []error

	ceiling, err := decimal.NewFromString(c.Ledger.SaleCeiling)
	if err != nil || !ceiling.IsPositive() {
		errs = append(errs, fmt.Errorf("ledger.sale_ceiling must be a positive decimal, got %q", c.Ledger.SaleCeiling))
	}
	memberRate, err1 := decimal.NewFromString(c.Ledger.MemberRate)
	creatorRate, err2 := decimal.NewFromString(c.Ledger.CreatorRate)
	if err1 != nil || err2 != nil || memberRate.IsNegative() || creatorRate.IsNegative() ||
		memberRate.Add(creatorRate).GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, errors.New("ledger.member_rate and ledger.creator_rate must be non-negative and sum to at most 1"))
	}
	if len(c.Identity.HashKey) < 16 || len(c.Identity.HashKey) > 64 {
		errs = append(errs, errors.New("identity.hash_key must be 16..64 bytes"))
	}
	if c.Attribution.Window <= 0 {
		errs = append(errs, errors.New("attribution.window must be positive"))
	}
	if c.Webhook.VerifyTimeout <= 0 {
		errs = append(errs, errors.New("webhook.verify_timeout must be positive"))
	}
	if c.Reconciliation.Workers <= 0 || c.Reconciliation.PageSize <= 0 {
		errs = append(errs, errors.New("reconciliation.workers and reconciliation.page_size must be positive"))
	}
	return errors.Join(errs...)
}

func (c *LedgerConfig) SaleCeilingAmount() decimal.Decimal {
	return decimal.RequireFromString(c.Ledger.SaleCeiling)
}

func (c *LedgerConfig) KafkaBrokers() []string {
	return []string{fmt.Sprintf("%s:%s", c.KafkaService.Host, c.KafkaService.Port)}
}
