package setup

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/config"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config       *config.LedgerConfig
	Logger       *zap.Logger
	DB           *gorm.DB
	Registry     *prometheus.Registry
	Metrics      *metrics.LedgerMetrics
	Publisher    *kafka.KafkaPublisher
	Subscriber   *kafka.KafkaSubscriber
	Repositories *Repositories
}

type Repositories struct {
	MemberRepo         domain.MemberRepository
	CreatorRepo        domain.CreatorRepository
	ClickRepo          domain.AttributionRepository
	CommissionRepo     domain.CommissionRepository
	FraudRepo          *repository.DefaultFraudRepository
	OutboxRepo         domain.OutboxRepository
	ReconciliationRepo domain.ReconciliationRepository
}

// InitializeDependencies открывает БД, накатывает миграции и поднимает kafka,
// если она сконфигурирована. Без kafka outbox копится в таблице.
func InitializeDependencies(cfg *config.LedgerConfig, log *zap.Logger) (*Dependencies, error) {
	db, err := postgres.InitDB(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.LedgerDB.AutoMigrate {
		if err := migrate.RunMigrations(db, cfg.LedgerDB.MigrationsPath, log); err != nil {
			_ = postgres.Close(db)
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := &Dependencies{
		Config:       cfg,
		Logger:       log,
		DB:           db,
		Registry:     registry,
		Metrics:      metrics.NewLedgerMetrics(registry),
		Repositories: initRepositories(db),
	}

	if cfg.KafkaService.Enabled() {
		kafkaCfg := kafkaConfig(cfg)
		pub, err := kafka.NewKafkaPublisher(kafkaCfg)
		if err != nil {
			_ = postgres.Close(db)
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		deps.Publisher = pub
		deps.Subscriber = kafka.NewKafkaSubscriber(kafkaCfg, log.With(zap.String("component", "kafka")))
	} else {
		log.Warn("kafka is not configured, outbox relay and payment consumer are disabled")
	}

	return deps, nil
}

func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		MemberRepo:         repository.NewDefaultMemberRepository(db),
		CreatorRepo:        repository.NewDefaultCreatorRepository(db),
		ClickRepo:          repository.NewDefaultAttributionRepository(db),
		CommissionRepo:     repository.NewDefaultCommissionRepository(db),
		FraudRepo:          repository.NewDefaultFraudRepository(db),
		OutboxRepo:         repository.NewDefaultOutboxRepository(db),
		ReconciliationRepo: repository.NewDefaultReconciliationRepository(db),
	}
}

func kafkaConfig(cfg *config.LedgerConfig) kafka.KafkaConfig {
	return kafka.KafkaConfig{
		Brokers:    cfg.KafkaBrokers(),
		ClientID:   cfg.KafkaService.ClientID,
		Username:   cfg.KafkaService.Username,
		Password:   cfg.KafkaService.Password,
		Mechanism:  cfg.KafkaService.Mechanism,
		TLSEnabled: cfg.KafkaService.TLSEnabled,
	}
}

// Ping - проверка для /health
func (d *Dependencies) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Dependencies) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Warn("failed to close kafka publisher", zap.Error(err))
		}
	}
	if err := postgres.Close(d.DB); err != nil {
		d.Logger.Warn("failed to close db", zap.Error(err))
	}
}
