package ledger

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/metrics"
	ledgerdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LedgerUsecase interface {
	Ingest(ctx context.Context, event *domain.PaymentEvent) (*ledgerdto.IngestResult, error)
	Release(ctx context.Context, commissionID string) (*domain.Commission, error)
	GetCommission(ctx context.Context, commissionID string) (*domain.Commission, error)
	ListCommissions(ctx context.Context, input *ledgerdto.ListCommissionsInput) (*ledgerdto.ListCommissionsOutput, error)
}

type Config struct {
	Policy      SplitPolicy
	SaleCeiling decimal.Decimal
	Currency    string
}

type DefaultLedgerUsecase struct {
	commissionRepo domain.CommissionRepository
	memberRepo     domain.MemberRepository
	fraud          domain.FraudAssessor
	cache          domain.StatsCache
	cfg            Config
	metrics        *metrics.LedgerMetrics
	logger         *zap.Logger
	security       *zap.Logger
	now            func() time.Time
}

func NewDefaultLedgerUsecase(
	commissionRepo domain.CommissionRepository,
	memberRepo domain.MemberRepository,
	fraud domain.FraudAssessor,
	cache domain.StatsCache,
	cfg Config,
	m *metrics.LedgerMetrics,
	log *zap.Logger,
) *DefaultLedgerUsecase {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &DefaultLedgerUsecase{
		commissionRepo: commissionRepo,
		memberRepo:     memberRepo,
		fraud:          fraud,
		cache:          cache,
		cfg:            cfg,
		metrics:        m,
		logger:         log.With(zap.String("component", "ledger")),
		security:       logger.Security(log),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (uc *DefaultLedgerUsecase) WithClock(now func() time.Time) *DefaultLedgerUsecase {
	uc.now = now
	return uc
}
