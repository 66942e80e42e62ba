package setup

import (
	"fmt"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/cache"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/identity"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/webhook"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/ledger"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/reconciliation"
)

type UseCases struct {
	Hasher         *identity.Hasher
	StatsCache     *cache.StatsCache
	Attribution    *usecase.DefaultAttributionUsecase
	Conversion     *usecase.DefaultConversionUsecase
	Stats          *usecase.DefaultStatsUsecase
	Fraud          *usecase.DefaultFraudUsecase
	Ledger         *ledger.DefaultLedgerUsecase
	Payments       *ledger.PaymentProcessor
	Reconciliation *reconciliation.DefaultValidator
	// OutboxRelay - nil без kafka
	OutboxRelay *usecase.OutboxRelay
}

func InitializeUseCases(deps *Dependencies, fraud *AntiFraudSystem) (*UseCases, error) {
	cfg := deps.Config
	repos := deps.Repositories

	hasher, err := identity.NewHasher(cfg.Identity.HashKey)
	if err != nil {
		return nil, fmt.Errorf("identity hasher: %w", err)
	}
	verifier, err := webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.VerifyTimeout)
	if err != nil {
		return nil, fmt.Errorf("webhook verifier: %w", err)
	}
	codes, err := usecase.NewReferralCodeGenerator()
	if err != nil {
		return nil, fmt.Errorf("referral codes: %w", err)
	}
	policy, err := ledger.ParseSplitPolicy(cfg.Ledger.MemberRate, cfg.Ledger.CreatorRate)
	if err != nil {
		return nil, fmt.Errorf("split policy: %w", err)
	}

	statsCache := cache.NewStatsCache(cfg.Cache.Size, cfg.Cache.TTL)

	attributionUsecase := usecase.NewDefaultAttributionUsecase(
		repos.ClickRepo,
		repos.MemberRepo,
		repos.CreatorRepo,
		cfg.Attribution.Window,
		deps.Metrics,
		deps.Logger,
	)

	conversionUsecase := usecase.NewDefaultConversionUsecase(
		repos.MemberRepo,
		repos.CreatorRepo,
		repos.ClickRepo,
		attributionUsecase,
		hasher,
		fraud.Engine,
		statsCache,
		codes,
		deps.Metrics,
		deps.Logger,
	)

	ledgerUsecase := ledger.NewDefaultLedgerUsecase(
		repos.CommissionRepo,
		repos.MemberRepo,
		fraud.Engine,
		statsCache,
		ledger.Config{
			Policy:      policy,
			SaleCeiling: cfg.SaleCeilingAmount(),
			Currency:    cfg.Ledger.Currency,
		},
		deps.Metrics,
		deps.Logger,
	)

	validator := reconciliation.NewDefaultValidator(
		repos.ReconciliationRepo,
		statsCache,
		deps.Metrics,
		deps.Logger,
		cfg.Reconciliation.Workers,
		cfg.Reconciliation.PageSize,
	)

	uc := &UseCases{
		Hasher:         hasher,
		StatsCache:     statsCache,
		Attribution:    attributionUsecase,
		Conversion:     conversionUsecase,
		Stats:          usecase.NewDefaultStatsUsecase(repos.MemberRepo, statsCache),
		Fraud:          usecase.NewDefaultFraudUsecase(repos.FraudRepo, fraud.RuleManager),
		Ledger:         ledgerUsecase,
		Payments:       ledger.NewPaymentProcessor(verifier, ledgerUsecase, deps.Metrics, deps.Logger),
		Reconciliation: validator,
	}
	if deps.Publisher != nil {
		uc.OutboxRelay = usecase.NewOutboxRelay(repos.OutboxRepo, deps.Publisher, cfg.Outbox.BatchSize, deps.Metrics, deps.Logger)
	}
	return uc, nil
}
