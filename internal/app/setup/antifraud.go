package setup

import (
	"context"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/engine"
	"go.uber.org/zap"
)

type AntiFraudSystem struct {
	Engine      *engine.FraudEngine
	RuleManager *engine.RuleManager
}

func InitializeAntiFraud(ctx context.Context, deps *Dependencies) (*AntiFraudSystem, error) {
	fraudRepo := deps.Repositories.FraudRepo
	fraudEngine := engine.NewDefaultFraudEngine(
		fraudRepo,
		fraudRepo,
		fraudRepo,
		deps.Logger.With(zap.String("component", "antifraud")),
		deps.Metrics,
	)

	ruleManager := engine.NewRuleManager(fraudRepo)
	if deps.Config.Fraud.SeedDefaultRules {
		created, err := ruleManager.EnsureDefaults(ctx)
		if err != nil {
			return nil, err
		}
		if created > 0 {
			deps.Logger.Info("seeded default fraud rules", zap.Int("created", created))
		}
	}

	return &AntiFraudSystem{
		Engine:      fraudEngine,
		RuleManager: ruleManager,
	}, nil
}
