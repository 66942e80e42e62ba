package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/rules"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/strategies"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultClickWindow = time.Hour
	reasonDegraded     = "engine_unavailable"
	reasonRuleFailed   = "rule_unavailable:"
)

// ============= ОСНОВНОЙ ДВИЖОК АНТИФРОДА =============

// FraudEngine считает скор по активным правилам. Реализует domain.FraudAssessor:
// любая ошибка или паника превращается в approve с Degraded=true.
type FraudEngine struct {
	strategies map[string]strategies.FraudStrategy
	rules      domain.FraudRuleRepository
	activity   domain.FraudActivityRepository
	audit      domain.FraudAuditRepository
	logger     *zap.Logger
	metrics    *metrics.LedgerMetrics
	now        func() time.Time
}

func NewFraudEngine(
	ruleRepo domain.FraudRuleRepository,
	activity domain.FraudActivityRepository,
	audit domain.FraudAuditRepository,
	logger *zap.Logger,
	m *metrics.LedgerMetrics,
) *FraudEngine {
	return &FraudEngine{
		strategies: make(map[string]strategies.FraudStrategy),
		rules:      ruleRepo,
		activity:   activity,
		audit:      audit,
		logger:     logger,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewDefaultFraudEngine регистрирует все встроенные стратегии
func NewDefaultFraudEngine(
	ruleRepo domain.FraudRuleRepository,
	activity domain.FraudActivityRepository,
	audit domain.FraudAuditRepository,
	logger *zap.Logger,
	m *metrics.LedgerMetrics,
) *FraudEngine {
	e := NewFraudEngine(ruleRepo, activity, audit, logger, m)
	e.RegisterStrategy(strategies.NewSelfReferralStrategy())
	e.RegisterStrategy(strategies.NewClickVelocityStrategy())
	e.RegisterStrategy(strategies.NewChargebackHistoryStrategy())
	e.RegisterStrategy(strategies.NewSharedDeviceStrategy())
	return e
}

// RegisterStrategy регистрирует новую стратегию
func (e *FraudEngine) RegisterStrategy(strategy strategies.FraudStrategy) {
	e.strategies[strategy.Name()] = strategy
	e.logger.Debug("registered fraud strategy", zap.String("name", strategy.Name()))
}

// WithClock подменяет часы (для тестов и повторяемых прогонов)
func (e *FraudEngine) WithClock(now func() time.Time) *FraudEngine {
	e.now = now
	return e
}

// Score - чистая функция: снапшот + правила -> оценка. Сумма баллов
// ограничена 0..100, причины отсортированы. Сломанное правило пропускается,
// оценка помечается Degraded, остальные сигналы сохраняются.
func (e *FraudEngine) Score(snapshot *domain.ActivitySnapshot, activeRules []*domain.FraudRule) (*domain.FraudAssessment, error) {
	total := 0
	reasons := make([]string, 0)
	degraded := false

	for _, rule := range activeRules {
		if !rule.IsActive {
			continue
		}
		strategy, exists := e.strategies[rule.Type]
		if !exists {
			e.logger.Warn("strategy not found for rule", zap.String("rule_type", rule.Type), zap.String("rule_name", rule.Name))
			continue
		}

		result, err := checkRule(strategy, snapshot, rule)
		if err != nil {
			e.logger.Error("fraud rule failed, skipping",
				zap.String("rule_name", rule.Name),
				zap.String("rule_type", rule.Type),
				zap.Error(err),
			)
			degraded = true
			reasons = append(reasons, reasonRuleFailed+rule.Type)
			continue
		}
		if !result.Triggered() {
			continue
		}
		e.logger.Debug("fraud rule triggered",
			zap.String("rule_name", rule.Name),
			zap.Int("points", result.Points),
			zap.Strings("reasons", result.Reasons),
		)
		total += result.Points
		reasons = append(reasons, result.Reasons...)
	}

	sort.Strings(reasons)
	score := domain.ClampFraudScore(total)
	return &domain.FraudAssessment{
		Score:       score,
		Decision:    domain.DecisionForScore(score),
		Reasons:     reasons,
		Degraded:    degraded,
		EvaluatedAt: snapshot.CapturedAt,
	}, nil
}

// checkRule изолирует ошибку или панику одной стратегии
func checkRule(strategy strategies.FraudStrategy, snapshot *domain.ActivitySnapshot, rule *domain.FraudRule) (result *strategies.CheckResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("strategy %s panic: %v", strategy.Name(), r)
		}
	}()

	result, err = strategy.Check(snapshot, rule)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("strategy %s returned no result", strategy.Name())
	}
	if result.Points < 0 {
		return nil, fmt.Errorf("rule %s produced negative points", rule.Name)
	}
	return result, nil
}

func (e *FraudEngine) Assess(ctx context.Context, subject domain.FraudSubject) *domain.FraudAssessment {
	now := e.now()

	assessment, err := e.evaluate(ctx, subject, now)
	if err != nil {
		e.logger.Error("fraud engine failed, approving without assessment",
			zap.String("stage", string(subject.Stage)),
			zap.String("referral_code", subject.ReferralCode),
			zap.String("referee_id", subject.RefereeID),
			zap.Error(err),
		)
		assessment = domain.ApprovedDegraded(now, reasonDegraded)
	}

	e.metrics.RecordFraudAssessment(string(subject.Stage), string(assessment.Decision), assessment.Score, assessment.Degraded)
	e.saveAuditLog(ctx, subject, assessment)
	return assessment
}

func (e *FraudEngine) evaluate(ctx context.Context, subject domain.FraudSubject, now time.Time) (assessment *domain.FraudAssessment, err error) {
	defer func() {
		if r := recover(); r != nil {
			assessment = nil
			err = fmt.Errorf("fraud engine panic: %v", r)
		}
	}()

	activeRules, err := e.rules.GetRules(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fraud rules: %w", err)
	}

	snapshot, err := e.activity.LoadSnapshot(ctx, subject, clickWindow(activeRules), now)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity snapshot: %w", err)
	}

	return e.Score(snapshot, activeRules)
}

// saveAuditLog сохраняет результат проверки для аудита
func (e *FraudEngine) saveAuditLog(ctx context.Context, subject domain.FraudSubject, a *domain.FraudAssessment) {
	if e.audit == nil {
		return
	}
	entry := &domain.FraudAssessmentLog{
		ID:           uuid.New().String(),
		Stage:        subject.Stage,
		ReferralCode: subject.ReferralCode,
		ReferrerID:   subject.ReferrerID,
		RefereeID:    subject.RefereeID,
		CommissionID: subject.CommissionID,
		Score:        a.Score,
		Decision:     a.Decision,
		Reasons:      a.Reasons,
		Degraded:     a.Degraded,
		CheckedAt:    a.EvaluatedAt,
	}
	if err := e.audit.SaveAssessment(ctx, entry); err != nil {
		e.logger.Error("failed to save fraud audit log", zap.Error(err))
	}
}

// clickWindow берёт окно из активного правила click_velocity
func clickWindow(activeRules []*domain.FraudRule) time.Duration {
	for _, rule := range activeRules {
		if rule.Type != rules.TypeClickVelocity || !rule.IsActive {
			continue
		}
		var cfg rules.ClickVelocityConfig
		if err := rules.Decode(rule.Config, &cfg); err == nil {
			return cfg.TimeWindow
		}
	}
	return defaultClickWindow
}
