package domain

import (
	"context"
	"time"
)

type FraudDecision string

const (
	FraudApprove FraudDecision = "approve"
	FraudReview  FraudDecision = "review"
	FraudBlock   FraudDecision = "block"
)

const (
	FraudReviewThreshold = 30
	FraudBlockThreshold  = 70
	MaxFraudScore        = 100
)

// DecisionForScore: <=30 approve, 31..70 review, >70 block.
func DecisionForScore(score int) FraudDecision {
	switch {
	case score > FraudBlockThreshold:
		return FraudBlock
	case score > FraudReviewThreshold:
		return FraudReview
	default:
		return FraudApprove
	}
}

func ClampFraudScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxFraudScore {
		return MaxFraudScore
	}
	return score
}

type FraudStage string

const (
	FraudStageConversion FraudStage = "conversion"
	FraudStagePayment    FraudStage = "payment"
)

// FraudSubject - кого и на каком этапе оцениваем
type FraudSubject struct {
	Stage           FraudStage
	ReferralCode    string
	ReferrerID      string
	RefereeID       string
	RefereeIdentity Identity
	CommissionID    string
}

// ActivitySnapshot - неизменяемый срез сигналов, по которому считается скор.
// Скоринг над снапшотом - чистая функция.
type ActivitySnapshot struct {
	Subject            FraudSubject
	ReferrerIdentity   Identity
	RecentClicks       int64
	ClickWindow        time.Duration
	RefereeRefunds     int64
	RefereeChargebacks int64
	// SharedDeviceMembers counts members other than the referrer and referee
	// whose signup fingerprint equals the referee's.
	SharedDeviceMembers int64
	CapturedAt          time.Time
}

type FraudAssessment struct {
	Score       int
	Decision    FraudDecision
	Reasons     []string
	Degraded    bool
	EvaluatedAt time.Time
}

// ApprovedDegraded - результат при отказе движка: пропускаем, но помечаем
func ApprovedDegraded(now time.Time, reason string) *FraudAssessment {
	return &FraudAssessment{
		Score:       0,
		Decision:    FraudApprove,
		Reasons:     []string{reason},
		Degraded:    true,
		EvaluatedAt: now,
	}
}

// FraudAssessor never fails: engine errors yield an approved, degraded assessment.
type FraudAssessor interface {
	Assess(ctx context.Context, subject FraudSubject) *FraudAssessment
}

type FraudRule struct {
	ID        string
	Name      string
	Type      string
	Config    map[string]interface{}
	IsActive  bool
	Priority  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type FraudAssessmentLog struct {
	ID           string
	Stage        FraudStage
	ReferralCode string
	ReferrerID   string
	RefereeID    string
	CommissionID string
	Score        int
	Decision     FraudDecision
	Reasons      []string
	Degraded     bool
	CheckedAt    time.Time
}

type FraudFlagFilter struct {
	Decision *FraudDecision
	Stage    FraudStage
	Since    *time.Time
	Limit    int
	Offset   int
}

type FraudActivityRepository interface {
	LoadSnapshot(ctx context.Context, subject FraudSubject, clickWindow time.Duration, now time.Time) (*ActivitySnapshot, error)
}

type FraudRuleRepository interface {
	GetRules(ctx context.Context, activeOnly bool) ([]*FraudRule, error)
	GetRuleByName(ctx context.Context, name string) (*FraudRule, error)
	CreateRule(ctx context.Context, rule *FraudRule) error
	UpdateRule(ctx context.Context, ruleID string, updates map[string]interface{}) error
}

type FraudAuditRepository interface {
	SaveAssessment(ctx context.Context, log *FraudAssessmentLog) error
	// ListFlags returns non-approved assessments unless filter.Decision narrows it.
	ListFlags(ctx context.Context, filter FraudFlagFilter) ([]*FraudAssessmentLog, error)
}
