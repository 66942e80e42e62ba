package ledgerdto

import "github.com/LavaJover/shvark-affiliate-ledger/internal/domain"

// IngestResult - итог обработки платёжного события
type IngestResult struct {
	Commission *domain.Commission
	// Duplicate - событие с этим externalPaymentId уже создавало комиссию
	Duplicate bool
	// Transitioned - событие сдвинуло статус комиссии
	Transitioned bool
	Fraud        *domain.FraudAssessment
}

type ListCommissionsOutput struct {
	Commissions []*domain.Commission
	Total       int64
}
