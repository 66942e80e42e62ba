package ledger

import (
	"context"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	ledgerdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/ledger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func (uc *DefaultLedgerUsecase) GetCommission(ctx context.Context, commissionID string) (*domain.Commission, error) {
	return uc.commissionRepo.GetByID(ctx, commissionID)
}

func (uc *DefaultLedgerUsecase) ListCommissions(ctx context.Context, input *ledgerdto.ListCommissionsInput) (*ledgerdto.ListCommissionsOutput, error) {
	filter := domain.CommissionFilter{
		MemberID: input.MemberID,
		Limit:    ClampLimit(input.Limit),
		Offset:   input.Offset,
	}
	if input.Offset < 0 {
		return nil, domain.NewValidationError("offset", "must not be negative")
	}
	if input.Status != "" {
		status := domain.CommissionStatus(input.Status)
		switch status {
		case domain.CommissionPending, domain.CommissionPaid, domain.CommissionHeld,
			domain.CommissionFailed, domain.CommissionRefunded, domain.CommissionChargedBack:
			filter.Status = status
		default:
			return nil, domain.NewValidationError("status", "unknown commission status")
		}
	}

	commissions, total, err := uc.commissionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ledgerdto.ListCommissionsOutput{Commissions: commissions, Total: total}, nil
}

// ClampLimit приводит размер страницы к 1..200, 0 - значение по умолчанию
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}
