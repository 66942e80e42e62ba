package grpcapi

import (
	"context"
	"errors"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase"
	ledgerdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/ledger"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/ledger"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type LedgerReadHandler struct {
	statsUsecase  usecase.StatsUsecase
	ledgerUsecase ledger.LedgerUsecase
	fraudUsecase  usecase.FraudUsecase
	logger        *zap.Logger
}

func NewLedgerReadHandler(stats usecase.StatsUsecase, ledgerUsecase ledger.LedgerUsecase, fraud usecase.FraudUsecase, logger *zap.Logger) *LedgerReadHandler {
	return &LedgerReadHandler{
		statsUsecase:  stats,
		ledgerUsecase: ledgerUsecase,
		fraudUsecase:  fraud,
		logger:        logger.With(zap.String("component", "grpc")),
	}
}

func (h *LedgerReadHandler) GetMemberStats(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	memberID := stringField(r, "memberId")
	if memberID == "" {
		return nil, status.Error(codes.InvalidArgument, "memberId is required")
	}
	stats, err := h.statsUsecase.GetMemberStats(ctx, memberID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return structOrInternal(memberStatsToMap(stats))
}

func (h *LedgerReadHandler) ListCommissions(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	out, err := h.ledgerUsecase.ListCommissions(ctx, &ledgerdto.ListCommissionsInput{
		MemberID: stringField(r, "memberId"),
		Status:   stringField(r, "status"),
		Limit:    intField(r, "limit"),
		Offset:   intField(r, "offset"),
	})
	if err != nil {
		return nil, h.toStatus(err)
	}

	items := make([]interface{}, 0, len(out.Commissions))
	for _, c := range out.Commissions {
		items = append(items, commissionToMap(c))
	}
	return structOrInternal(map[string]interface{}{
		"commissions": items,
		"total":       float64(out.Total),
	})
}

func (h *LedgerReadHandler) ListFraudFlags(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	filter := domain.FraudFlagFilter{
		Stage:  domain.FraudStage(stringField(r, "stage")),
		Limit:  intField(r, "limit"),
		Offset: intField(r, "offset"),
	}
	if d := stringField(r, "decision"); d != "" {
		decision := domain.FraudDecision(d)
		filter.Decision = &decision
	}

	flags, err := h.fraudUsecase.ListFlags(ctx, filter)
	if err != nil {
		return nil, h.toStatus(err)
	}
	items := make([]interface{}, 0, len(flags))
	for _, f := range flags {
		items = append(items, fraudFlagToMap(f))
	}
	return structOrInternal(map[string]interface{}{"flags": items})
}

func (h *LedgerReadHandler) toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		h.logger.Error("grpc request failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

func structOrInternal(m map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}
