package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	ledgerRequest "github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/dto/ledger/request"
	ledgerResponse "github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/dto/ledger/response"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/reconciliation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) releaseCommission(c *gin.Context) {
	commission, err := h.deps.Ledger.Release(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.log.Info("commission released by admin",
		zap.String("commission_id", commission.ID),
		zap.String("status", string(commission.Status)),
	)
	c.JSON(http.StatusOK, ledgerResponse.NewCommissionResponse(commission))
}

func (h *Handler) fraudFlags(c *gin.Context) {
	var query ledgerRequest.ListFlagsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.badRequest(c, err)
		return
	}

	filter := domain.FraudFlagFilter{
		Stage:  domain.FraudStage(query.Stage),
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if query.Decision != "" {
		decision := domain.FraudDecision(query.Decision)
		switch decision {
		case domain.FraudApprove, domain.FraudReview, domain.FraudBlock:
			filter.Decision = &decision
		default:
			h.writeError(c, domain.NewValidationError("decision", "expected approve, review or block"))
			return
		}
	}
	if query.Since != "" {
		since, err := time.Parse(time.RFC3339, query.Since)
		if err != nil {
			h.writeError(c, domain.NewValidationError("since", "expected RFC3339 timestamp"))
			return
		}
		filter.Since = &since
	}

	flags, err := h.deps.Fraud.ListFlags(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]ledgerResponse.FraudFlagResponse, 0, len(flags))
	for _, f := range flags {
		resp = append(resp, ledgerResponse.NewFraudFlagResponse(f))
	}
	c.JSON(http.StatusOK, gin.H{"flags": resp})
}

func (h *Handler) fraudRules(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	rules, err := h.deps.Fraud.GetRules(c.Request.Context(), activeOnly)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]ledgerResponse.FraudRuleResponse, 0, len(rules))
	for _, r := range rules {
		resp = append(resp, ledgerResponse.NewFraudRuleResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"rules": resp})
}

func (h *Handler) updateFraudRule(c *gin.Context) {
	var req ledgerRequest.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	err := h.deps.Fraud.UpdateRule(c.Request.Context(), &usecase.UpdateRuleInput{
		RuleID:   c.Param("id"),
		Type:     req.Type,
		Config:   req.Config,
		IsActive: req.IsActive,
		Priority: req.Priority,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) latestReconciliation(c *gin.Context) {
	run, mismatches, err := h.deps.Validator.Latest(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledgerResponse.NewReconciliationRunResponse(run, mismatches))
}

func (h *Handler) runReconciliation(c *gin.Context) {
	var req ledgerRequest.RunReconciliationRequest
	// пустое тело - прогон в режиме отчёта
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, err)
		return
	}

	run, mismatches, err := h.deps.Validator.Run(c.Request.Context(), reconciliation.RunOptions{Fix: req.Fix})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledgerResponse.NewReconciliationRunResponse(run, mismatches))
}
