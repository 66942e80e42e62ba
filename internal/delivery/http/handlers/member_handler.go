package handlers

import (
	"net/http"

	ledgerRequest "github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/dto/ledger/request"
	ledgerResponse "github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/dto/ledger/response"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/middleware"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	ledgerdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/ledger"
	"github.com/gin-gonic/gin"
)

func (h *Handler) memberStats(c *gin.Context) {
	memberID := c.Param("id")
	if !canReadMember(c, memberID) {
		h.forbidden(c)
		return
	}

	stats, err := h.deps.Stats.GetMemberStats(c.Request.Context(), memberID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ledgerResponse.MemberStatsResponse{
		MemberID:         stats.MemberID,
		ReferralCode:     stats.ReferralCode,
		Origin:           stats.Origin,
		ReferredBy:       stats.ReferredBy,
		TotalReferred:    stats.TotalReferred,
		MonthlyReferred:  stats.MonthlyReferred,
		LifetimeEarnings: stats.LifetimeEarnings,
		MonthlyEarnings:  stats.MonthlyEarnings,
		UpdatedAt:        stats.UpdatedAt,
	})
}

func (h *Handler) memberCommissions(c *gin.Context) {
	memberID := c.Param("id")
	if !canReadMember(c, memberID) {
		h.forbidden(c)
		return
	}

	var query ledgerRequest.ListCommissionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.badRequest(c, err)
		return
	}

	out, err := h.deps.Ledger.ListCommissions(c.Request.Context(), &ledgerdto.ListCommissionsInput{
		MemberID: memberID,
		Status:   query.Status,
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := ledgerResponse.ListCommissionsResponse{
		Commissions: make([]ledgerResponse.CommissionResponse, 0, len(out.Commissions)),
		Total:       out.Total,
	}
	for _, commission := range out.Commissions {
		resp.Commissions = append(resp.Commissions, ledgerResponse.NewCommissionResponse(commission))
	}
	c.JSON(http.StatusOK, resp)
}

// getCommission: чужая комиссия для участника выглядит так же, как несуществующая
func (h *Handler) getCommission(c *gin.Context) {
	id := c.Param("id")
	commission, err := h.deps.Ledger.GetCommission(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !middleware.HasRole(c, middleware.RoleAdmin, middleware.RoleService) && middleware.Subject(c) != commission.MemberID {
		h.writeError(c, domain.NewNotFoundError("commission", id))
		return
	}
	c.JSON(http.StatusOK, ledgerResponse.NewCommissionResponse(commission))
}
