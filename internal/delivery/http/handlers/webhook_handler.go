package handlers

import (
	"errors"
	"io"
	"net/http"

	ledgerResponse "github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/dto/ledger/response"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/webhook"
	"github.com/gin-gonic/gin"
)

// paymentWebhook обрабатывает POST /webhooks/payments.
// Подпись считается по сырому телу, поэтому тело читается целиком до разбора.
func (h *Handler) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxBodyBytes))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ledgerResponse.ErrorResponse{
			Error:   "payload_too_large",
			Message: err.Error(),
		})
		return
	}

	result, err := h.deps.Payments.Process(c.Request.Context(), c.GetHeader(webhook.SignatureHeader), body)
	if err != nil {
		if errors.Is(err, domain.ErrNotAttributable) {
			c.JSON(http.StatusAccepted, ledgerResponse.WebhookResponse{Status: "not_attributable"})
			return
		}
		h.writeError(c, err)
		return
	}

	commission := ledgerResponse.NewCommissionResponse(result.Commission)
	status := "processed"
	if result.Duplicate {
		status = "duplicate"
	}
	c.JSON(http.StatusOK, ledgerResponse.WebhookResponse{Status: status, Commission: &commission})
}
