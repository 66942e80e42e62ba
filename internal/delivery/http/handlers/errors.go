package handlers

import (
	"errors"
	"net/http"

	ledgerResponse "github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/dto/ledger/response"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError переводит доменные ошибки в HTTP-статусы
func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrValidation):
		status, code, message = http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, domain.ErrInvalidSignature), errors.Is(err, domain.ErrSignatureTimeout):
		status, code, message = http.StatusUnauthorized, "invalid_signature", "signature verification failed"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code, message = http.StatusConflict, "invalid_transition", err.Error()
	default:
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, ledgerResponse.ErrorResponse{Error: code, Message: message})
}

func (h *Handler) forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, ledgerResponse.ErrorResponse{Error: "forbidden", Message: "access denied"})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ledgerResponse.ErrorResponse{Error: "validation_error", Message: err.Error()})
}
