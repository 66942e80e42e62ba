package handlers

import (
	"errors"
	"net/http"

	ledgerRequest "github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/dto/ledger/request"
	ledgerResponse "github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/dto/ledger/response"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	attributiondto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/attribution"
	signupdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/signup"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// referralRedirect обрабатывает GET /r/:code: пишет клик, ставит куку и
// уводит на страницу сообщества. Посетитель всегда получает редирект.
func (h *Handler) referralRedirect(c *gin.Context) {
	code := c.Param("code")
	identity := h.deps.Hasher.Hash(c.Request.UserAgent(), c.ClientIP())

	out, err := h.deps.Attribution.RecordClick(c.Request.Context(), &attributiondto.RecordClickInput{
		ReferralCode: code,
		Identity:     identity,
		LandingPath:  c.Request.URL.Path,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrNotFound) {
			h.log.Error("failed to record click", zap.String("code", code), zap.Error(err))
		}
		c.Redirect(http.StatusFound, h.opts.FallbackURL)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, out.Click.ReferralCode, int(h.opts.CookieMaxAge.Seconds()), "/", h.opts.CookieDomain, h.opts.CookieSecure, true)

	destination := out.DestinationURL
	if destination == "" {
		destination = h.opts.FallbackURL
	}
	c.Redirect(http.StatusFound, destination)
}

func (h *Handler) signup(c *gin.Context) {
	var req ledgerRequest.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	input := &signupdto.SignupInput{
		CreatorID:    req.CreatorID,
		MembershipID: req.MembershipID,
		DisplayName:  req.DisplayName,
		UserAgent:    req.UserAgent,
		ClientIP:     req.ClientIP,
		CookieCode:   req.ReferralCode,
	}
	if input.UserAgent == "" {
		input.UserAgent = c.Request.UserAgent()
	}
	if input.ClientIP == "" {
		input.ClientIP = c.ClientIP()
	}
	if input.CookieCode == "" {
		input.CookieCode, _ = c.Cookie(h.opts.CookieName)
	}

	out, err := h.deps.Conversion.Signup(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := ledgerResponse.SignupResponse{
		MemberID:       out.Member.ID,
		ReferralCode:   out.Member.ReferralCode,
		Origin:         string(out.Member.Origin),
		MatchSource:    out.MatchSource,
		Existing:       out.Existing,
		ReplayRejected: out.ReplayRejected,
		Fraud:          ledgerResponse.NewFraudResponse(out.Fraud),
	}
	if out.Member.ReferredBy != nil {
		resp.ReferredBy = *out.Member.ReferredBy
	}

	status := http.StatusCreated
	if out.Existing {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}
