package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/middleware"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase"
	ledgerdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/ledger"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/ledger"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/reconciliation"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type PaymentProcessor interface {
	Process(ctx context.Context, signature string, body []byte) (*ledgerdto.IngestResult, error)
}

type Options struct {
	CookieName   string
	CookieDomain string
	CookieSecure bool
	CookieMaxAge time.Duration
	FallbackURL  string
	MaxBodyBytes int64
	JWTSecret    string
	JWTIssuer    string
}

type Deps struct {
	Attribution usecase.AttributionUsecase
	Conversion  usecase.ConversionUsecase
	Stats       usecase.StatsUsecase
	Fraud       usecase.FraudUsecase
	Ledger      ledger.LedgerUsecase
	Payments    PaymentProcessor
	Validator   reconciliation.Validator
	Hasher      domain.IdentityHasher
	Gatherer    prometheus.Gatherer
	// HealthCheck - пинг хранилища; nil - всегда ok
	HealthCheck func(ctx context.Context) error
}

type Handler struct {
	deps   Deps
	opts   Options
	router *gin.Engine
	log    *zap.Logger
}

func NewHandler(deps Deps, opts Options, log *zap.Logger) *Handler {
	if opts.CookieName == "" {
		opts.CookieName = "ref_code"
	}
	if opts.CookieMaxAge <= 0 {
		opts.CookieMaxAge = domain.AttributionWindow
	}
	if opts.FallbackURL == "" {
		opts.FallbackURL = "/"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	h := &Handler{
		deps:   deps,
		opts:   opts,
		router: router,
		log:    log.With(zap.String("component", "http")),
	}
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	if h.deps.Gatherer != nil {
		h.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	h.router.GET("/r/:code", h.referralRedirect)
	h.router.POST("/webhooks/payments", h.paymentWebhook)

	api := h.router.Group("/api/v1", middleware.JWTAuth(h.opts.JWTSecret, h.opts.JWTIssuer))
	api.POST("/signups", middleware.RequireRole(middleware.RoleService, middleware.RoleAdmin), h.signup)
	api.GET("/members/:id/stats", h.memberStats)
	api.GET("/members/:id/commissions", h.memberCommissions)
	api.GET("/commissions/:id", h.getCommission)

	admin := api.Group("", middleware.RequireRole(middleware.RoleAdmin))
	admin.POST("/commissions/:id/release", h.releaseCommission)
	admin.GET("/fraud/flags", h.fraudFlags)
	admin.GET("/fraud/rules", h.fraudRules)
	admin.PUT("/fraud/rules/:id", h.updateFraudRule)
	admin.GET("/reconciliation/runs/latest", h.latestReconciliation)
	admin.POST("/reconciliation/runs", h.runReconciliation)
}

func (h *Handler) healthCheck(c *gin.Context) {
	if h.deps.HealthCheck != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.HealthCheck(ctx); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// canReadMember: админ и сервис видят всех, участник - только себя
func canReadMember(c *gin.Context, memberID string) bool {
	if middleware.HasRole(c, middleware.RoleAdmin, middleware.RoleService) {
		return true
	}
	return middleware.HasRole(c, middleware.RoleMember) && middleware.Subject(c) == memberID
}
