package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ledgerResponse "github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/dto/ledger/response"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/middleware"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/engine"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/cache"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/identity"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/webhook"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/testutil/memstore"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/ledger"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/reconciliation"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	jwtSecret     = "jwt-test-secret"
	jwtIssuer     = "shvark"
	webhookSecret = "whsec_test"
	browserUA     = "Mozilla/5.0 (X11; Linux x86_64)"
)

type approveAll struct{}

func (approveAll) Assess(ctx context.Context, subject domain.FraudSubject) *domain.FraudAssessment {
	return &domain.FraudAssessment{Decision: domain.FraudApprove, EvaluatedAt: time.Now()}
}

type testApp struct {
	t       *testing.T
	store   *memstore.Store
	handler *Handler
	creator *domain.Creator
	jessica *domain.Member
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	store := memstore.New()
	creator := store.AddCreator(domain.Creator{Name: "Creator", DestinationURL: "https://whop.example/creator"})
	jessica := store.AddMember(domain.Member{
		CreatorID:    creator.ID,
		MembershipID: "mem_jessica",
		ReferralCode: "JESSICA-NSZP83",
		CreatedAt:    time.Now().Add(-48 * time.Hour),
	})

	hasher, err := identity.NewHasher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	codes, err := usecase.NewReferralCodeGenerator()
	require.NoError(t, err)
	verifier, err := webhook.NewVerifier(webhookSecret, time.Second)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	m := metrics.NewLedgerMetrics(registry)
	statsCache := cache.NewStatsCache(64, time.Minute)
	fraud := approveAll{}

	attribution := usecase.NewDefaultAttributionUsecase(store.Clicks(), store.Members(), store.Creators(), 0, m, log)
	conversion := usecase.NewDefaultConversionUsecase(store.Members(), store.Creators(), store.Clicks(), attribution, hasher, fraud, statsCache, codes, m, log)
	ledgerUC := ledger.NewDefaultLedgerUsecase(store.Commissions(), store.Members(), fraud, statsCache, ledger.Config{
		Policy:      ledger.DefaultSplitPolicy(),
		SaleCeiling: decimal.RequireFromString("100000.00"),
		Currency:    "USD",
	}, m, log)

	h := NewHandler(Deps{
		Attribution: attribution,
		Conversion:  conversion,
		Stats:       usecase.NewDefaultStatsUsecase(store.Members(), statsCache),
		Fraud:       usecase.NewDefaultFraudUsecase(store.Fraud(), engine.NewRuleManager(store.Fraud())),
		Ledger:      ledgerUC,
		Payments:    ledger.NewPaymentProcessor(verifier, ledgerUC, m, log),
		Validator:   reconciliation.NewDefaultValidator(store.Reconciliation(), statsCache, m, log, 2, 100),
		Hasher:      hasher,
		Gatherer:    registry,
	}, Options{
		CookieDomain: "whop.example",
		CookieSecure: true,
		FallbackURL:  "https://whop.example/",
		JWTSecret:    jwtSecret,
		JWTIssuer:    jwtIssuer,
	}, log)

	return &testApp{t: t, store: store, handler: h, creator: creator, jessica: jessica}
}

func (a *testApp) token(subject, role string) string {
	a.t.Helper()
	token, err := middleware.NewToken(jwtSecret, jwtIssuer, subject, role, time.Hour)
	require.NoError(a.t, err)
	return token
}

func (a *testApp) do(method, path, token string, body []byte, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("User-Agent", browserUA)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testApp) webhook(body string, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader([]byte(body)))
	req.Header.Set(webhook.SignatureHeader, webhook.Sign(secret, []byte(body)))
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testApp) payBody(paymentID, membershipID, amount, eventType string) string {
	return `{"externalPaymentId":"` + paymentID + `","membershipId":"` + membershipID +
		`","companyId":"` + a.creator.ID + `","saleAmount":` + amount + `,"eventType":"` + eventType + `"}`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestReferralFlow_EndToEnd(t *testing.T) {
	app := newTestApp(t)

	// клик по ссылке
	w := app.do(http.MethodGet, "/r/JESSICA-NSZP83", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://whop.example/creator", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "ref_code", cookie.Name)
	assert.Equal(t, "JESSICA-NSZP83", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 30*24*60*60, cookie.MaxAge)
	assert.Equal(t, "whop.example", cookie.Domain)

	// регистрация
	body := []byte(`{"creatorId":"` + app.creator.ID + `","membershipId":"mem_sam","displayName":"Sam"}`)
	w = app.do(http.MethodPost, "/api/v1/signups", app.token("platform", middleware.RoleService), body, cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	signup := decode[ledgerResponse.SignupResponse](t, w)
	assert.Equal(t, "referred", signup.Origin)
	assert.Equal(t, "JESSICA-NSZP83", signup.ReferredBy)
	assert.Equal(t, "cookie", signup.MatchSource)

	// оплата
	pay := app.payBody("pay_1", "mem_sam", "49.99", "payment.succeeded")
	w = app.webhook(pay, webhookSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ledgerResponse.WebhookResponse](t, w)
	assert.Equal(t, "processed", resp.Status)
	require.NotNil(t, resp.Commission)
	assert.Equal(t, "paid", resp.Commission.Status)
	assert.True(t, resp.Commission.MemberShare.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, resp.Commission.CreatorShare.Equal(decimal.RequireFromString("34.99")))
	assert.True(t, resp.Commission.PlatformShare.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, app.jessica.ID, resp.Commission.MemberID)

	// повтор вебхука
	w = app.webhook(pay, webhookSecret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duplicate", decode[ledgerResponse.WebhookResponse](t, w).Status)
	assert.Len(t, app.store.AllCommissions(), 1)

	// статистика реферера
	w = app.do(http.MethodGet, "/api/v1/members/"+app.jessica.ID+"/stats", app.token(app.jessica.ID, middleware.RoleMember), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decode[ledgerResponse.MemberStatsResponse](t, w)
	assert.EqualValues(t, 1, stats.TotalReferred)
	assert.EqualValues(t, 1, stats.MonthlyReferred)
	assert.True(t, stats.LifetimeEarnings.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, stats.MonthlyEarnings.Equal(decimal.RequireFromString("5.00")))

	// список комиссий
	w = app.do(http.MethodGet, "/api/v1/members/"+app.jessica.ID+"/commissions?status=paid", app.token(app.jessica.ID, middleware.RoleMember), nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[ledgerResponse.ListCommissionsResponse](t, w)
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Commissions, 1)
	assert.Equal(t, "pay_1", list.Commissions[0].ExternalPaymentID)

	// сверка согласована
	w = app.do(http.MethodPost, "/api/v1/reconciliation/runs", app.token("ops", middleware.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	run := decode[ledgerResponse.ReconciliationRunResponse](t, w)
	assert.Equal(t, "report", run.Mode)
	assert.Zero(t, run.Mismatches)
	assert.Equal(t, 2, run.MembersScanned)
}

func TestReferralRedirect_BadCodeGoesToFallback(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/r/not-a-code", "/r/NOBODY-000000"} {
		w := app.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://whop.example/", w.Header().Get("Location"))
		assert.Empty(t, w.Result().Cookies())
	}
	assert.Empty(t, app.store.AllClicks())
}

func TestPaymentWebhook_Errors(t *testing.T) {
	app := newTestApp(t)
	app.store.AddMember(domain.Member{CreatorID: app.creator.ID, MembershipID: "mem_organic", ReferralCode: "ORGANIC-AAAAAA"})

	w := app.webhook(app.payBody("pay_1", "mem_organic", "10", "payment.succeeded"), "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.webhook(app.payBody("pay_1", "mem_organic", "10", "payment.succeeded"), webhookSecret)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "not_attributable", decode[ledgerResponse.WebhookResponse](t, w).Status)

	w = app.webhook(app.payBody("pay_2", "mem_organic", "10", "payment.exploded"), webhookSecret)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.webhook(app.payBody("pay_3", "mem_unknown", "10", "payment.refunded"), webhookSecret)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader([]byte(`{}`)))
	w = httptest.NewRecorder()
	app.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Empty(t, app.store.AllCommissions())
}

func TestAPI_Authorization(t *testing.T) {
	app := newTestApp(t)
	statsPath := "/api/v1/members/" + app.jessica.ID + "/stats"

	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, statsPath, "", nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, statsPath, app.token("someone-else", middleware.RoleMember), nil).Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, statsPath, app.token("platform", middleware.RoleService), nil).Code)

	member := app.token(app.jessica.ID, middleware.RoleMember)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/api/v1/fraud/flags", member, nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodPost, "/api/v1/signups", member, []byte(`{}`)).Code)
}

func TestGetCommission_ForeignIDLooksMissing(t *testing.T) {
	app := newTestApp(t)
	owned := app.store.AddCommission(domain.Commission{
		ExternalPaymentID: "pay_owned",
		Status:            domain.CommissionPending,
		MemberID:          app.jessica.ID,
		CreatorID:         app.creator.ID,
	})

	w := app.do(http.MethodGet, "/api/v1/commissions/"+owned.ID, app.token(app.jessica.ID, middleware.RoleMember), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	stranger := app.token("someone-else", middleware.RoleMember)
	foreign := app.do(http.MethodGet, "/api/v1/commissions/"+owned.ID, stranger, nil)
	missing := app.do(http.MethodGet, "/api/v1/commissions/no-such-commission", stranger, nil)

	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	foreignBody := decode[ledgerResponse.ErrorResponse](t, foreign)
	missingBody := decode[ledgerResponse.ErrorResponse](t, missing)
	assert.Equal(t, missingBody.Error, foreignBody.Error)
	assert.Equal(t, `commission "`+owned.ID+`" not found`, foreignBody.Message)

	w = app.do(http.MethodGet, "/api/v1/commissions/"+owned.ID, app.token("platform", middleware.RoleService), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_AdminErrors(t *testing.T) {
	app := newTestApp(t)
	admin := app.token("ops", middleware.RoleAdmin)

	w := app.do(http.MethodGet, "/api/v1/reconciliation/runs/latest", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPost, "/api/v1/commissions/missing/release", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	paid := app.store.AddCommission(domain.Commission{
		ExternalPaymentID: "pay_paid",
		Status:            domain.CommissionPaid,
		MemberID:          app.jessica.ID,
		CreatorID:         app.creator.ID,
	})
	w = app.do(http.MethodPost, "/api/v1/commissions/"+paid.ID+"/release", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(http.MethodGet, "/api/v1/fraud/flags?decision=maybe", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/api/v1/fraud/flags?since=yesterday", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/api/v1/members/"+app.jessica.ID+"/commissions?status=lost", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/v1/signups", admin, []byte(`{"creatorId":"`+app.creator.ID+`"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	app.do(http.MethodGet, "/r/JESSICA-NSZP83", "", nil)
	w = app.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "affiliate_clicks_recorded_total")
}
