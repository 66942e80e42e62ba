package grpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/middleware"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/engine"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/cache"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/testutil/memstore"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	jwtSecret = "jwt-test-secret"
	jwtIssuer = "shvark"
)

type noopCache struct{}

func (noopCache) Invalidate(string) {}

type testServer struct {
	conn    *grpc.ClientConn
	client  *LedgerReadClient
	store   *memstore.Store
	jessica *domain.Member
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	jessica := store.AddMember(domain.Member{
		MembershipID: "mem_jessica",
		ReferralCode: "JESSICA-NSZP83",
		Stats: domain.MemberStats{
			TotalReferred:    1,
			MonthlyReferred:  1,
			LifetimeEarnings: decimal.RequireFromString("5.00"),
			MonthlyEarnings:  decimal.RequireFromString("5.00"),
		},
	})
	paidAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.AddCommission(domain.Commission{
		ExternalPaymentID: "pay_1",
		SaleAmount:        decimal.RequireFromString("49.99"),
		Shares: domain.Shares{
			Member:   decimal.RequireFromString("5.00"),
			Creator:  decimal.RequireFromString("34.99"),
			Platform: decimal.RequireFromString("10.00"),
		},
		Currency:  "USD",
		Status:    domain.CommissionPaid,
		MemberID:  jessica.ID,
		PaidAt:    &paidAt,
		CreatedAt: paidAt,
	})
	require.NoError(t, store.Fraud().SaveAssessment(context.Background(), &domain.FraudAssessmentLog{
		ID:           "flag-1",
		Stage:        domain.FraudStageConversion,
		ReferralCode: "JESSICA-NSZP83",
		Score:        45,
		Decision:     domain.FraudReview,
		Reasons:      []string{"shared device"},
		CheckedAt:    paidAt,
	}))

	log := zap.NewNop()
	ledgerUC := ledger.NewDefaultLedgerUsecase(store.Commissions(), store.Members(), nil, noopCache{}, ledger.Config{
		Policy:      ledger.DefaultSplitPolicy(),
		SaleCeiling: decimal.RequireFromString("100000.00"),
	}, nil, log)
	handler := NewLedgerReadHandler(
		usecase.NewDefaultStatsUsecase(store.Members(), cache.NewStatsCache(16, time.Minute)),
		ledgerUC,
		usecase.NewDefaultFraudUsecase(store.Fraud(), engine.NewRuleManager(store.Fraud())),
		log,
	)

	server, _ := NewServer(handler, jwtSecret, jwtIssuer, log)
	listener := bufconn.Listen(1 << 20)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testServer{conn: conn, client: NewLedgerReadClient(conn), store: store, jessica: jessica}
}

func authed(t *testing.T, role string) context.Context {
	t.Helper()
	token, err := middleware.NewToken(jwtSecret, jwtIssuer, "caller", role, time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func request(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestLedgerRead_GetMemberStats(t *testing.T) {
	ts := newTestServer(t)

	out, err := ts.client.GetMemberStats(authed(t, middleware.RoleService), request(t, map[string]interface{}{"memberId": ts.jessica.ID}))
	require.NoError(t, err)

	fields := out.GetFields()
	assert.Equal(t, "JESSICA-NSZP83", fields["referralCode"].GetStringValue())
	assert.Equal(t, float64(1), fields["totalReferred"].GetNumberValue())
	assert.Equal(t, "5.00", fields["lifetimeEarnings"].GetStringValue())
}

func TestLedgerRead_Errors(t *testing.T) {
	ts := newTestServer(t)
	ctx := authed(t, middleware.RoleAdmin)

	_, err := ts.client.GetMemberStats(ctx, request(t, map[string]interface{}{}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = ts.client.GetMemberStats(ctx, request(t, map[string]interface{}{"memberId": "missing"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = ts.client.ListCommissions(ctx, request(t, map[string]interface{}{"status": "lost"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestLedgerRead_ListCommissions(t *testing.T) {
	ts := newTestServer(t)

	out, err := ts.client.ListCommissions(authed(t, middleware.RoleAdmin), request(t, map[string]interface{}{
		"memberId": ts.jessica.ID,
		"limit":    10,
	}))
	require.NoError(t, err)

	assert.Equal(t, float64(1), out.GetFields()["total"].GetNumberValue())
	items := out.GetFields()["commissions"].GetListValue().GetValues()
	require.Len(t, items, 1)
	c := items[0].GetStructValue().GetFields()
	assert.Equal(t, "pay_1", c["externalPaymentId"].GetStringValue())
	assert.Equal(t, "34.99", c["creatorShare"].GetStringValue())
	assert.Equal(t, "2026-03-10T12:00:00Z", c["paidAt"].GetStringValue())
}

func TestLedgerRead_ListFraudFlags(t *testing.T) {
	ts := newTestServer(t)

	out, err := ts.client.ListFraudFlags(authed(t, middleware.RoleAdmin), request(t, map[string]interface{}{}))
	require.NoError(t, err)

	flags := out.GetFields()["flags"].GetListValue().GetValues()
	require.Len(t, flags, 1)
	f := flags[0].GetStructValue().GetFields()
	assert.Equal(t, "review", f["decision"].GetStringValue())
	assert.Equal(t, float64(45), f["score"].GetNumberValue())
}

func TestLedgerRead_Auth(t *testing.T) {
	ts := newTestServer(t)
	req := request(t, map[string]interface{}{"memberId": ts.jessica.ID})

	_, err := ts.client.GetMemberStats(context.Background(), req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = ts.client.GetMemberStats(authed(t, middleware.RoleMember), req)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	resp, err := healthpb.NewHealthClient(ts.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
