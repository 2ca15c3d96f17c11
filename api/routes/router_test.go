package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/internal/entitlements"
	"github.com/valeclub/valeclub-backend/internal/establishments"
	"github.com/valeclub/valeclub-backend/internal/notifications"
	"github.com/valeclub/valeclub-backend/internal/vouchers"
	pkgauth "github.com/valeclub/valeclub-backend/pkg/auth"
	"github.com/valeclub/valeclub-backend/pkg/config"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	"github.com/valeclub/valeclub-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubVoucherService struct{}

func (stubVoucherService) Generate(context.Context, uuid.UUID, uuid.UUID) (*vouchers.GenerateResult, error) {
	return &vouchers.GenerateResult{Code: "ABCD1234", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (stubVoucherService) Validate(context.Context, string, uuid.UUID, uuid.UUID) (*vouchers.ValidationResult, error) {
	return &vouchers.ValidationResult{}, nil
}

func (stubVoucherService) CheckIn(context.Context, string, uuid.UUID, uuid.UUID) (*vouchers.CheckInResult, error) {
	return &vouchers.CheckInResult{}, nil
}

func (stubVoucherService) List(context.Context, vouchers.ListParams) (*vouchers.ListResult, error) {
	return &vouchers.ListResult{}, nil
}

type stubEstablishmentService struct{}

func (stubEstablishmentService) ListPublic(context.Context, string) ([]establishments.EstablishmentDTO, error) {
	return []establishments.EstablishmentDTO{}, nil
}

type stubNotificationService struct{}

func (stubNotificationService) List(context.Context, notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationService) MarkRead(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (stubNotificationService) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

type stubEntitlementService struct{}

func (stubEntitlementService) Reconcile(context.Context, entitlements.PaymentEvent) (*entitlements.ReconciliationResult, error) {
	return &entitlements.ReconciliationResult{Outcome: entitlements.OutcomeCreated}, nil
}

func (stubEntitlementService) BatchLink(context.Context, uuid.UUID, []entitlements.PartnerAssignment) (*entitlements.BatchLinkResult, error) {
	return &entitlements.BatchLinkResult{}, nil
}

func (stubEntitlementService) ListParked(context.Context, entitlements.ListParkedParams) (*entitlements.ListParkedResult, error) {
	return &entitlements.ListParkedResult{}, nil
}

func (stubEntitlementService) ResolveParked(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(
		testConfig(),
		logger.Nop(),
		stubPinger{},
		nil,
		stubVoucherService{},
		stubEstablishmentService{},
		stubNotificationService{},
		stubEntitlementService{},
		nil,
		nil,
		nil,
		nil,
		nil,
		nil,
	)
}

func mintToken(t *testing.T, role enums.ActorRole, establishmentID *uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(testConfig().JWT, time.Now(), pkgauth.AccessTokenPayload{
		MemberID:        uuid.New(),
		EstablishmentID: establishmentID,
		Role:            role,
		JTI:             uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterPublicEstablishments(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/public/establishments?city=Fortaleza", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterVoucherGenerateRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRouterVoucherValidateRequiresOperator(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers/ABCD1234/validate", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.RoleMember, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRouterOperatorValidatePasses(t *testing.T) {
	router := newTestRouter(t)
	establishmentID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers/ABCD1234/validate", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.RoleOperator, &establishmentID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRouterAdminSurfaceRequiresAdmin(t *testing.T) {
	router := newTestRouter(t)
	establishmentID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payment-events/parked", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.RoleOperator, &establishmentID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payment-events/parked", nil)
	admin.Header.Set("Authorization", "Bearer "+mintToken(t, enums.RoleAdmin, nil))
	adminResp := httptest.NewRecorder()
	router.ServeHTTP(adminResp, admin)
	if adminResp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", adminResp.Code, adminResp.Body.String())
	}
}
