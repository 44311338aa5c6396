package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
	conversiondomain "github.com/smallbiznis/affiliate/internal/conversion/domain"
	"github.com/smallbiznis/affiliate/internal/lock"
	linkdomain "github.com/smallbiznis/affiliate/internal/link/domain"
	"github.com/smallbiznis/affiliate/internal/observability"
	obsmetrics "github.com/smallbiznis/affiliate/internal/observability/metrics"
	payoutdomain "github.com/smallbiznis/affiliate/internal/payout/domain"
	"github.com/smallbiznis/affiliate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	env    *testutil.Env
	engine *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := testutil.NewEnv(t)
	engine := NewEngine(
		observability.Config{LogLevel: "info", Environment: "test"},
		obsmetrics.NewHTTPMetricsWithRegisterer(prometheus.NewRegistry()),
	)
	NewServer(ServerParams{
		Gin:           engine,
		Cfg:           env.Config,
		Log:           env.Log,
		AffiliateSvc:  env.Affiliates,
		LinkSvc:       env.Links,
		ConversionSvc: env.Conversions,
		PayoutSvc:     env.Payouts,
		SettingsSvc:   env.Settings,
		StatsSvc:      env.Stats,
		AuditSvc:      env.Audit,
		ExportSvc:     env.Export,
	})
	return &harness{env: env, engine: engine}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderOrg, h.env.OrgID.String())
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func (h *harness) activeAffiliate(t *testing.T, email string) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/affiliates", map[string]any{"name": "Ana Souza", "email": email})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeData(t, rec)["id"].(string)

	rec = h.do(t, http.MethodPatch, "/api/affiliates/"+id, map[string]any{"status": "ACTIVE"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return id
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"validation", affiliatedomain.ErrInvalidEmail, http.StatusBadRequest, "validation_error"},
		{"wrapped validation", fmt.Errorf("create: %w", payoutdomain.ErrBelowMinPayout), http.StatusBadRequest, "validation_error"},
		{"not found", linkdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"duplicate order", conversiondomain.ErrDuplicateOrder, http.StatusConflict, "conflict"},
		{"insufficient balance", payoutdomain.ErrInsufficientBalance, http.StatusConflict, "conflict"},
		{"lock timeout", lock.ErrTimeout, http.StatusServiceUnavailable, "service_unavailable"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
		})
	}

	_, payload := mapError(payoutdomain.ErrBelowMinPayout)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "amount", payload.Errors[0].Field)
	assert.Equal(t, "below_min_payout", payload.Errors[0].Code)

	_, payload = mapError(conversiondomain.ErrNotPending)
	assert.Equal(t, conversiondomain.ErrNotPending.Error(), payload.Message)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMissingOrgHeader(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/affiliates", nil)
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_organization", payload.Errors[0].Code)
}

func TestAffiliateCreateAndListEnvelope(t *testing.T) {
	h := newHarness(t)
	h.activeAffiliate(t, "ana@example.com")

	rec := h.do(t, http.MethodPost, "/api/affiliates", map[string]any{"name": "Bruno", "email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Type)

	rec = h.do(t, http.MethodGet, "/api/affiliates?page=0&size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	for _, key := range []string{"content", "page", "size", "totalPages", "totalElements", "first", "last"} {
		assert.Contains(t, page, key)
	}
	assert.EqualValues(t, 1, page["totalElements"])
	assert.EqualValues(t, 10, page["size"])

	rec = h.do(t, http.MethodGet, "/api/affiliates?size=abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_size", decodeError(t, rec).Errors[0].Code)
}

func TestConversionApproveTwiceConflicts(t *testing.T) {
	h := newHarness(t)
	affiliateID := h.activeAffiliate(t, "ana@example.com")

	rec := h.do(t, http.MethodPost, "/api/affiliates/conversions", map[string]any{
		"affiliateId": affiliateID,
		"orderId":     "ORD-1",
		"orderAmount": "200",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conversion := decodeData(t, rec)
	assert.Equal(t, "20", conversion["commissionAmount"])

	path := "/api/affiliates/conversions/" + conversion["id"].(string) + "/approve"
	rec = h.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "APPROVED", decodeData(t, rec)["status"])

	rec = h.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Type)

	rec = h.do(t, http.MethodGet, "/api/affiliates/conversions/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPayoutInsufficientBalance(t *testing.T) {
	h := newHarness(t)
	affiliateID := h.activeAffiliate(t, "ana@example.com")

	rec := h.do(t, http.MethodPost, "/api/affiliates/payouts", map[string]any{
		"affiliateId": affiliateID,
		"amount":      "60",
		"method":      "PIX",
	})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, payoutdomain.ErrInsufficientBalance.Error(), decodeError(t, rec).Message)

	rec = h.do(t, http.MethodGet, "/api/affiliates/"+affiliateID+"/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRedirectSetsAttributionCookie(t *testing.T) {
	h := newHarness(t)
	affiliateID := h.activeAffiliate(t, "ana@example.com")

	rec := h.do(t, http.MethodPost, "/api/affiliates/links", map[string]any{
		"affiliateId":    affiliateID,
		"slug":           "promo",
		"destinationUrl": "https://shop.example.com/sale",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/r/promo", nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://shop.example.com/sale"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "aff_ref", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 30*24*60*60, cookies[0].MaxAge)

	rec = h.do(t, http.MethodGet, "/r/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
