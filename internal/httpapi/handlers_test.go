package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"vellum/backend/internal/analytics"
	"vellum/backend/internal/cache"
	"vellum/backend/internal/domain"
	"vellum/backend/internal/insight"
	"vellum/backend/internal/service"
	"vellum/backend/internal/store/memory"
)

const testSalesCSV = "Order;Creation Date;Client Document;Client Name;Status;SKU Total Price;Quantity_SKU;SKU Name;Coupon\n" +
	"MLR-1;2024-03-12;111;Ana;Faturado;100;1;Mesa;PROMO\n" +
	"MDM-2;2024-03-13;222;Bia;Cancelado;50;1;Cadeira;\n" +
	"SITE-3;2024-03-14;111;Ana;Faturado;80;2;Vaso;\n"

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("SEED_ANALYST_PASSWORD", "analyst123")

	repo, err := memory.NewSeeded(zap.NewNop())
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	now := time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)
	engine := analytics.NewEngine(analytics.WithClock(func() time.Time { return now }))
	insights := insight.NewService(cache.NewMemoryInsightCache(time.Hour, nil), nil, zap.NewNop())
	svc := service.New(repo, engine, insights, zap.NewNop())
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, Options{AllowedOrigin: "*", MaxUploadBytes: 1 << 20, Logger: zap.NewNop()})
}

func login(t *testing.T, api *API, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("login as %s failed, status %d (body: %s)", username, res.Code, res.Body.String())
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func loginAsAdmin(t *testing.T, api *API) string {
	return login(t, api, "admin", "admin123")
}

func loginAsAnalyst(t *testing.T, api *API) string {
	return login(t, api, "analyst", "analyst123")
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func upload(t *testing.T, api *API, path, token string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", fetchCSRFToken(t, api))
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func authedRequest(t *testing.T, api *API, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", fetchCSRFToken(t, api))
	}
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	payload, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrongpassword"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestSnapshotRequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/snapshot", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSalesUploadThenSnapshot(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	res := upload(t, api, "/api/v1/sales/uploads", admin, map[string]string{"vendas.csv": testSalesCSV})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}
	var report domain.IngestReport
	if err := json.NewDecoder(res.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Accepted != 3 || report.Total != 3 || report.Files != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	analyst := loginAsAnalyst(t, api)
	res = authedRequest(t, api, http.MethodGet, "/api/v1/sales/snapshot?start=2024-03-01&end=2024-03-31&channels=Mercado%20Livre", analyst)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}
	var snapshot domain.SalesSnapshot
	if err := json.NewDecoder(res.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Totals.Orders != 1 || snapshot.Totals.Revenue != 100 {
		t.Fatalf("expected only the Mercado Livre order, got %+v", snapshot.Totals)
	}
	if len(snapshot.Filter.Channels) != 1 {
		t.Fatalf("expected filter echoed back, got %+v", snapshot.Filter)
	}

	res = authedRequest(t, api, http.MethodGet, "/api/v1/sales/channels", analyst)
	var channels map[string][]string
	if err := json.NewDecoder(res.Body).Decode(&channels); err != nil {
		t.Fatalf("decode channels: %v", err)
	}
	if len(channels["channels"]) != 3 {
		t.Fatalf("expected 3 channels, got %v", channels)
	}
}

func TestAnalystCannotUploadOrClear(t *testing.T) {
	api := newTestAPI(t)
	analyst := loginAsAnalyst(t, api)

	res := upload(t, api, "/api/v1/sales/uploads", analyst, map[string]string{"vendas.csv": testSalesCSV})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for analyst upload, got %d", res.Code)
	}
	res = authedRequest(t, api, http.MethodDelete, "/api/v1/sales", analyst)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for analyst clear, got %d", res.Code)
	}
}

func TestUploadRejectsFileWithoutRequiredColumns(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	res := upload(t, api, "/api/v1/sales/uploads", admin, map[string]string{
		"vendas.csv": testSalesCSV,
		"outro.csv":  "Pedido;Data\n1;2024-01-01\n",
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = authedRequest(t, api, http.MethodGet, "/api/v1/sales/channels", admin)
	if !strings.Contains(res.Body.String(), `"channels":[]`) {
		t.Fatalf("expected nothing stored, got %s", res.Body.String())
	}
}

func TestUploadWithoutFilesIsBadRequest(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	res := upload(t, api, "/api/v1/funnel/uploads", admin, map[string]string{})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestSalesExportWritesCSVAttachment(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)
	upload(t, api, "/api/v1/sales/uploads", admin, map[string]string{"vendas.csv": testSalesCSV})

	res := authedRequest(t, api, http.MethodGet, "/api/v1/sales/export/top-products", admin)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}
	if got := res.Header().Get("Content-Type"); got != csvContentType {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := res.Header().Get("Content-Disposition"); !strings.Contains(got, "sales-top-products.csv") {
		t.Fatalf("unexpected content disposition %q", got)
	}
	if !strings.HasPrefix(res.Body.String(), "\ufeff\"name\"") {
		t.Fatalf("expected BOM and quoted header, got %q", res.Body.String())
	}

	res = authedRequest(t, api, http.MethodGet, "/api/v1/sales/export/nope", admin)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown view, got %d", res.Code)
	}
}

func TestSnapshotRejectsBadFilter(t *testing.T) {
	api := newTestAPI(t)
	analyst := loginAsAnalyst(t, api)

	for _, path := range []string{
		"/api/v1/sales/snapshot?start=12/03/2024",
		"/api/v1/sales/snapshot?start=2024-03-10&end=2024-03-01",
		"/api/v1/funnel/snapshot?status=unknown",
		"/api/v1/funnel/snapshot?min_value=abc",
		"/api/v1/funnel/snapshot?min_value=500&max_value=100",
	} {
		if res := authedRequest(t, api, http.MethodGet, path, analyst); res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, res.Code)
		}
	}
}

func TestInsightsFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	res := authedRequest(t, api, http.MethodPost, "/api/v1/sales/insights", admin)
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without data, got %d (body: %s)", res.Code, res.Body.String())
	}

	upload(t, api, "/api/v1/sales/uploads", admin, map[string]string{"vendas.csv": testSalesCSV})
	res = authedRequest(t, api, http.MethodPost, "/api/v1/sales/insights", admin)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}
	var result domain.InsightResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode insights: %v", err)
	}
	if result.Source != domain.InsightSourceFallback || result.DataHash == "" {
		t.Fatalf("unexpected insight result %+v", result)
	}

	res = authedRequest(t, api, http.MethodGet, "/api/v1/insights/cache", admin)
	var info domain.CacheInfo
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		t.Fatalf("decode cache info: %v", err)
	}
	if !info.Exists {
		t.Fatalf("expected cached insights")
	}

	res = authedRequest(t, api, http.MethodDelete, "/api/v1/insights/cache", admin)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 on cache clear, got %d", res.Code)
	}
}

func TestFunnelSampleRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	res := authedRequest(t, api, http.MethodGet, "/api/v1/funnel/sample", admin)
	if res.Code != http.StatusOK || res.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected sample response %d %q", res.Code, res.Header().Get("Content-Type"))
	}

	res = upload(t, api, "/api/v1/funnel/uploads", admin, map[string]string{"plano.xlsx": res.Body.String()})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = authedRequest(t, api, http.MethodGet, "/api/v1/funnel/snapshot?status=cancelled", admin)
	var snapshot domain.FunnelSnapshot
	if err := json.NewDecoder(res.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode funnel snapshot: %v", err)
	}
	if snapshot.Totals.Records != 1 || snapshot.Totals.CancelledOrders != 1 {
		t.Fatalf("expected only the cancelled record, got %+v", snapshot.Totals)
	}

	res = authedRequest(t, api, http.MethodDelete, "/api/v1/funnel", admin)
	if !strings.Contains(res.Body.String(), `"removed":4`) {
		t.Fatalf("expected 4 removed, got %s", res.Body.String())
	}
}

func TestAdminManagesAnalysts(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	body, _ := json.Marshal(domain.AnalystCreateRequest{Username: "carla", Password: "carla12345"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/analysts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set("X-CSRF-Token", fetchCSRFToken(t, api))
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = authedRequest(t, api, http.MethodGet, "/api/v1/users/analysts", admin)
	if !strings.Contains(res.Body.String(), `"carla"`) {
		t.Fatalf("expected carla in analysts, got %s", res.Body.String())
	}
	login(t, api, "carla", "carla12345")
}
