package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/shop-inventory/internal/adapter/auth"
	"github.com/rl1809/shop-inventory/internal/adapter/storage"
	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/core/service"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

type testServer struct {
	app      *fiber.App
	store    *storage.MemoryStore
	verifier *auth.Verifier
	services Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := storage.NewMemoryStore(domain.Category{ID: "cat-1", Name: "Dairy"})
	logger := zap.NewNop()
	services := Services{
		Stock:      service.NewStockService(store, logger),
		Query:      service.NewQueryService(store, logger),
		Catalog:    service.NewCatalogService(store, store, logger),
		Reconciler: service.NewReconciler(store, logger),
	}
	verifier := auth.NewVerifier(testSecret, "authenticated")

	return &testServer{
		app:      NewHTTPHandler(services, verifier, logger).NewApp(),
		store:    store,
		verifier: verifier,
		services: services,
	}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.verifier.Sign(userID, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func (s *testServer) do(t *testing.T, method, path, userID, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if userID != "" {
		req.Header.Set(fiber.HeaderAuthorization, s.token(t, userID))
	}

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func (s *testServer) doList(t *testing.T, path, userID string) []map[string]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(fiber.HeaderAuthorization, s.token(t, userID))
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func (s *testServer) createProduct(t *testing.T, userID, body string) string {
	t.Helper()
	status, resp := s.do(t, http.MethodPost, "/api/products", userID, body)
	if status != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d (%v)", status, resp)
	}
	return resp["id"].(string)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health", "", "")
	if status != http.StatusOK || body["status"] != "ok" {
		t.Errorf("unexpected health response: %d %v", status, body)
	}
}

func TestRequireUser(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/me", "", "")
	if status != http.StatusUnauthorized || body["error"] != "unauthenticated" {
		t.Errorf("expected 401 unauthenticated, got %d %v", status, body)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer not-a-token")
	resp, _ := s.app.Test(req, -1)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for a malformed token, got %d", resp.StatusCode)
	}

	status, body = s.do(t, http.MethodGet, "/api/me", "user-1", "")
	if status != http.StatusOK || body["user_id"] != "user-1" {
		t.Errorf("unexpected me response: %d %v", status, body)
	}
}

func TestApplyStockMovement_HTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.createProduct(t, "user-1", `{"name":"Flour","current_stock":10,"unit":"kg","min_stock_level":5}`)

	status, body := s.do(t, http.MethodPost, "/api/stock-movements", "user-1",
		`{"product_id":"`+id+`","direction":"out","quantity":3}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", status, body)
	}
	if body["current_stock"] != "7" {
		t.Errorf("expected current_stock 7, got %v", body["current_stock"])
	}

	// Quantity as a string is accepted
	status, body = s.do(t, http.MethodPost, "/api/stock-movements", "user-1",
		`{"product_id":"`+id+`","direction":"in","quantity":"0.5"}`)
	if status != http.StatusOK || body["current_stock"] != "7.5" {
		t.Errorf("unexpected response: %d %v", status, body)
	}
}

func TestApplyStockMovement_HTTPErrors(t *testing.T) {
	s := newTestServer(t)
	id := s.createProduct(t, "user-1", `{"name":"Flour","current_stock":10,"unit":"kg"}`)

	tests := []struct {
		name   string
		user   string
		body   string
		status int
		kind   string
	}{
		{"insufficient stock", "user-1", `{"product_id":"` + id + `","direction":"out","quantity":15}`, http.StatusConflict, "insufficient_stock"},
		{"zero quantity", "user-1", `{"product_id":"` + id + `","direction":"in","quantity":0}`, http.StatusBadRequest, "invalid_quantity"},
		{"text quantity", "user-1", `{"product_id":"` + id + `","direction":"in","quantity":"lots"}`, http.StatusBadRequest, "invalid_quantity"},
		{"bad direction", "user-1", `{"product_id":"` + id + `","direction":"up","quantity":1}`, http.StatusBadRequest, "invalid_direction"},
		{"unknown product", "user-1", `{"product_id":"missing","direction":"in","quantity":1}`, http.StatusNotFound, "not_found"},
		{"other owner", "user-2", `{"product_id":"` + id + `","direction":"in","quantity":1}`, http.StatusNotFound, "not_found"},
		{"malformed body", "user-1", `{"product_id":`, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, http.MethodPost, "/api/stock-movements", tt.user, tt.body)
			if status != tt.status || body["error"] != tt.kind {
				t.Errorf("expected %d %s, got %d %v", tt.status, tt.kind, status, body)
			}
		})
	}

	_, body := s.do(t, http.MethodPost, "/api/stock-movements", "user-1",
		`{"product_id":"`+id+`","direction":"out","quantity":15}`)
	if body["message"] != "Available: 10 kg" || body["available"] != "10" || body["unit"] != "kg" {
		t.Errorf("unexpected insufficient stock body: %v", body)
	}
}

func TestProducts_HTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.createProduct(t, "user-1", `{"name":"Milk","current_stock":"2","unit":"l","category_id":"cat-1"}`)
	s.createProduct(t, "user-1", `{"name":"Bread"}`)

	status, body := s.do(t, http.MethodGet, "/api/products/"+id, "user-1", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["category_name"] != "Dairy" || body["low_stock"] != true {
		t.Errorf("unexpected product: %v", body)
	}

	products := s.doList(t, "/api/products?search=mil", "user-1")
	if len(products) != 1 || products[0]["name"] != "Milk" {
		t.Errorf("unexpected search result: %v", products)
	}

	status, body = s.do(t, http.MethodPost, "/api/products", "user-1", `{"name":"Tea","unit":"bushel"}`)
	if status != http.StatusBadRequest || body["error"] != "invalid_product" {
		t.Errorf("expected 400 invalid_product, got %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPost, "/api/products", "user-1", `{"name":"Tea","category_id":"cat-9"}`)
	if status != http.StatusBadRequest || body["error"] != "invalid_product" {
		t.Errorf("expected 400 invalid_product for an unknown category, got %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPost, "/api/stock-movements", "user-1",
		`{"product_id":"`+id+`","direction":"in","quantity":"0.00001"}`)
	if status != http.StatusBadRequest || body["error"] != "invalid_quantity" {
		t.Errorf("expected 400 invalid_quantity for an unstorable quantity, got %d %v", status, body)
	}

	status, _ = s.do(t, http.MethodGet, "/api/products/"+id, "user-2", "")
	if status != http.StatusNotFound {
		t.Errorf("expected 404 for another owner, got %d", status)
	}

	categories := s.doList(t, "/api/categories", "user-1")
	if len(categories) != 1 || categories[0]["name"] != "Dairy" {
		t.Errorf("unexpected categories: %v", categories)
	}
}

func TestQueries_HTTP(t *testing.T) {
	s := newTestServer(t)
	eggs := s.createProduct(t, "user-1", `{"name":"Eggs","current_stock":0,"unit":"dozen"}`)
	milk := s.createProduct(t, "user-1", `{"name":"Milk","current_stock":8,"unit":"l"}`)
	s.createProduct(t, "user-1", `{"name":"Rice","current_stock":50,"unit":"kg"}`)

	s.do(t, http.MethodPost, "/api/stock-movements", "user-1", `{"product_id":"`+eggs+`","direction":"in","quantity":20}`)
	s.do(t, http.MethodPost, "/api/stock-movements", "user-1", `{"product_id":"`+eggs+`","direction":"out","quantity":20}`)
	s.do(t, http.MethodPost, "/api/stock-movements", "user-1", `{"product_id":"`+milk+`","direction":"out","quantity":5}`)

	status, body := s.do(t, http.MethodGet, "/api/low-stock", "user-1", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	critical := body["critical"].([]any)
	warning := body["warning"].([]any)
	if len(critical) != 1 || critical[0].(map[string]any)["name"] != "Eggs" {
		t.Errorf("unexpected critical: %v", critical)
	}
	if len(warning) != 1 || warning[0].(map[string]any)["name"] != "Milk" {
		t.Errorf("unexpected warning: %v", warning)
	}

	status, body = s.do(t, http.MethodGet, "/api/movements/daily", "user-1", "")
	if status != http.StatusOK || body["stock_in"] != "20" || body["stock_out"] != "25" {
		t.Errorf("unexpected totals: %d %v", status, body)
	}

	status, _ = s.do(t, http.MethodGet, "/api/movements/daily?date=15-03-2024", "user-1", "")
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for a malformed date, got %d", status)
	}

	activity := s.doList(t, "/api/activity?limit=2", "user-1")
	if len(activity) != 2 || activity[0]["product_name"] != "Milk" {
		t.Errorf("unexpected activity: %v", activity)
	}

	status, body = s.do(t, http.MethodGet, "/api/overview", "user-1", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["total_products"] != float64(3) || body["low_stock_count"] != float64(2) {
		t.Errorf("unexpected overview: %v", body)
	}
	if recent := body["recent"].([]any); len(recent) != 3 {
		t.Errorf("expected 3 recent transactions, got %d", len(recent))
	}

	history := s.doList(t, "/api/products/"+eggs+"/transactions", "user-1")
	if len(history) != 2 || history[0]["direction"] != "out" {
		t.Errorf("unexpected history: %v", history)
	}
}

func TestReconcile_HTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.createProduct(t, "user-1", `{"name":"Flour","current_stock":10,"unit":"kg"}`)
	s.do(t, http.MethodPost, "/api/stock-movements", "user-1", `{"product_id":"`+id+`","direction":"out","quantity":4}`)

	// Drift the counter behind the service's back
	s.store.SetStock(context.Background(), "user-1", id, decimal.NewFromInt(5))

	status, body := s.do(t, http.MethodPost, "/api/products/"+id+"/reconcile", "user-1", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", status, body)
	}
	if body["corrected"] != true || body["recomputed"] != "6" || body["previous"] != "5" {
		t.Errorf("unexpected reconcile result: %v", body)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/nope", "user-1", "")
	if status != http.StatusNotFound || body["error"] != "not_found" {
		t.Errorf("expected 404 not_found, got %d %v", status, body)
	}
}
