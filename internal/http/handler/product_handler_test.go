package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soukly/platform/internal/http/middleware"
)

func newCatalogRouterForTest(t *testing.T) (*chi.Mux, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	h := NewProductHandler(env.catalog, testLogger())

	r := chi.NewRouter()
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(env.jwt, testLogger()))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
	return r, env
}

func bearerFor(t *testing.T, env *testEnv, userID uint) string {
	t.Helper()
	token, err := env.jwt.SignAccessToken(userID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + token
}

func TestProductCreateRequiresAuth(t *testing.T) {
	r, _ := newCatalogRouterForTest(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/", strings.NewReader(`{"name":"Desk","price":100}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProductCRUD(t *testing.T) {
	r, env := newCatalogRouterForTest(t)
	auth := bearerFor(t, env, 7)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/", strings.NewReader(`{"name":"Walnut Desk","description":"solid wood","price":349.99}`))
	req.Header.Set("Authorization", auth)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	var created struct {
		ID       uint    `json:"id"`
		SellerID uint    `json:"seller_id"`
		Price    float64 `json:"price"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.SellerID != 7 {
		t.Errorf("seller = %d, want 7", created.SellerID)
	}

	// Public read, no auth.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	// Another seller cannot modify it.
	req = httptest.NewRequest(http.MethodPut, "/api/v1/products/1", strings.NewReader(`{"name":"Hijacked","price":1}`))
	req.Header.Set("Authorization", bearerFor(t, env, 8))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign update status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/products/1", nil)
	req.Header.Set("Authorization", auth)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestProductValidation(t *testing.T) {
	r, env := newCatalogRouterForTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/", strings.NewReader(`{"name":"ab","price":-1}`))
	req.Header.Set("Authorization", bearerFor(t, env, 1))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body struct {
		Details map[string]string `json:"details"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Details["name"] == "" || body.Details["price"] == "" {
		t.Errorf("details = %v", body.Details)
	}
}

func TestProductBadID(t *testing.T) {
	r, _ := newCatalogRouterForTest(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/notanumber", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
