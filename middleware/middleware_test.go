package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/amgst/vancegraphix.com.au-sub000/handlers/auth"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func tokenFor(t *testing.T, user *core.User) string {
	t.Helper()
	auth.SetSecret("middleware-secret")
	token, err := auth.CreateJWT(user)
	if err != nil {
		t.Fatalf("CreateJWT() failed: %v", err)
	}
	return token
}

func TestAuthJWT(t *testing.T) {
	token := tokenFor(t, &core.User{Subject: "s", Login: "vance"})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			AuthJWT(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name   string
		admins []string
		user   *core.User
		want   int
	}{
		{"empty admin list", nil, &core.User{Subject: "s", Login: "anyone"}, http.StatusForbidden},
		{"empty email does not match", []string{""}, &core.User{Subject: "s", Login: "anyone"}, http.StatusForbidden},
		{"login match", []string{"Vance"}, &core.User{Subject: "s", Login: "vance"}, http.StatusOK},
		{"email match", []string{"owner@example.com"}, &core.User{Subject: "s", Login: "x", Email: "owner@example.com"}, http.StatusOK},
		{"not an admin", []string{"owner@example.com"}, &core.User{Subject: "s", Login: "guest"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, tt.user))
			rr := httptest.NewRecorder()

			AuthJWT(RequireAdmin(tt.admins)(http.HandlerFunc(okHandler))).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRequireAdmin_WithoutClaims(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireAdmin(nil)(http.HandlerFunc(okHandler)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/api/gallery/{gallery}", okHandler)

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/gallery/print", nil))
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	var count float64
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] == "/api/gallery/{gallery}" && labels["code"] == "200" {
				count = metric.GetCounter().GetValue()
			}
		}
	}
	if count != 3 {
		t.Errorf("http_requests_total = %v, want 3", count)
	}
}
