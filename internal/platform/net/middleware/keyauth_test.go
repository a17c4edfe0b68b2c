package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bridgebot/internal/platform/net/middleware"
)

const wantKey = "sekret"

func expected() (string, bool) { return wantKey, true }

func serve(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	var nextCalled bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, req)
	return rr, nextCalled
}

func TestKeyAuthBearer(t *testing.T) {
	mw := middleware.KeyAuth(expected, middleware.KeyAuthOptions{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+wantKey)

	rr, called := serve(t, mw, req)
	if !called || rr.Code != http.StatusOK {
		t.Fatalf("expected pass-through, called=%v code=%d", called, rr.Code)
	}
}

func TestKeyAuthHeader(t *testing.T) {
	mw := middleware.KeyAuth(expected, middleware.KeyAuthOptions{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Api-Key", wantKey)

	rr, called := serve(t, mw, req)
	if !called || rr.Code != http.StatusOK {
		t.Fatalf("expected pass-through, called=%v code=%d", called, rr.Code)
	}
}

func TestKeyAuthMissingKey(t *testing.T) {
	mw := middleware.KeyAuth(expected, middleware.KeyAuthOptions{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rr, called := serve(t, mw, req)
	if called {
		t.Fatal("next must not run without a key")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestKeyAuthWrongKey(t *testing.T) {
	mw := middleware.KeyAuth(expected, middleware.KeyAuthOptions{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Api-Key", "nope")

	rr, called := serve(t, mw, req)
	if called || rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, called=%v code=%d", called, rr.Code)
	}
}

func TestKeyAuthQueryDisabledByDefault(t *testing.T) {
	mw := middleware.KeyAuth(expected, middleware.KeyAuthOptions{})
	req := httptest.NewRequest(http.MethodGet, "/?api_key="+wantKey, nil)

	rr, called := serve(t, mw, req)
	if called || rr.Code != http.StatusUnauthorized {
		t.Fatalf("query key must not authorize by default, called=%v code=%d", called, rr.Code)
	}
}

func TestKeyAuthQueryWhenAllowed(t *testing.T) {
	mw := middleware.KeyAuth(expected, middleware.KeyAuthOptions{AllowQuery: true})
	req := httptest.NewRequest(http.MethodGet, "/?api_key="+wantKey, nil)

	rr, called := serve(t, mw, req)
	if !called || rr.Code != http.StatusOK {
		t.Fatalf("expected query key to authorize, called=%v code=%d", called, rr.Code)
	}
}

func TestKeyAuthNoExpectedKey(t *testing.T) {
	mw := middleware.KeyAuth(func() (string, bool) { return "", false }, middleware.KeyAuthOptions{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Api-Key", wantKey)

	rr, called := serve(t, mw, req)
	if called || rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing scope must read as unauthorized, called=%v code=%d", called, rr.Code)
	}
}

func TestKeyAuthBearerPrecedesHeader(t *testing.T) {
	mw := middleware.KeyAuth(expected, middleware.KeyAuthOptions{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	req.Header.Set("X-Api-Key", wantKey)

	rr, called := serve(t, mw, req)
	if called || rr.Code != http.StatusUnauthorized {
		t.Fatalf("bearer value wins over the header, called=%v code=%d", called, rr.Code)
	}
}
