package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	stdjson "encoding/json"
	"net/http"
	"strings"

	perr "bridgebot/internal/platform/errors"
	pnet "bridgebot/internal/platform/net"
)

// KeyAuthOptions configures where the API key may be presented
type KeyAuthOptions struct {
	// AllowQuery additionally accepts the key as a query parameter. Only the
	// polling endpoint enables this, for clients that cannot set headers
	AllowQuery bool
	// QueryParam is the query parameter name, default "api_key"
	QueryParam string
	// Header is the dedicated key header, default "X-Api-Key"
	Header string
}

// KeyAuth enforces a static API key on every request. expected returns the
// key for the scope this listener serves; when it reports false the request
// is rejected with the same Unauthorized body as a bad key, so callers
// cannot distinguish a missing service from a wrong credential
func KeyAuth(expected func() (string, bool), opt KeyAuthOptions) func(http.Handler) http.Handler {
	if opt.QueryParam == "" {
		opt.QueryParam = "api_key"
	}
	if opt.Header == "" {
		opt.Header = "X-Api-Key"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := presentedKey(r, opt)
			want, ok := expected()
			if !ok || key == "" || !equalKeys(key, want) {
				writeUnauthorized(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// presentedKey extracts the key from Bearer auth, the key header, or
// (when allowed) the query string, in that order
func presentedKey(r *http.Request, opt KeyAuthOptions) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz != "" {
		const prefix = "bearer"
		if len(authz) > len(prefix) && strings.EqualFold(authz[:len(prefix)], prefix) {
			if raw := strings.TrimSpace(authz[len(prefix):]); raw != "" {
				return raw
			}
		}
	}
	if v := strings.TrimSpace(r.Header.Get(opt.Header)); v != "" {
		return v
	}
	if opt.AllowQuery {
		if v := strings.TrimSpace(r.URL.Query().Get(opt.QueryParam)); v != "" {
			return v
		}
	}
	return ""
}

// equalKeys compares via fixed-size digests so neither content nor length
// short-circuits the comparison
func equalKeys(got, want string) bool {
	g := sha256.Sum256([]byte(got))
	w := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(g[:], w[:]) == 1
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	status, body := pnet.Error(perr.Unauthorizedf("invalid api key"), pnet.RequestID(r.Context()))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = stdjson.NewEncoder(w).Encode(body)
}
