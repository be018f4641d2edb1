package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the Prometheus registry. When token is non-empty the
// endpoint requires "Authorization: Bearer <token>"; an empty token leaves
// it open, for deployments that fence it off at the network layer.
func Metrics(token string) http.Handler {
	inner := promhttp.Handler()
	if token == "" {
		return inner
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			Error(w, http.StatusUnauthorized, "unauthorized", "A valid bearer token is required")
			return
		}
		inner.ServeHTTP(w, r)
	})
}
