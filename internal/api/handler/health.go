package handler

import (
	"net/http"
)

// Live handles GET /health/live. Load balancers expect a bare 200; the
// body is fixed so probes can match on it.
func Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
