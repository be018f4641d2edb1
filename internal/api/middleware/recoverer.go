package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
)

// Recoverer turns panics into responses instead of dropped connections.
// When the request carries a usable source URL the client is redirected
// there, so a crashed conversion path still shows the user their media;
// everything else gets a plain 500.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					requestID := GetRequestID(r.Context())
					stack := debug.Stack()

					logger.Error("panic recovered",
						slog.String("request_id", requestID),
						slog.Any("panic", rec),
						slog.String("stack", string(stack)),
					)

					if origin := originURL(r); origin != "" {
						http.Redirect(w, r, origin, http.StatusFound)
						return
					}
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// originURL extracts a safe redirect target from the request's url
// parameter, if any.
func originURL(r *http.Request) string {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ""
	}
	return raw
}
