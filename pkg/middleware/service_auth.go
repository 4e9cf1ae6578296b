package middleware

import (
	"net/http"
	"roomly/pkg/logger"
	"roomly/pkg/token"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// ServiceAuth guards internal routes. Callers present a short-lived
// sealed service token as a Bearer credential; end-user credentials
// are never accepted here. Applied per-route so the public surface of
// the same router stays open.
func ServiceAuth(tokenKey string, allowed []string, log *logger.Logger, next httprouter.Handle) httprouter.Handle {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, svc := range allowed {
		allowedSet[svc] = struct{}{}
	}

	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		auth := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || raw == "" {
			rejectUnauthorized(w, log, r, "missing bearer token")
			return
		}

		service, err := token.Verify(tokenKey, raw)
		if err != nil {
			rejectUnauthorized(w, log, r, err.Error())
			return
		}

		if _, ok := allowedSet[service]; !ok {
			rejectUnauthorized(w, log, r, "service not allowed: "+service)
			return
		}

		next(w, r, ps)
	}
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Service authentication failed",
		"request_id", RequestIDFrom(r.Context()),
		"path", r.URL.Path,
		"reason", reason,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Invalid service credential"}`))
}
