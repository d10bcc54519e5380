package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/pulsewatch/vigil/internal/db"
)

// Auth guards mutating routes with Bearer API keys. While no key exists
// the guard stands down, so a fresh deployment can mint its first key
// over the same API.
type Auth struct {
	store  *db.Store
	logger *log.Logger
}

func NewAuth(store *db.Store, logger *log.Logger) *Auth {
	return &Auth{store: store, logger: logger}
}

// Require rejects requests that carry no valid key, unless the key
// table is still empty.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key, ok := bearerToken(r); ok {
			valid, err := a.store.ValidateAPIKey(key)
			if err == nil && valid {
				next.ServeHTTP(w, r)
				return
			}
		}

		n, err := a.store.CountAPIKeys()
		if err == nil && n == 0 {
			next.ServeHTTP(w, r)
			return
		}

		a.logger.Printf("auth: rejected %s %s from %s", r.Method, sanitizeLog(r.URL.Path), extractIP(r))
		writeError(w, http.StatusUnauthorized, "unauthorized")
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):], true
	}
	return "", false
}
