package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/filecompare/internal/config"
)

// APIKeyHeader carries the admin key. A "Bearer" Authorization header is
// accepted as well.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth guards admin routes. When cfg.RequireAPIKey is false every
// request passes through.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	keys := make([][]byte, len(cfg.APIKeys))
	for i, k := range cfg.APIKeys {
		keys[i] = []byte(k)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			key := requestKey(r)
			if key == "" || !validKey(key, keys) {
				slog.Warn("auth: rejected admin request",
					"path", r.URL.Path,
					"method", r.Method,
					"ip", ClientIP(r),
					"key_present", key != "",
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "unauthorized",
					"message": "Access denied",
					"action":  "Provide a valid API key",
					"code":    "AUTH001",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestKey(r *http.Request) string {
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return k
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// validKey compares against every configured key so timing does not reveal
// which one matched.
func validKey(key string, keys [][]byte) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare([]byte(key), k)
	}
	return match == 1
}
