package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/rifqiarief/cetak3d-backend/internal/auth"
)

type ctxKey int

const claimsKey ctxKey = iota

// Authenticate: Bearer token wajib; klaim ditaruh di context buat handler.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			tok := strings.TrimPrefix(h, "Bearer ")
			if h == "" || tok == h {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "butuh Bearer token")
				return
			}
			claims, err := auth.Verify(secret, tok)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "token tidak valid atau kedaluwarsa")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// RequireAdmin dipasang setelah Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := ClaimsFrom(r.Context())
		if c == nil || !c.IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden", "khusus admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ClaimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}
