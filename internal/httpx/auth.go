package httpx

import (
	"net/http"
	"strings"

	"github.com/ariefcatur/go-retail-ledger/internal/authz"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by dashboard tokens. Issuance happens elsewhere.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func unauthenticated(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "UNAUTHORIZED", Detail: detail})
}

// Authenticate verifies the HS256 bearer token and stores the actor in the
// request context.
func Authenticate(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
				unauthenticated(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(header[len("Bearer "):])
			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				unauthenticated(w, "invalid token")
				return
			}
			if claims.Subject == "" || claims.Role == "" {
				unauthenticated(w, "token is missing sub or role")
				return
			}
			actor := authz.Actor{ID: claims.Subject, Role: authz.ParseRole(claims.Role)}
			next.ServeHTTP(w, r.WithContext(authz.WithActor(r.Context(), actor)))
		})
	}
}
