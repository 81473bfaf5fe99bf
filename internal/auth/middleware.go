package auth

import (
	"net/http"
	"strings"

	"github.com/smartexpense/smartexpense/internal/platform/httpx"
	"github.com/smartexpense/smartexpense/internal/shared"
)

// Verifier resolves a bearer token into an identity.
type Verifier interface {
	Verify(token string) (shared.Identity, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httpx.Error(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}
			identity, err := verifier.Verify(token)
			if err != nil {
				httpx.Error(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
