package api

import (
	"crypto/sha256"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AuthMiddleware validates the bearer token against the configured bcrypt
// hash. An empty configured hash disables authentication, which is the
// expected deployment on a trusted home network.
func AuthMiddleware(deps *Dependencies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hash := deps.Config.APITokenHash
			if hash == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				WriteUnauthorizedError(w)
				return
			}

			// bcrypt caps input at 72 bytes; hash first so arbitrarily
			// long tokens still compare over their full length
			digest := sha256.Sum256([]byte(token))
			if err := bcrypt.CompareHashAndPassword([]byte(hash), digest[:]); err != nil {
				WriteError(w, http.StatusUnauthorized, ErrCodeAuthentication, "Invalid token", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// HashToken produces the bcrypt hash of a token in the form AuthMiddleware
// verifies. Used by the token-generation command.
func HashToken(token string) (string, error) {
	digest := sha256.Sum256([]byte(token))
	hash, err := bcrypt.GenerateFromPassword(digest[:], bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
