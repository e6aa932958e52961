package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/patente-quiz/backend/internal/models"
)

type contextKey string

const learnerIDKey contextKey = "learner_id"

// Auth validates an HS256 bearer token and stores its subject as the
// learner ID on the request context. Issuing tokens is the identity
// service's job; this side only verifies them.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			learnerID, err := ParseToken(secret, tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithLearnerID(r.Context(), learnerID)))
		})
	}
}

// ParseToken verifies tokenString and returns its "sub" claim.
func ParseToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(sub) == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// SignToken issues a token for learnerID. Used by local tooling and tests.
func SignToken(secret []byte, learnerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": learnerID,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func WithLearnerID(ctx context.Context, learnerID string) context.Context {
	return context.WithValue(ctx, learnerIDKey, learnerID)
}

// LearnerID returns the authenticated learner, if any.
func LearnerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(learnerIDKey).(string)
	return id, ok && id != ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}
