package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const SellerKey contextKey = "seller"

// Claims identify the seller operating the API.
type Claims struct {
	Seller string `json:"seller"`
	jwt.RegisteredClaims
}

// RequireAuth accepts HMAC-signed bearer tokens issued with jwtSecret.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "missing authorization header", "auth_required")
				return
			}

			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				writeAuthError(w, "invalid authorization scheme", "auth_invalid_scheme")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				writeAuthError(w, "invalid token", "auth_invalid")
				return
			}

			seller := claims.Seller
			if seller == "" {
				seller = claims.Subject
			}
			ctx := context.WithValue(r.Context(), SellerKey, seller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSeller returns the seller authenticated for the request.
func GetSeller(ctx context.Context) (string, bool) {
	seller, ok := ctx.Value(SellerKey).(string)
	return seller, ok && seller != ""
}

func writeAuthError(w http.ResponseWriter, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
		"code":  code,
	})
}
