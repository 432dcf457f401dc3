// Package tenantauth resolves the tenant scope for every request. The caller
// presents a bearer token minted by the platform's auth service; its claims
// name the cooperative and the acting officer. Handlers downstream read both
// from the request context and pass the cooperative ID into services
// explicitly.
package tenantauth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	"coopaml/pkg/platform/httputil"
	"coopaml/pkg/requestcontext"
)

// Claims are the token claims the engine requires.
type Claims struct {
	CooperativeID string `json:"cooperative_id"`
	jwt.RegisteredClaims
}

// Validator parses and verifies bearer tokens.
type Validator struct {
	signingKey []byte
}

func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

// ValidateToken verifies the token signature and returns its claims.
func (v *Validator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// RequireTenant rejects requests without a valid tenant-scoped bearer token
// and injects the cooperative scope and acting officer into the context.
func RequireTenant(validator *Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "rejected invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			coopID, err := id.ParseCooperativeID(claims.CooperativeID)
			if err != nil {
				logger.WarnContext(ctx, "token without tenant scope",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token carries no cooperative scope"))
				return
			}

			ctx = requestcontext.WithCooperativeID(ctx, coopID)
			if claims.Subject != "" {
				ctx = requestcontext.WithActorID(ctx, claims.Subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
