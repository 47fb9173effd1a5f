package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned when a request carries no verified user.
var ErrUnauthenticated = errors.New("user not authenticated")

type contextKey string

const userClaimsKey contextKey = "user_claims"

// WithUserClaims adds user claims to the context
func WithUserClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

// GetUserClaims extracts user claims from context
func GetUserClaims(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(*UserClaims)
	return claims, ok
}

// GetUserID is a convenience function to get the user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	if claims, ok := GetUserClaims(ctx); ok {
		return claims.UID, true
	}
	return "", false
}

// RequireAuth extracts user claims from context or returns ErrUnauthenticated
func RequireAuth(ctx context.Context) (*UserClaims, error) {
	claims, ok := GetUserClaims(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}
