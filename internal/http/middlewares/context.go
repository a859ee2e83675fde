package middlewares

import (
	"context"

	jwtx "github.com/dropDatabas3/licensegate/internal/jwt"
)

type ctxKey string

const (
	// ctxClaimsKey guarda las claims de la credencial verificada
	ctxClaimsKey ctxKey = "access_claims"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithAccessClaims inyecta las claims verificadas en el contexto.
func WithAccessClaims(ctx context.Context, c *jwtx.AccessClaims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, c)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetAccessClaims obtiene las claims del contexto.
// Retorna nil si RequireAccessToken no se aplicó.
func GetAccessClaims(ctx context.Context) *jwtx.AccessClaims {
	if c, ok := ctx.Value(ctxClaimsKey).(*jwtx.AccessClaims); ok {
		return c
	}
	return nil
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}
