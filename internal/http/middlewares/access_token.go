package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/licensegate/internal/http/errors"
	"github.com/dropDatabas3/licensegate/internal/http/helpers"
	jwtx "github.com/dropDatabas3/licensegate/internal/jwt"
	"github.com/dropDatabas3/licensegate/internal/metrics"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

// AccessVerifier verifica credenciales de acceso.
type AccessVerifier interface {
	Verify(token string) (*jwtx.AccessClaims, error)
}

const wwwAuthenticate = `Bearer realm="api", error="invalid_token"`

// RequireAccessToken valida Authorization: Bearer <credencial> y guarda las
// claims en el contexto. Toda falla responde el mismo 401: no se distingue
// ausente de vencida o adulterada.
func RequireAccessToken(v AccessVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.Verify(helpers.BearerToken(r))
			if err != nil {
				metrics.TokenVerifications.WithLabelValues("invalid").Inc()
				logger.From(r.Context()).Debug("access token rejected", logger.Layer("middleware"))
				w.Header().Set("WWW-Authenticate", wwwAuthenticate)
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			metrics.TokenVerifications.WithLabelValues("ok").Inc()

			ctx := WithAccessClaims(r.Context(), claims)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(
				logger.DeviceID(claims.DeviceID),
				logger.Fingerprint(claims.Fingerprint),
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
