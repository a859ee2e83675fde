package jwt

import (
	"errors"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken es el único error que devuelve Verify. Firma inválida,
// token vencido, purpose incorrecto o token malformado son indistinguibles
// para el caller.
var ErrInvalidToken = errors.New("invalid_token")

// Verify valida firma (HS256), iss, exp/iat/nbf sin tolerancia y el purpose.
// No toca ningún store.
func (i *Issuer) Verify(token string) (*AccessClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &AccessClaims{}
	tok, err := jwtv5.ParseWithClaims(token, claims,
		func(*jwtv5.Token) (any, error) { return i.key, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithIssuedAt(),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithTimeFunc(i.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != PurposeLicenseAccess || claims.DeviceID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
