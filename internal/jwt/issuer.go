package jwt

import (
	"errors"
	"time"

	"github.com/google/uuid"
	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/licensegate/internal/licensing"
)

// PurposeLicenseAccess identifica la clase de credencial emitida tras una
// validación exitosa. Cualquier otro valor se rechaza al verificar.
const PurposeLicenseAccess = "license_access"

// DefaultAccessTTL es la vida de una credencial. No hay refresh: el cliente
// vuelve a validar para obtener otra.
const DefaultAccessTTL = 5 * time.Minute

// AccessClaims son las claims de la credencial de acceso.
type AccessClaims struct {
	Fingerprint string `json:"fp"`
	DeviceID    string `json:"device_id"`
	Purpose     string `json:"purpose"`
	jwtv5.RegisteredClaims
}

// Issuer firma y verifica credenciales de acceso con una clave HMAC derivada
// del secreto del servidor.
type Issuer struct {
	Iss       string        // "iss"
	AccessTTL time.Duration // 5m por defecto

	key []byte
	now func() time.Time
}

// Option configura un Issuer.
type Option func(*Issuer)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// WithTTL reemplaza la vida de la credencial.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.AccessTTL = ttl
		}
	}
}

// NewIssuer deriva la clave de firma a partir de secret.
func NewIssuer(iss string, secret []byte, opts ...Option) (*Issuer, error) {
	key, err := DeriveSigningKey(secret)
	if err != nil {
		return nil, err
	}
	i := &Issuer{
		Iss:       iss,
		AccessTTL: DefaultAccessTTL,
		key:       key,
		now:       time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// Issue emite una credencial para licenseKey/deviceID. La key nunca viaja en
// el token, solo su fingerprint.
func (i *Issuer) Issue(licenseKey, deviceID string) (string, time.Time, error) {
	if licenseKey == "" || deviceID == "" {
		return "", time.Time{}, errors.New("jwt: license key and device id are required")
	}
	now := i.now().UTC()
	exp := now.Add(i.AccessTTL)

	claims := AccessClaims{
		Fingerprint: licensing.Fingerprint(licenseKey),
		DeviceID:    deviceID,
		Purpose:     PurposeLicenseAccess,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   deviceID,
			ID:        uuid.NewString(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
