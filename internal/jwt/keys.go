package jwt

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLen es el largo mínimo del secreto del servidor.
const MinSecretLen = 32

// signingKeyInfo separa la clave de credenciales de cualquier otro uso del
// mismo secreto. Cambiarlo invalida todos los tokens emitidos.
const signingKeyInfo = "license-access-v1"

// DeriveSigningKey deriva una clave HMAC de 32 bytes desde el secreto del
// servidor con HKDF-SHA256.
func DeriveSigningKey(secret []byte) ([]byte, error) {
	if len(secret) < MinSecretLen {
		return nil, errors.New("jwt: secret must be at least 32 bytes")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(signingKeyInfo)), key); err != nil {
		return nil, err
	}
	return key, nil
}
