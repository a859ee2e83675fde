// Package helpers tiene utilidades compartidas por controllers y services.
package helpers

import (
	"encoding/json"
	"net/http"
)

// WriteJSON escribe una respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
