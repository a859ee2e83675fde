package license

import "time"

// StatusRequest son los query params de GET /v1/license/status.
type StatusRequest struct {
	Key      string `query:"key" validate:"required"`
	DeviceID string `query:"deviceId"`
}

// License status.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
	StatusRevoked = "revoked"
	StatusInvalid = "invalid"
)

// StatusResponse es la consulta de solo lectura sobre una licencia.
type StatusResponse struct {
	Status        string     `json:"status"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	DaysRemaining *int       `json:"daysRemaining,omitempty"`
	Bound         bool       `json:"bound"`
	ThisDevice    bool       `json:"thisDevice"`
}
