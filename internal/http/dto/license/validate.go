// Package license contiene DTOs de los endpoints de licencias.
package license

import (
	"time"

	"github.com/dropDatabas3/licensegate/internal/licensing"
)

// ValidateRequest son los query params de GET /v1/license/validate.
type ValidateRequest struct {
	Key      string `query:"key" validate:"required"`
	DeviceID string `query:"deviceId" validate:"required"`
	// Version nunca invalida el request: ver licensing.ClientVersion.
	Version string `query:"version"`
}

// ValidateResponse es el body de la validación. Los campos presentes
// dependen del reason.
type ValidateResponse struct {
	Valid              bool                  `json:"valid"`
	Reason             string                `json:"reason"`
	Message            string                `json:"message,omitempty"`
	DeviceID           string                `json:"deviceId,omitempty"`
	BoundDeviceID      string                `json:"boundDeviceId,omitempty"`
	NewDevice          bool                  `json:"newDevice,omitempty"`
	Token              string                `json:"token,omitempty"`
	ExpiresAt          *time.Time            `json:"expiresAt,omitempty"`
	UpdateNotification *licensing.UpdateInfo `json:"updateNotification,omitempty"`
}
