package license

// VersionResponse describe la política de versión activa. Vacío si no hay.
type VersionResponse struct {
	MinimumVersion string `json:"minimumVersion,omitempty"`
	CurrentVersion string `json:"currentVersion,omitempty"`
	DownloadURL    string `json:"downloadUrl,omitempty"`
}

// TokenInfoResponse es lo que devuelve GET /v1/token/verify.
type TokenInfoResponse struct {
	DeviceID string `json:"deviceId"`
}
