package license

import svc "github.com/dropDatabas3/licensegate/internal/http/services/license"

// Controllers agrupa los controllers del dominio license.
type Controllers struct {
	Validate *ValidateController
	Status   *StatusController
	Version  *VersionController
}

// NewControllers crea el agregador a partir de los services.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Validate: NewValidateController(s.Validate),
		Status:   NewStatusController(s.Status),
		Version:  NewVersionController(s.Version),
	}
}
