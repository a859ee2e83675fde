package license

import (
	"net/http"

	"github.com/go-chi/render"

	httperrors "github.com/dropDatabas3/licensegate/internal/http/errors"
	svc "github.com/dropDatabas3/licensegate/internal/http/services/license"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

// VersionController maneja GET /v1/version.
type VersionController struct {
	service svc.VersionService
}

// NewVersionController crea el controller.
func NewVersionController(service svc.VersionService) *VersionController {
	return &VersionController{service: service}
}

func (c *VersionController) Current(w http.ResponseWriter, r *http.Request) {
	resp, err := c.service.Current(r.Context())
	if err != nil {
		logger.From(r.Context()).Error("version policy read failed",
			logger.Layer("controller"), logger.Op("VersionController.Current"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}
	render.JSON(w, r, resp)
}
