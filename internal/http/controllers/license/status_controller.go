package license

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	dto "github.com/dropDatabas3/licensegate/internal/http/dto/license"
	httperrors "github.com/dropDatabas3/licensegate/internal/http/errors"
	svc "github.com/dropDatabas3/licensegate/internal/http/services/license"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

// StatusController maneja GET /v1/license/status.
type StatusController struct {
	service svc.StatusService
}

// NewStatusController crea el controller.
func NewStatusController(service svc.StatusService) *StatusController {
	return &StatusController{service: service}
}

func (c *StatusController) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StatusController.Status"))

	q := r.URL.Query()
	resp, err := c.service.Status(ctx, dto.StatusRequest{Key: q.Get("key"), DeviceID: q.Get("deviceId")})
	if err != nil {
		var ie *svc.InputError
		if errors.As(err, &ie) {
			httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail(ie.Detail))
			return
		}
		log.Error("status query failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}
	render.JSON(w, r, resp)
}
