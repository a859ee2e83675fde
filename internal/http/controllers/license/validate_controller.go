// Package license contiene los controllers de los endpoints de licencias.
package license

import (
	"net/http"

	"github.com/go-chi/render"

	dto "github.com/dropDatabas3/licensegate/internal/http/dto/license"
	"github.com/dropDatabas3/licensegate/internal/http/helpers"
	svc "github.com/dropDatabas3/licensegate/internal/http/services/license"
	"github.com/dropDatabas3/licensegate/internal/licensing"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

// ValidateController maneja GET /v1/license/validate.
type ValidateController struct {
	service svc.ValidateService
}

// NewValidateController crea el controller.
func NewValidateController(service svc.ValidateService) *ValidateController {
	return &ValidateController{service: service}
}

// Validate siempre responde {valid, reason}, también ante errores internos.
func (c *ValidateController) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ValidateController.Validate"))

	q := r.URL.Query()
	in := dto.ValidateRequest{
		Key:      q.Get("key"),
		DeviceID: q.Get("deviceId"),
		Version:  q.Get("version"),
	}
	meta := svc.RequestMeta{
		IP:        helpers.ClientIP(r),
		UserAgent: r.UserAgent(),
		Endpoint:  r.URL.Path,
	}

	d, err := c.service.Validate(ctx, in, meta)
	if err != nil {
		log.Debug("validation ended with infrastructure error")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, dto.ValidateResponse{Valid: false, Reason: licensing.OutcomeError.String()})
		return
	}

	render.Status(r, statusFor(d.Outcome))
	render.JSON(w, r, toResponse(d))
}

func statusFor(o licensing.Outcome) int {
	switch o {
	case licensing.OutcomeInvalidRequest:
		return http.StatusBadRequest
	case licensing.OutcomeError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func toResponse(d *svc.Decision) dto.ValidateResponse {
	resp := dto.ValidateResponse{
		Valid:  d.Outcome.Granted(),
		Reason: d.Outcome.String(),
	}
	switch d.Outcome {
	case licensing.OutcomeMaintenance, licensing.OutcomeInvalidRequest:
		resp.Message = d.Message
	case licensing.OutcomeDeviceMismatch:
		resp.DeviceID = d.DeviceID
		resp.BoundDeviceID = d.BoundDeviceID
	case licensing.OutcomeUpdateRequired:
		resp.DeviceID = d.DeviceID
		resp.NewDevice = d.NewDevice
		resp.UpdateNotification = d.Update
	case licensing.OutcomeValid:
		resp.DeviceID = d.DeviceID
		resp.NewDevice = d.NewDevice
		resp.Token = d.Token
		exp := d.ExpiresAt.UTC()
		resp.ExpiresAt = &exp
	}
	return resp
}
