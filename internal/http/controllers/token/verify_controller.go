// Package token contiene el controller de verificación de credenciales para
// servicios downstream que no embeben el verificador.
package token

import (
	"net/http"

	dto "github.com/dropDatabas3/licensegate/internal/http/dto/license"
	httperrors "github.com/dropDatabas3/licensegate/internal/http/errors"
	"github.com/dropDatabas3/licensegate/internal/http/helpers"
	mw "github.com/dropDatabas3/licensegate/internal/http/middlewares"
)

// VerifyController maneja GET /v1/token/verify. Debe montarse detrás de
// RequireAccessToken.
type VerifyController struct{}

// NewVerifyController crea el controller.
func NewVerifyController() *VerifyController { return &VerifyController{} }

func (c *VerifyController) Verify(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetAccessClaims(r.Context())
	if claims == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.TokenInfoResponse{DeviceID: claims.DeviceID})
}
