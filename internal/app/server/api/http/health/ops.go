package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Card store health",
		Description: "Always 200. status is DEGRADED when the card header cannot be read; store carries the error code and cards the stored card count.",
		Tags:        []string{"health"},
		Middlewares: h.middleware,
	}
}
