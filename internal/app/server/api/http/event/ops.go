package event

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "events-list",
		Method:      http.MethodGet,
		Path:        "/cards/events",
		Summary:     "Card operation journal",
		Description: "Newest first.",
		Tags:        []string{"events"},
		Middlewares: h.middleware,
	}
}
