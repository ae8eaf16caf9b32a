package card

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "cards-list",
		Method:      http.MethodGet,
		Path:        "/cards/get",
		Summary:     "List all cards",
		Description: "Returns {status, count, cards}. When the response buffer cannot hold every card the array is cut short and status is \"truncated\"; count still holds the number of stored cards.",
		Tags:        []string{"cards"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) addOp() huma.Operation {
	return huma.Operation{
		OperationID:   "cards-add",
		Method:        http.MethodPost,
		Path:          "/cards/add",
		Summary:       "Add a card",
		Tags:          []string{"cards"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
		Middlewares:   h.guarded,
	}
}

func (h *Handler) removeOp() huma.Operation {
	return huma.Operation{
		OperationID: "cards-remove",
		Method:      http.MethodDelete,
		Path:        "/cards/remove",
		Summary:     "Remove a card",
		Description: "The admin card cannot be removed.",
		Tags:        []string{"cards"},
		Security:    bearer,
		Middlewares: h.guarded,
	}
}

func (h *Handler) countOp() huma.Operation {
	return huma.Operation{
		OperationID: "cards-count",
		Method:      http.MethodGet,
		Path:        "/cards/count",
		Summary:     "Number of stored cards",
		Tags:        []string{"cards"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) checkOp() huma.Operation {
	return huma.Operation{
		OperationID: "cards-check",
		Method:      http.MethodGet,
		Path:        "/cards/check",
		Summary:     "Check whether a card is present and active",
		Tags:        []string{"cards"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resetOp() huma.Operation {
	return huma.Operation{
		OperationID: "cards-reset",
		Method:      http.MethodPost,
		Path:        "/cards/reset",
		Summary:     "Reset to the default cards",
		Description: "Formats the database and loads the built-in cards.",
		Tags:        []string{"cards"},
		Security:    bearer,
		Middlewares: h.guarded,
	}
}

func (h *Handler) formatOp() huma.Operation {
	return huma.Operation{
		OperationID: "cards-format",
		Method:      http.MethodPost,
		Path:        "/cards/format",
		Summary:     "Erase every card",
		Tags:        []string{"cards"},
		Security:    bearer,
		Middlewares: h.guarded,
	}
}

func (h *Handler) defaultsOp() huma.Operation {
	return huma.Operation{
		OperationID: "cards-defaults",
		Method:      http.MethodGet,
		Path:        "/cards/defaults",
		Summary:     "Built-in cards",
		Tags:        []string{"cards"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) validateOp() huma.Operation {
	return huma.Operation{
		OperationID: "cards-validate",
		Method:      http.MethodGet,
		Path:        "/cards/validate",
		Summary:     "Check the on-flash database for corruption",
		Tags:        []string{"cards"},
		Middlewares: h.middleware,
	}
}
