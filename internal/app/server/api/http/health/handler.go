package health

import (
	"context"

	"doorkeeper/internal/domain/card"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

const (
	StatusOK       = "OK"
	StatusDegraded = "DEGRADED"
)

// Counter is the slice of the card store the health check reads.
type Counter interface {
	Count(ctx context.Context) (uint16, error)
}

type Handler struct {
	store      Counter
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store Counter, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

// healthCheck stays 200 while the store is broken so the device remains reachable for
// a reset; the body says DEGRADED.
func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	n, err := h.store.Count(ctx)
	if err != nil {
		h.log.Warn("card store unhealthy", "error", err)
		return &Output{
			Body: Response{Status: StatusDegraded, Store: card.Code(err)},
		}, nil
	}

	return &Output{
		Body: Response{
			Status: StatusOK,
			Store:  card.Code(nil),
			Cards:  n,
		},
	}, nil
}
