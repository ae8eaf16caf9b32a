package event

import (
	"context"
	"errors"

	"doorkeeper/internal/domain/event"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service    event.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service event.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	events, err := h.service.List(ctx, input.Limit)
	if errors.Is(err, event.ErrInvalidLimit) {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if err != nil {
		h.log.Error("list events", "error", err)
		return nil, huma.Error503ServiceUnavailable("journal unavailable")
	}

	out := &listOutput{}
	out.Body.Count = len(events)
	out.Body.Events = events
	return out, nil
}
