package card

import (
	"context"
	"errors"

	"doorkeeper/internal/domain/card"
	"doorkeeper/internal/domain/event"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// DefaultBufferSize is the /cards/get response buffer when none is configured.
const DefaultBufferSize = 8192

// Journal receives the outcome of every card operation.
type Journal interface {
	Record(ctx context.Context, action event.Action, cardID uint32, outcome string)
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, event.Action, uint32, string) {}

type Handler struct {
	service    card.Servicer
	journal    Journal
	bufferSize int
	log        *slog.Logger
	middleware huma.Middlewares
	guarded    huma.Middlewares
}

// NewHandler builds the card routes. mws apply to read routes, guarded to routes that
// modify the database. journal and bufferSize may be zero values.
func NewHandler(service card.Servicer, journal Journal, bufferSize int, log *slog.Logger, mws, guarded huma.Middlewares) *Handler {
	if journal == nil {
		journal = nopJournal{}
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Handler{
		service:    service,
		journal:    journal,
		bufferSize: bufferSize,
		log:        log.With("component", "card_handler"),
		middleware: mws,
		guarded:    guarded,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.addOp(), h.add)
	huma.Register(api, h.removeOp(), h.remove)
	huma.Register(api, h.countOp(), h.count)
	huma.Register(api, h.checkOp(), h.check)
	huma.Register(api, h.resetOp(), h.reset)
	huma.Register(api, h.formatOp(), h.format)
	huma.Register(api, h.defaultsOp(), h.defaults)
	huma.Register(api, h.validateOp(), h.validate)
}

func (h *Handler) fail(op string, err error) error {
	apiErr := newAPIError(err)
	if apiErr.status >= 500 {
		h.log.Error(op+" failed", "status", apiErr.status, "error", err)
	} else {
		h.log.Warn(op+" rejected", "status", apiErr.status, "error", err)
	}
	return apiErr
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	if err := h.service.Validate(ctx); err != nil {
		return nil, h.fail("list", err)
	}

	buf := make([]byte, h.bufferSize)
	n, err := h.service.ToJSON(ctx, buf)
	switch {
	case err == nil:
	case errors.Is(err, card.ErrInsufficientCapacity) && n > 0:
		h.log.Warn("card list truncated", "buffer", h.bufferSize, "error", err)
	default:
		return nil, h.fail("list", err)
	}

	return &listOutput{
		ContentType: "application/json",
		Body:        buf[:n],
	}, nil
}

func (h *Handler) add(ctx context.Context, input *addInput) (*messageOutput, error) {
	err := h.service.Add(ctx, input.Body.ID, input.Body.Name)
	h.journal.Record(ctx, event.ActionAdd, input.Body.ID, card.Code(err))
	if err != nil {
		return nil, h.fail("add", err)
	}

	return &messageOutput{
		Body: statusResponse{Status: statusSuccess, Message: "Card added successfully"},
	}, nil
}

func (h *Handler) remove(ctx context.Context, input *idInput) (*messageOutput, error) {
	err := h.service.Remove(ctx, input.ID)
	h.journal.Record(ctx, event.ActionRemove, input.ID, card.Code(err))
	if err != nil {
		return nil, h.fail("remove", err)
	}

	return &messageOutput{
		Body: statusResponse{Status: statusSuccess, Message: "Card removed"},
	}, nil
}

func (h *Handler) count(ctx context.Context, _ *struct{}) (*countOutput, error) {
	n, err := h.service.Count(ctx)
	if err != nil {
		return nil, h.fail("count", err)
	}

	out := &countOutput{}
	out.Body.CardCount = n
	return out, nil
}

func (h *Handler) check(ctx context.Context, input *idInput) (*checkOutput, error) {
	status, err := h.service.Check(ctx, input.ID)
	h.journal.Record(ctx, event.ActionCheck, input.ID, card.Code(err))
	if err != nil {
		return nil, h.fail("check", err)
	}

	out := &checkOutput{}
	out.Body.Exists = status.Found()
	out.Body.Active = status == card.StatusActive
	out.Body.Status = status.String()
	return out, nil
}

func (h *Handler) reset(ctx context.Context, _ *struct{}) (*messageOutput, error) {
	err := h.service.Format(ctx)
	if err == nil {
		err = h.service.LoadDefaults(ctx)
	}
	h.journal.Record(ctx, event.ActionReset, 0, card.Code(err))
	if err != nil {
		return nil, h.fail("reset", err)
	}

	return &messageOutput{
		Body: statusResponse{Status: statusSuccess, Message: "RFID card database reset successfully"},
	}, nil
}

func (h *Handler) format(ctx context.Context, _ *struct{}) (*messageOutput, error) {
	err := h.service.Format(ctx)
	h.journal.Record(ctx, event.ActionFormat, 0, card.Code(err))
	if err != nil {
		return nil, h.fail("format", err)
	}

	return &messageOutput{
		Body: statusResponse{Status: statusSuccess, Message: "RFID card database formatted"},
	}, nil
}

func (h *Handler) defaults(_ context.Context, _ *struct{}) (*defaultsOutput, error) {
	defaults := card.Defaults()

	out := &defaultsOutput{}
	out.Body.Status = statusSuccess
	out.Body.Count = len(defaults)
	out.Body.Cards = make([]defaultCard, 0, len(defaults))
	for _, c := range defaults {
		out.Body.Cards = append(out.Body.Cards, defaultCard{
			ID:      c.ID,
			Name:    c.Name,
			Active:  c.Active,
			Default: true,
		})
	}
	return out, nil
}

func (h *Handler) validate(ctx context.Context, _ *struct{}) (*validateOutput, error) {
	err := h.service.Validate(ctx)

	out := &validateOutput{}
	switch {
	case err == nil:
		out.Body.Valid = true
	case errors.Is(err, card.ErrCorruptState):
		out.Body.Error = err.Error()
	default:
		return nil, h.fail("validate", err)
	}
	return out, nil
}
