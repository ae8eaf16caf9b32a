// Routes served by the device:
//
//	GET    /cards/get              list cards (JSON document, may be truncated)
//	POST   /cards/add              add a card {id, nm} (auth)
//	DELETE /cards/remove?id=       remove a card (auth)
//	GET    /cards/count            {"card_count": n}
//	GET    /cards/check?id=        {"exists": bool, "active": bool}
//	POST   /cards/reset            format and load the default cards (auth)
//	POST   /cards/format           erase all cards (auth)
//	GET    /cards/defaults         built-in cards
//	GET    /cards/validate         on-flash consistency check
//	GET    /cards/events?limit=    operation journal, when enabled
//	GET    /api/v1/health
package api

import (
	"net/http"
	"time"

	cardAPI "doorkeeper/internal/app/server/api/http/card"
	eventAPI "doorkeeper/internal/app/server/api/http/event"
	healthAPI "doorkeeper/internal/app/server/api/http/health"
	"doorkeeper/internal/app/server/api/http/middleware"
	"doorkeeper/internal/app/server/api/http/middleware/auth"
	"doorkeeper/internal/app/server/api/http/middleware/logger"
	"doorkeeper/internal/config"
	"doorkeeper/internal/domain/card"
	"doorkeeper/internal/domain/event"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health *healthAPI.Handler
	Card   *cardAPI.Handler
	Event  *eventAPI.Handler
}

// New builds the router. journal may be nil, in which case /cards/events is not served
// and card operations are not journaled.
func New(cfg *config.Config, cards card.Servicer, journal event.Servicer, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	if len(cfg.Server.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", logger.RequestIDHeader},
			ExposedHeaders: []string{logger.RequestIDHeader},
			MaxAge:         300,
		}))
	}
	if cfg.Server.RateLimitRPM > 0 {
		mux.Use(httprate.LimitByIP(cfg.Server.RateLimitRPM, time.Minute))
	}

	humaConfig := huma.DefaultConfig("Doorkeeper API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, humaConfig)

	h := handlers(cfg, cards, journal, log)
	h.Health.SetupRoutes(API)
	h.Card.SetupRoutes(API)
	if h.Event != nil {
		h.Event.SetupRoutes(API)
	}

	return mux
}

func handlers(cfg *config.Config, cards card.Servicer, journal event.Servicer, log *slog.Logger) *Handlers {
	authMW := auth.New(cfg.Auth.TokenHash, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	if !authMW.Enabled() {
		log.Warn("API_TOKEN_HASH is empty, mutating card routes are open")
	}

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(cards, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	readMWs := middlewares.GetAllAndClear()
	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	writeMWs := middlewares.GetAllAndClear()

	var cardJournal cardAPI.Journal
	if journal != nil {
		cardJournal = journal
	}
	cardHandler := cardAPI.NewHandler(cards, cardJournal, cfg.Server.JSONBufferSize, log, readMWs, writeMWs)

	var eventHandler *eventAPI.Handler
	if journal != nil {
		middlewares.Add(loggerMW.Middleware())
		eventHandler = eventAPI.NewHandler(journal, log, middlewares.GetAllAndClear())
	}

	return &Handlers{
		Health: healthHandler,
		Card:   cardHandler,
		Event:  eventHandler,
	}
}
