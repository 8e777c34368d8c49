package delivery

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	gameDelivery "goban/internal/delivery/game"
	katagoDelivery "goban/internal/delivery/katago"
	ownMiddleware "goban/internal/middleware"
)

type Handlers struct {
	Game   *gameDelivery.GameHandler
	Katago *katagoDelivery.KatagoHandler
}

func (h *Handlers) Router(isLocalCors bool) *chi.Mux {
	r := chi.NewRouter()
	if isLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Route("/games", func(r chi.Router) {
		r.Post("/", h.Game.HandleNewGame)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Game.HandleGetGame)
			r.Delete("/", h.Game.HandleDeleteGame)
			r.Post("/move", h.Game.HandleMove)
			r.Post("/pass", h.Game.HandlePass)
			r.Post("/undo", h.Game.HandleUndo)
			r.Post("/redo", h.Game.HandleRedo)
			r.Post("/clear", h.Game.HandleClear)
			r.Put("/turn", h.Game.HandleSetTurn)
			r.Get("/stream", h.Game.HandleStream)
			r.Post("/suggest", h.Katago.HandleSuggestMove)
			r.Post("/evaluate", h.Katago.HandleEvaluate)
		})
	})

	r.Get("/engine/difficulty", h.Katago.HandleGetDifficulty)
	r.Put("/engine/difficulty", h.Katago.HandleSetDifficulty)

	return r
}
