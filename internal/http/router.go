package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/we-promise/sure-sub001/internal/http/entry"
	"github.com/we-promise/sure-sub001/internal/http/importfile"
	"github.com/we-promise/sure-sub001/internal/http/sync"
)

func New(
	syncV1 *sync.Handler,
	entryV1 *entry.Handler,
	importV1 *importfile.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/connections", syncV1.Routes)

		r.Route("/accounts", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			entryV1.Routes(r)
		})

		r.Route("/import", importV1.Routes)
	})

	return router
}
