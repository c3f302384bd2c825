package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nferraro/gridswap/internal/http/auth"
	"github.com/nferraro/gridswap/internal/http/node"
	"github.com/nferraro/gridswap/internal/http/proposal"
	"github.com/nferraro/gridswap/internal/http/trade"
)

func New(
	authSvc *auth.Service,
	nodeV1 *node.Handler,
	proposalsV1 *proposal.Handler,
	tradesV1 *trade.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Route("/api", func(r chi.Router) {
		nodeV1.PublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(authSvc.Middleware)

			nodeV1.Routes(r)

			r.Route("/proposals", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				proposalsV1.Routes(r)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				tradesV1.Routes(r)
			})
		})
	})

	return router
}
