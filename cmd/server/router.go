package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmolloy/cartminder/internal/api"
	apiMiddleware "github.com/jmolloy/cartminder/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	cartHandler := api.NewCartHandler(app.cartService)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/carts", cartHandler.CreateCart)
		r.Get("/carts/{cartID}", cartHandler.GetCart)
		r.Post("/carts/{cartID}/items", cartHandler.AddItem)
		r.Post("/carts/{cartID}/click", cartHandler.MarkEmailClicked)
		r.Post("/carts/{cartID}/finalize", cartHandler.FinalizeCart)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
