package service

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rewear/internal/app"
	"rewear/internal/pkg/auth"
	"rewear/internal/pkg/logger"
)

// Service encapsulates the HTTP server configuration, including the application's business logic,
// HTTP handlers, the server's run address, and a logger for event and error logging.
type Service struct {
	handlers   *handlers
	app        *app.App
	runAddress string
	log        *logger.Logger
}

// NewService creates and initializes a new Service instance.
// It sets up the handlers using the provided application and logger,
// and configures the server's run address.
func NewService(app *app.App, runAddress string, l *logger.Logger) *Service {
	handlers := newHandlers(app, l)
	return &Service{handlers: handlers, app: app, runAddress: runAddress, log: l}
}

// NewRouter sets up and returns a new chi.Router instance with the necessary middleware and routes.
// Catalog reads are public. Everything else needs a bearer token of a live session,
// and the admin routes additionally need the administrator account.
func (service *Service) NewRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(service.log.WithLogging())
	router.Use(middleware.Recoverer)

	router.Post("/api/auth/register", service.handlers.registerHandler)
	router.Post("/api/auth/login", service.handlers.loginHandler)
	router.Get("/api/listings", service.handlers.browseHandler)
	router.Get("/api/listings/{id}", service.handlers.listingHandler)

	router.Group(func(r chi.Router) {
		r.Use(auth.CheckJWTMiddleware())
		r.Use(service.handlers.sessionMiddleware)

		r.Post("/api/auth/logout", service.handlers.logoutHandler)
		r.Get("/api/me", service.handlers.dashboardHandler)
		r.Post("/api/listings", service.handlers.createListingHandler)

		r.Route("/api/swaps", func(r chi.Router) {
			r.Post("/", service.handlers.createSwapHandler)
			r.Get("/", service.handlers.swapsHandler)
			r.Post("/{id}/accept", service.handlers.acceptSwapHandler)
			r.Post("/{id}/complete", service.handlers.completeSwapHandler)
			r.Post("/{id}/reject", service.handlers.rejectSwapHandler)
		})

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(service.handlers.adminMiddleware)
			r.Get("/stats", service.handlers.statsHandler)
			r.Get("/accounts", service.handlers.accountsHandler)
			r.Post("/listings/{id}/approve", service.handlers.approveListingHandler)
			r.Put("/listings/{id}/status", service.handlers.setListingStatusHandler)
		})
	})

	return router
}
