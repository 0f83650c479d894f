package rest

import (
	core_port "brokerage-backoffice/internal/core/port"
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const apiPrefix = "/api/v1"

// Handlers - все обработчики API бэк-офиса.
type Handlers struct {
	Board       *BoardHandler
	Deals       *DealHandler
	StageConfig *StageConfigHandler
	Leads       *LeadHandler
	Listings    *ListingHandler
	Favorites   *FavoritesHandler
}

// Server - REST API сервер бэк-офиса.
type Server struct {
	httpServer *http.Server
	logger     core_port.LoggerPort
}

// NewRouter собирает роутер. Вынесен отдельно, чтобы тесты гоняли его через httptest.
func NewRouter(h Handlers, allowedOrigins []string, baseLogger core_port.LoggerPort) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP, LoggerMiddleware(baseLogger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", traceHeader},
		ExposedHeaders:   []string{traceHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route(apiPrefix, func(r chi.Router) {
		r.Use(AuthMiddleware)

		r.Route("/board", func(r chi.Router) {
			r.Get("/", h.Board.GetBoard)
			r.Post("/reload", h.Board.ReloadBoard)
			r.Put("/selection", h.Board.SelectPipeline)
			r.Post("/deals", h.Board.CreateDeal)
			r.Get("/events", h.Board.SubscribeToBoard)
		})

		r.Route("/pipelines", func(r chi.Router) {
			r.Post("/", h.StageConfig.CreatePipeline)
			r.Route("/{pipelineID}", func(r chi.Router) {
				r.Patch("/", h.StageConfig.RenamePipeline)
				r.Delete("/", h.StageConfig.DeletePipeline)

				r.Get("/draft", h.StageConfig.GetDraft)
				r.Delete("/draft", h.StageConfig.DiscardDraft)
				r.Patch("/draft/stages/{stageID}", h.StageConfig.EditStage)
				r.Post("/draft/save", h.StageConfig.SaveDraft)

				r.Post("/stages", h.StageConfig.AddStage)
				r.Delete("/stages/{stageID}", h.StageConfig.RemoveStage)
			})
		})

		r.Route("/deals/{dealID}", func(r chi.Router) {
			r.Get("/", h.Deals.GetDeal)
			r.Delete("/", h.Deals.DeleteDeal)
			r.Delete("/view", h.Deals.CloseDeal)

			r.Post("/won", h.Deals.MarkWon)
			r.Post("/lost", h.Deals.MarkLost)
			r.Post("/reopen", h.Deals.Reopen)
			r.Post("/loss", h.Deals.BeginLoss)
			r.Delete("/loss", h.Deals.CancelLoss)
			r.Post("/loss/confirm", h.Deals.ConfirmLoss)

			r.Post("/notes", h.Deals.AddNote)

			r.Post("/tasks", h.Deals.CreateTask)
			r.Post("/tasks/{taskID}/toggle", h.Deals.ToggleTask)
			r.Delete("/tasks/{taskID}", h.Deals.DeleteTask)

			r.Get("/listings/search", h.Deals.SearchListings)
			r.Post("/listings", h.Deals.LinkListing)
			r.Delete("/listings/{listingID}", h.Deals.UnlinkListing)
		})

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.Leads.ListLeads)
			r.Post("/", h.Leads.CreateLead)
			r.Route("/{leadID}", func(r chi.Router) {
				r.Get("/", h.Leads.GetLead)
				r.Put("/", h.Leads.UpdateLead)
				r.Delete("/", h.Leads.DeleteLead)
				r.Patch("/status", h.Leads.ChangeLeadStatus)
				r.Post("/convert", h.Leads.ConvertLead)
			})
		})

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", h.Listings.SearchListings)
			r.Post("/", h.Listings.CreateListing)
			r.Get("/{listingID}", h.Listings.GetListing)
			r.Put("/{listingID}", h.Listings.UpdateListing)
			r.Put("/{listingID}/images/order", h.Listings.ReorderImages)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", h.Favorites.GetFavorites)
			r.Get("/ids", h.Favorites.GetFavoriteIDs)
			r.Post("/", h.Favorites.AddFavorite)
			r.Delete("/{listingID}", h.Favorites.RemoveFavorite)
		})
	})

	return r
}

// NewServer создает новый экземпляр сервера.
func NewServer(port string, handler http.Handler, baseLogger core_port.LoggerPort) *Server {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}
	return &Server{
		httpServer: srv,
		logger:     baseLogger,
	}
}

// Start запускает HTTP-сервер.
func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", core_port.Fields{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Could not start server", err, nil)
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop корректно останавливает сервер.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST API server...", nil)
	return s.httpServer.Shutdown(ctx)
}
