package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/nikolayk812/repairshop-cart/internal/catalog"
	"github.com/nikolayk812/repairshop-cart/internal/port"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Shop is the subset of the shop API the storefront proxies.
type Shop interface {
	port.Catalog
	SubmitContact(ctx context.Context, req catalog.ContactRequest) (catalog.Result, error)
	SubmitFeedback(ctx context.Context, fb catalog.Feedback) (catalog.Result, error)
	ListFeedback(ctx context.Context) ([]catalog.Feedback, error)
}

type Options struct {
	// ShopPhone is the chat number inquiry links point to; empty disables links.
	ShopPhone      string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type Server struct {
	registry *Registry
	shop     Shop
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(registry *Registry, shop Shop, opts Options, logger *slog.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}

	s := &Server{
		registry: registry,
		shop:     shop,
		opts:     opts,
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog/parts", s.listParts)
		r.Get("/catalog/services", s.listServices)
		r.Post("/contact", s.submitContact)
		r.Get("/feedback", s.listFeedback)
		r.Post("/feedback", s.submitFeedback)

		r.Post("/sessions", s.createSession)

		r.Route("/carts/{session}", func(r chi.Router) {
			r.Get("/", s.getCart)
			r.Delete("/", s.clearCart)
			r.Post("/items", s.addItem)
			r.Put("/items/{kind}/{id}", s.setQuantity)
			r.Delete("/items/{kind}/{id}", s.removeItem)
			r.Get("/inquiry", s.inquiry)
			r.Get("/events", s.events)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	for _, allowed := range s.opts.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.InfoContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
