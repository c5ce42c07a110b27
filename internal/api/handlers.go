package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nikolayk812/repairshop-cart/internal/cart"
	"github.com/nikolayk812/repairshop-cart/internal/catalog"
	"github.com/nikolayk812/repairshop-cart/internal/domain"
	"github.com/shopspring/decimal"
)

type AddItemRequestDTO struct {
	Kind     domain.Kind        `json:"kind"`
	Quantity *int               `json:"quantity,omitempty"`
	Item     domain.CatalogItem `json:"item"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Session   string            `json:"session"`
	Products  []domain.LineItem `json:"products"`
	Services  []domain.LineItem `json:"services"`
	Count     int               `json:"count"`
	Total     json.RawMessage   `json:"total"`
	TotalText string            `json:"totalText"`
	Message   string            `json:"message,omitempty"`
}

type InquiryResponse struct {
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.RequestTimeout)
}

func (s *Server) listParts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	parts, err := s.shop.ListParts(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "spare parts unavailable, serving sample data", slog.Any("error", err))
		w.Header().Set("X-Catalog-Fallback", "true")
		respondJSON(w, http.StatusOK, catalog.SampleParts())
		return
	}

	respondJSON(w, http.StatusOK, parts)
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	services, err := s.shop.ListServices(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "services unavailable", slog.Any("error", err))
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "services could not be loaded")
		return
	}

	respondJSON(w, http.StatusOK, services)
}

func (s *Server) listFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	feedback, err := s.shop.ListFeedback(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "feedback unavailable", slog.Any("error", err))
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "feedback could not be loaded")
		return
	}
	if feedback == nil {
		feedback = []catalog.Feedback{}
	}

	respondJSON(w, http.StatusOK, feedback)
}

func (s *Server) submitContact(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	var req catalog.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := s.shop.SubmitContact(ctx, req)
	s.respondSubmission(w, r, res, err)
}

func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	var fb catalog.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := s.shop.SubmitFeedback(ctx, fb)
	s.respondSubmission(w, r, res, err)
}

func (s *Server) respondSubmission(w http.ResponseWriter, r *http.Request, res catalog.Result, err error) {
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, res)
	case errors.Is(err, catalog.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, catalog.ErrRejected):
		respondError(w, http.StatusUnprocessableEntity, "rejected", res.Message)
	default:
		s.logger.WarnContext(r.Context(), "shop api submission failed", slog.Any("error", err))
		respondError(w, http.StatusBadGateway, "shop_unavailable", "submission failed, please try again")
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusCreated, map[string]string{"session": uuid.NewString()})
}

// store pins the session's cart for the rest of the request; callers defer release.
func (s *Server) store(w http.ResponseWriter, r *http.Request) (*cart.Store, func(), bool) {
	store, release, err := s.registry.Acquire(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_session", err.Error())
		return nil, nil, false
	}
	return store, release, true
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	store, release, ok := s.store(w, r)
	if !ok {
		return
	}
	defer release()

	respondJSON(w, http.StatusOK, cartResponse(store, ""))
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	store, release, ok := s.store(w, r)
	if !ok {
		return
	}
	defer release()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item := req.Item.LineItem(req.Kind)
	if err := store.Add(r.Context(), req.Kind, item, quantity); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item", err.Error())
		return
	}

	notice := cart.Event{Type: cart.EventAdded, Kind: req.Kind, Name: item.Name}.Message()
	respondJSON(w, http.StatusCreated, cartResponse(store, notice))
}

func (s *Server) setQuantity(w http.ResponseWriter, r *http.Request) {
	store, release, ok := s.store(w, r)
	if !ok {
		return
	}
	defer release()

	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_kind", err.Error())
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	store.SetQuantity(r.Context(), domain.ItemID(chi.URLParam(r, "id")), kind, req.Quantity)
	respondJSON(w, http.StatusOK, cartResponse(store, ""))
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	store, release, ok := s.store(w, r)
	if !ok {
		return
	}
	defer release()

	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_kind", err.Error())
		return
	}

	store.Remove(r.Context(), kind, domain.ItemID(chi.URLParam(r, "id")))
	respondJSON(w, http.StatusOK, cartResponse(store, ""))
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	store, release, ok := s.store(w, r)
	if !ok {
		return
	}
	defer release()

	store.ClearCart(r.Context())
	respondJSON(w, http.StatusOK, cartResponse(store, ""))
}

func (s *Server) inquiry(w http.ResponseWriter, r *http.Request) {
	store, release, ok := s.store(w, r)
	if !ok {
		return
	}
	defer release()

	resp := InquiryResponse{Message: store.GenerateInquiryMessage()}
	if s.opts.ShopPhone != "" {
		link, err := cart.ChatLink(s.opts.ShopPhone, resp.Message)
		if err != nil {
			s.logger.WarnContext(r.Context(), "chat link unavailable", slog.Any("error", err))
		}
		resp.Link = link
	}

	respondJSON(w, http.StatusOK, resp)
}

// cartResponse derives count and total from one snapshot so the three agree.
func cartResponse(store *cart.Store, message string) CartResponse {
	snap := store.Snapshot()

	count := 0
	total := decimal.Zero
	for _, items := range [][]domain.LineItem{snap.Products, snap.Services} {
		for _, li := range items {
			count += li.Quantity
			total = total.Add(li.Total())
		}
	}

	return CartResponse{
		Session:   snap.OwnerID,
		Products:  snap.Products,
		Services:  snap.Services,
		Count:     count,
		Total:     json.RawMessage(total.String()),
		TotalText: domain.Money{Amount: total, Currency: store.Currency()}.Format(store.Locale()),
		Message:   message,
	}
}
