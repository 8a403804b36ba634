package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"subscription-engine/internal/domain"
	"subscription-engine/internal/domain/model"
	"subscription-engine/internal/domain/ports/repository"
	"subscription-engine/internal/infra/metrics"
	"subscription-engine/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func contextWithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

func actorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}

// ===== DTOs =====

type customIntervalDTO struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

func (d *customIntervalDTO) toModel() *model.CustomInterval {
	if d == nil {
		return nil
	}
	return &model.CustomInterval{Value: d.Value, Unit: model.IntervalUnit(d.Unit)}
}

type subscriptionResponse struct {
	ID               string             `json:"id"`
	ProductID        string             `json:"product_id"`
	UserID           string             `json:"user_id"`
	Status           string             `json:"status"`
	Frequency        string             `json:"frequency"`
	CustomInterval   *customIntervalDTO `json:"custom_interval,omitempty"`
	Quantity         int                `json:"quantity"`
	UnitPrice        string             `json:"unit_price"`
	Amount           string             `json:"amount"`
	StartDate        string             `json:"start_date"`
	NextDeliveryDate *string            `json:"next_delivery_date"`
	Version          int64              `json:"version"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func toSubscriptionResponse(sub *model.Subscription) subscriptionResponse {
	resp := subscriptionResponse{
		ID:        sub.ID,
		ProductID: sub.ProductID,
		UserID:    sub.UserID,
		Status:    string(sub.Status),
		Frequency: string(sub.Frequency),
		Quantity:  sub.Quantity,
		UnitPrice: sub.UnitPrice.StringFixed(2),
		Amount:    sub.Amount.StringFixed(2),
		StartDate: sub.StartDate.Format(dateLayout),
		Version:   sub.Version,
		CreatedAt: sub.CreatedAt,
		UpdatedAt: sub.UpdatedAt,
	}
	if sub.CustomInterval != nil {
		resp.CustomInterval = &customIntervalDTO{
			Value: sub.CustomInterval.Value,
			Unit:  string(sub.CustomInterval.Unit),
		}
	}
	if sub.NextDeliveryDate != nil {
		d := sub.NextDeliveryDate.Format(dateLayout)
		resp.NextDeliveryDate = &d
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// ===== Customer API =====

type createRequest struct {
	ProductID      string             `json:"product_id"`
	UserID         string             `json:"user_id"`
	UnitPrice      string             `json:"unit_price"`
	Quantity       int                `json:"quantity"`
	Frequency      string             `json:"frequency"`
	CustomInterval *customIntervalDTO `json:"custom_interval,omitempty"`
	StartDate      string             `json:"start_date"`
}

func (s *Server) createHandler(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		http.Error(w, "unit_price must be a decimal string", http.StatusBadRequest)
		return
	}
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	sub, err := s.subUC.Create(r.Context(), usecase.CreateParams{
		ProductID:      req.ProductID,
		UserID:         req.UserID,
		UnitPrice:      unitPrice,
		Quantity:       req.Quantity,
		Frequency:      model.Frequency(req.Frequency),
		CustomInterval: req.CustomInterval.toModel(),
		StartDate:      startDate,
	})
	if err != nil {
		metrics.IncTransition(model.ActionCreate, transitionOutcome(err))
		s.writeDomainError(w, err)
		return
	}
	metrics.IncTransition(model.ActionCreate, "ok")
	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 50 // Default page size
	}
	if offset < 0 {
		offset = 0
	}

	subs, err := s.subUC.List(r.Context(), repository.ListFilter{
		UserID: q.Get("user_id"),
		Status: model.SubscriptionStatus(q.Get("status")),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	data := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		data = append(data, toSubscriptionResponse(sub))
	}
	writeJSON(w, http.StatusOK, struct {
		Data   []subscriptionResponse `json:"data"`
		Limit  int                    `json:"limit"`
		Offset int                    `json:"offset"`
	}{Data: data, Limit: limit, Offset: offset})
}

func (s *Server) getHandler(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// actionHandler adapts the no-body lifecycle actions (pause, resume,
// skip, cancel) into handlers.
func (s *Server) actionHandler(action model.Action, fn func(context.Context, string) (*model.Subscription, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			metrics.IncTransition(action, transitionOutcome(err))
			s.writeDomainError(w, err)
			return
		}
		metrics.IncTransition(action, "ok")
		writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
	}
}

func transitionOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "rejected"
	}
}

func (s *Server) quantityHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sub, err := s.subUC.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		metrics.IncTransition(model.ActionUpdateQuantity, transitionOutcome(err))
		s.writeDomainError(w, err)
		return
	}
	metrics.IncTransition(model.ActionUpdateQuantity, "ok")
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Server) frequencyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Frequency      string             `json:"frequency"`
		CustomInterval *customIntervalDTO `json:"custom_interval,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sub, err := s.subUC.UpdateFrequency(r.Context(), chi.URLParam(r, "id"),
		model.Frequency(req.Frequency), req.CustomInterval.toModel())
	if err != nil {
		metrics.IncTransition(model.ActionUpdateFrequency, transitionOutcome(err))
		s.writeDomainError(w, err)
		return
	}
	metrics.IncTransition(model.ActionUpdateFrequency, "ok")
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// ===== Admin API =====

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if s.adminKey == "" {
		s.log.Error().Msg("admin key is not configured")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	var req struct {
		AdminID string `json:"admin_id"`
		Key     string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AdminID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Key != s.adminKey {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w, req.AdminID)
	if err != nil {
		s.log.Error().Err(err).Msg("mint session token")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Token string `json:"token"`
	}{Token: token})
}

func (s *Server) logoutHandler(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	counts, total, err := s.statsUC.Totals(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}
	writeJSON(w, http.StatusOK, struct {
		Total    int            `json:"total"`
		ByStatus map[string]int `json:"by_status"`
	}{Total: total, ByStatus: byStatus})
}

type modifyRequest struct {
	Status           *string            `json:"status,omitempty"`
	Quantity         *int               `json:"quantity,omitempty"`
	Frequency        *string            `json:"frequency,omitempty"`
	CustomInterval   *customIntervalDTO `json:"custom_interval,omitempty"`
	NextDeliveryDate *string            `json:"next_delivery_date,omitempty"`
}

func (s *Server) modifyHandler(w http.ResponseWriter, r *http.Request) {
	var req modifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	var patch usecase.Patch
	if req.Status != nil {
		status := model.SubscriptionStatus(*req.Status)
		patch.Status = &status
	}
	patch.Quantity = req.Quantity
	if req.Frequency != nil {
		freq := model.Frequency(*req.Frequency)
		patch.Frequency = &freq
	}
	patch.CustomInterval = req.CustomInterval.toModel()
	if req.NextDeliveryDate != nil {
		next, err := time.Parse(dateLayout, *req.NextDeliveryDate)
		if err != nil {
			http.Error(w, "next_delivery_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		patch.NextDeliveryDate = &next
	}

	sub, err := s.adminUC.Modify(r.Context(), chi.URLParam(r, "id"), patch, actorFrom(r.Context()))
	if err != nil {
		metrics.IncAdminOverride("modify", transitionOutcome(err))
		s.writeDomainError(w, err)
		return
	}
	metrics.IncAdminOverride("modify", "ok")
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Server) extendHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Days int `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sub, err := s.adminUC.Extend(r.Context(), chi.URLParam(r, "id"), req.Days, actorFrom(r.Context()))
	if err != nil {
		metrics.IncAdminOverride("extend", transitionOutcome(err))
		s.writeDomainError(w, err)
		return
	}
	metrics.IncAdminOverride("extend", "ok")
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}
