package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/seatgrid/reservation-engine/internal/config"
	"github.com/seatgrid/reservation-engine/internal/domain"
	"github.com/seatgrid/reservation-engine/internal/engine"
	"github.com/seatgrid/reservation-engine/internal/idempotency"
	"github.com/seatgrid/reservation-engine/internal/payment"
)

type Handlers struct {
	cfg    *config.Config
	engine *engine.Engine
	idemp  *idempotency.Idempotency
}

func NewHandlers(cfg *config.Config, eng *engine.Engine, idemp *idempotency.Idempotency) *Handlers {
	return &Handlers{cfg: cfg, engine: eng, idemp: idemp}
}

type reservationView struct {
	ID        uuid.UUID `json:"id"`
	Requester uuid.UUID `json:"requester_id"`
	Units     []string  `json:"units"`
	Kind      string    `json:"kind"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt string    `json:"created_at"`
	ExpiresAt string    `json:"expires_at,omitempty"`
	SettledAt string    `json:"settled_at,omitempty"`
}

func (h *Handlers) toView(res domain.Reservation) reservationView {
	units := make([]string, len(res.Units))
	for i, u := range res.Units {
		units[i] = string(u)
	}
	v := reservationView{
		ID:        res.ID,
		Requester: res.Requester,
		Units:     units,
		Kind:      string(res.Kind),
		Amount:    res.Amount,
		Status:    string(res.Status),
		CreatedAt: res.CreatedAt.Format(time.RFC3339),
	}
	if res.Status == domain.StatusPending {
		v.ExpiresAt = res.CreatedAt.Add(h.cfg.HoldTTL).Format(time.RFC3339)
	}
	if res.SettledAt != nil {
		v.SettledAt = res.SettledAt.Format(time.RFC3339)
	}
	return v
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrResourceUnavailable):
		http.Error(w, "resource unavailable", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidTransition):
		http.Error(w, "reservation already resolved", http.StatusConflict)
	case errors.Is(err, domain.ErrPaymentFailed):
		http.Error(w, "payment failed, reservation cancelled", http.StatusPaymentRequired)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "reservation not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body interface{}) []byte {
	data, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func (h *Handlers) replayIdempotent(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.idemp == nil {
		return "", false
	}
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil || existing == nil {
		return key, false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(existing.Status)
	w.Write(existing.Result)
	return key, true
}

func (h *Handlers) storeIdempotent(r *http.Request, key string, status int, body []byte) {
	if h.idemp == nil || key == "" {
		return
	}
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: status, Result: body})
}

func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	key, replayed := h.replayIdempotent(w, r)
	if replayed {
		return
	}

	var req struct {
		RequesterID uuid.UUID `json:"requester_id"`
		Count       int       `json:"count"`
		Kind        string    `json:"kind"`
		Amount      float64   `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		req.Kind = string(domain.KindSeat)
	}

	res, err := h.engine.Reserve(r.Context(), req.RequesterID, req.Count, domain.Kind(req.Kind), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	data := h.writeJSON(w, http.StatusCreated, h.toView(res))
	h.storeIdempotent(r, key, http.StatusCreated, data)
}

func (h *Handlers) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		PaymentMethod string  `json:"payment_method"`
		CardLimit     float64 `json:"card_limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var capability domain.Payment
	switch req.PaymentMethod {
	case "cash":
		capability = payment.Cash{}
	case "card", "":
		capability = payment.Card{Limit: req.CardLimit}
	default:
		http.Error(w, "unknown payment method", http.StatusBadRequest)
		return
	}

	res, err := h.engine.Confirm(r.Context(), id, capability)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.toView(res))
}

func (h *Handlers) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	res, err := h.engine.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.toView(res))
}

func (h *Handlers) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	res, err := h.engine.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.toView(res))
}

func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	all := h.engine.List()
	views := make([]reservationView, len(all))
	for i, res := range all {
		views[i] = h.toView(res)
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) ListUnits(w http.ResponseWriter, r *http.Request) {
	type unitView struct {
		ID     string  `json:"id"`
		Kind   string  `json:"kind"`
		Status string  `json:"status"`
		Price  float64 `json:"price"`
	}
	units := h.engine.Units()
	views := make([]unitView, len(units))
	for i, u := range units {
		views[i] = unitView{ID: string(u.ID), Kind: string(u.Kind), Status: string(u.Status), Price: u.Price}
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
