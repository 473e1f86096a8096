package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maomauro/web-beatty-sub001/internal/cache"
	"github.com/maomauro/web-beatty-sub001/internal/checkout"
	"github.com/maomauro/web-beatty-sub001/internal/domain"
	"github.com/maomauro/web-beatty-sub001/internal/session"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Handler exposes the cart engine's public operations over localhost HTTP
// so the host UI can drive them. It is an embedding surface, not a public
// API: no auth, bind it to loopback.
type Handler struct {
	cache    *cache.CartCache
	checkout *checkout.Coordinator
	bridge   *session.Bridge
	creds    *session.Credentials
	log      logrus.FieldLogger
}

func NewHandler(c *cache.CartCache, co *checkout.Coordinator, b *session.Bridge, creds *session.Credentials, log logrus.FieldLogger) *Handler {
	return &Handler{
		cache:    c,
		checkout: co,
		bridge:   b,
		creds:    creds,
		log:      log,
	}
}

// Routes mounts all cart operations on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/cart", h.GetCart)
	r.Delete("/cart", h.ClearCart)
	r.Post("/cart/items", h.AddItem)
	r.Put("/cart/items/{item_id}", h.SetQuantity)
	r.Delete("/cart/items/{item_id}", h.RemoveItem)
	r.Post("/checkout", h.Confirm)
	r.Post("/session/login", h.Login)
	r.Post("/session/logout", h.Logout)
	r.Post("/session/expired", h.Expired)
	return r
}

type AddItemRequestDTO struct {
	Item     domain.CatalogItemRef `json:"item"`
	Quantity int                   `json:"quantity"`
}

type SetQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type LoginRequestDTO struct {
	Token string `json:"token"`
}

type CartResponseDTO struct {
	Lines      []domain.CartLine `json:"lines"`
	ItemCount  int               `json:"item_count"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Tax        decimal.Decimal   `json:"tax"`
	GrandTotal decimal.Decimal   `json:"grand_total"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Item.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item", "item id is required")
		return
	}

	h.cache.Add(r.Context(), req.Item, req.Quantity)
	respondJSON(w, http.StatusCreated, h.cartResponse())
}

func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "item_id")

	var req SetQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.cache.SetQuantity(r.Context(), itemID, req.Quantity)
	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.cache.Remove(r.Context(), chi.URLParam(r, "item_id"))
	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear(r.Context())
	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	result, err := h.checkout.Confirm(r.Context())
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrInsufficientStock):
		// Verbatim server message, the user needs the exact item detail.
		respondError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case err != nil:
		respondError(w, http.StatusBadGateway, "confirmation_failed", checkout.ErrConfirmFailed.Error())
	default:
		respondJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	h.creds.SetToken(req.Token)
	h.log.Info("session token installed, adopting remote cart")
	h.bridge.OnLoginCompleted(r.Context())
	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.bridge.OnLogoutRequested(r.Context()); err != nil {
		// Logout itself succeeded; the caller just learns the push failed.
		respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out", "warning": "cart push failed"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) Expired(w http.ResponseWriter, r *http.Request) {
	h.bridge.OnSessionExpired(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{"status": "session_cleared"})
}

func (h *Handler) cartResponse() CartResponseDTO {
	return CartResponseDTO{
		Lines:      h.cache.Lines(),
		ItemCount:  h.cache.ItemCount(),
		Subtotal:   h.cache.SubtotalTotal(),
		Tax:        h.cache.TaxTotal(),
		GrandTotal: h.cache.GrandTotal(),
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
