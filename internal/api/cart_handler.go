package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jmolloy/cartminder/internal/api/shared"
	"github.com/jmolloy/cartminder/internal/domain"
	"github.com/jmolloy/cartminder/internal/service"
)

// CreateCartRequest represents the request body for creating a new cart
type CreateCartRequest struct {
	UserID *int64 `json:"user_id,omitempty"`
	Email  string `json:"email" validate:"required,email"`
}

// AddItemRequest represents the request body for adding an item to a cart
type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

// CartItemResponse represents a single item line in a cart response
type CartItemResponse struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CartResponse represents the response data for a cart
type CartResponse struct {
	ID                   int64              `json:"id"`
	UserID               *int64             `json:"user_id,omitempty"`
	Email                string             `json:"email"`
	Items                []CartItemResponse `json:"items"`
	FirstReminderSentAt  *time.Time         `json:"first_reminder_sent_at,omitempty"`
	SecondReminderSentAt *time.Time         `json:"second_reminder_sent_at,omitempty"`
	ThirdReminderSentAt  *time.Time         `json:"third_reminder_sent_at,omitempty"`
	EmailClickedAt       *time.Time         `json:"email_clicked_at,omitempty"`
	FinalizedAt          *time.Time         `json:"finalized_at,omitempty"`
	Closed               bool               `json:"closed"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// CartHandler handles cart-related HTTP requests
type CartHandler struct {
	cartService service.CartService
	validator   *validator.Validate
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		validator:   validator.New(),
	}
}

// CreateCart handles POST /api/carts requests
func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req CreateCartRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	cart, err := h.cartService.CreateCart(r.Context(), req.UserID, req.Email)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, cartToResponse(cart))
}

// GetCart handles GET /api/carts/{cartID} requests
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartIDFromURL(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), cartID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cartToResponse(cart))
}

// AddItem handles POST /api/carts/{cartID}/items requests
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartIDFromURL(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), cartID, req.ProductID, req.Quantity)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cartToResponse(cart))
}

// MarkEmailClicked handles POST /api/carts/{cartID}/click requests.
// Reminder emails link here; recording the click closes the cart.
func (h *CartHandler) MarkEmailClicked(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartIDFromURL(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.MarkEmailClicked(r.Context(), cartID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cartToResponse(cart))
}

// FinalizeCart handles POST /api/carts/{cartID}/finalize requests
func (h *CartHandler) FinalizeCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartIDFromURL(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.FinalizeCart(r.Context(), cartID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cartToResponse(cart))
}

// cartIDFromURL parses the cart ID path parameter, writing a 400 response
// on failure.
func (h *CartHandler) cartIDFromURL(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "cartID")
	cartID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || cartID <= 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid cart ID")
		return 0, false
	}
	return cartID, true
}

// respondWithServiceError converts a service error into a sanitized HTTP
// error response, logging full details for server-side failures.
func (h *CartHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)

	if status >= http.StatusInternalServerError {
		shared.RespondWithErrorAndLog(w, r, status, message, err)
		return
	}
	shared.RespondWithError(w, r, status, message)
}

// cartToResponse converts a domain.Cart to a CartResponse
func cartToResponse(cart *domain.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	return CartResponse{
		ID:                   cart.ID,
		UserID:               cart.UserID,
		Email:                cart.Email,
		Items:                items,
		FirstReminderSentAt:  sentAtPointer(cart, domain.ReminderStepFirst),
		SecondReminderSentAt: sentAtPointer(cart, domain.ReminderStepSecond),
		ThirdReminderSentAt:  sentAtPointer(cart, domain.ReminderStepThird),
		EmailClickedAt:       cart.EmailClickedAt,
		FinalizedAt:          cart.FinalizedAt,
		Closed:               cart.IsClosed(),
		CreatedAt:            cart.CreatedAt,
		UpdatedAt:            cart.UpdatedAt,
	}
}

func sentAtPointer(cart *domain.Cart, step domain.ReminderStep) *time.Time {
	if t, ok := cart.ReminderSentTime(step); ok {
		return &t
	}
	return nil
}
