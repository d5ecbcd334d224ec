// AngelaMos | 2026
// handler.go

package supplier

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/middleware"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/user"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
	timeout   time.Duration
}

func NewHandler(
	service *Service,
	v *validator.Validate,
	timeout time.Duration,
) *Handler {
	return &Handler{service: service, validator: v, timeout: timeout}
}

// RegisterRoutes mounts the issuing route for staff and the public
// confirmation routes. limiter guards the unauthenticated routes.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	limiter func(http.Handler) http.Handler,
) {
	r.Route("/supplier", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Use(middleware.RequireRole(user.RoleAdmin, user.RoleStaff))
			r.Post("/orders", h.IssueOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(limiter)
			r.Get("/confirm/{token}", h.Confirm)
			r.Post("/confirm/{token}", h.Confirm)
			r.Post("/decision", h.Decide)
		})
	})
}

// RegisterAdminRoutes expects r to already require the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/supplier-orders", h.ListOrders)
	r.Get("/suppliers", h.ListSuppliers)
	r.Post("/suppliers", h.CreateSupplier)
}

func (h *Handler) IssueOrder(w http.ResponseWriter, r *http.Request) {
	var req IssueOrderRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.WriteDecodeError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	date, err := time.Parse(requiredDateLayout, req.RequiredDate)
	if err != nil {
		core.BadRequest(w, "required_date must be YYYY-MM-DD")
		return
	}

	order, err := h.service.Issue(r.Context(), IssueInput{
		Email:        req.Email,
		ItemID:       req.ItemID,
		Quantity:     req.Quantity,
		RequiredDate: date,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToOrderResponse(order))
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "token")
	if raw == "" {
		core.BadRequest(w, "token is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.service.Validate(ctx, raw)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToOrderResponse(order))
}

func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.WriteDecodeError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	updated, err := h.service.Decide(ctx, req.Token, req.TokenID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, DecisionResponse{
		TokenID:   updated.ID,
		Status:    updated.Status,
		DecidedAt: updated.DecidedAt,
	})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToOrderResponseList(orders))
}

func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSupplierResponseList(suppliers))
}

func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.WriteDecodeError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	sup, err := h.service.CreateSupplier(r.Context(), req.Name, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToSupplierResponse(sup))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidStatus):
		core.BadRequest(w, "status must be ACCEPTED or DECLINED")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid order details")
	case errors.Is(err, ErrSupplierNotFound):
		core.NotFound(w, "supplier")
	case errors.Is(err, ErrRateLimitExceeded):
		core.JSONError(w, core.RateLimitError(
			"too many order requests for this supplier, try again later",
		))
	case errors.Is(err, ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenInvalid):
		core.JSONError(w, core.TokenInvalidError())
	case errors.Is(err, ErrTokenNotFound):
		core.NotFound(w, "pending supplier token")
	case errors.Is(err, ErrSubjectMismatch), errors.Is(err, ErrTokenMismatch):
		core.JSONError(w, core.TokenError(
			err, "token validation failed", http.StatusBadRequest,
		))
	case errors.Is(err, ErrAlreadyDecided):
		core.JSONError(w, core.NewAppError(
			err,
			"this order has already been decided",
			http.StatusConflict,
			"ALREADY_DECIDED",
		))
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.ConflictError("email"))
	case errors.Is(err, context.DeadlineExceeded):
		core.JSONError(w, core.NewAppError(
			err,
			"token validation timed out",
			http.StatusServiceUnavailable,
			"TIMEOUT",
		))
	default:
		core.InternalServerError(w, err)
	}
}
