// AngelaMos | 2026
// handler.go

package loyalty

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/middleware"
)

type CreateReferralRequest struct {
	ReferredEmail string `json:"referred_email" validate:"required,email,max=255"`
}

type ReferralResponse struct {
	Token         string    `json:"token"`
	ReferredEmail string    `json:"referred_email"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoyaltyResponse struct {
	Email         string `json:"email"`
	LoyaltyPoints int    `json:"loyalty_points"`
	ReferredCount int    `json:"referred_count"`
	Tier          Tier   `json:"tier"`
}

type Handler struct {
	engine    *Engine
	validator *validator.Validate
}

func NewHandler(engine *Engine, v *validator.Validate) *Handler {
	return &Handler{engine: engine, validator: v}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	limiter func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.With(limiter).Post("/referrals", h.CreateReferral)
		r.Get("/loyalty/me", h.GetMine)
	})
}

func (h *Handler) CreateReferral(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil || claims.Email == "" {
		core.Unauthorized(w, "")
		return
	}

	var req CreateReferralRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.WriteDecodeError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	ref, err := h.engine.CreateReferral(r.Context(), claims.Email, req.ReferredEmail)
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfReferral):
			core.BadRequest(w, "you cannot refer yourself")
		case errors.Is(err, core.ErrDuplicateKey):
			core.JSONError(w, core.ConflictError("referral"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, ReferralResponse{
		Token:         ref.Token,
		ReferredEmail: ref.ReferredEmail,
		CreatedAt:     ref.CreatedAt,
	})
}

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil || claims.Email == "" {
		core.Unauthorized(w, "")
		return
	}

	l, err := h.engine.GetLoyalty(r.Context(), claims.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "loyalty record")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, LoyaltyResponse{
		Email:         l.Email,
		LoyaltyPoints: l.LoyaltyPoints,
		ReferredCount: l.ReferredCount,
		Tier:          l.Tier,
	})
}
