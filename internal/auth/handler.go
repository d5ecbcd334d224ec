// AngelaMos | 2026
// handler.go

package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/config"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/lockout"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
	session   config.SessionConfig
}

func NewHandler(
	service *Service,
	v *validator.Validate,
	session config.SessionConfig,
) *Handler {
	return &Handler{
		service:   service,
		validator: v,
		session:   session,
	}
}

// RegisterRoutes mounts /auth. The login and register limiters are the
// per-client complement to account lockout.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	loginLimiter func(http.Handler) http.Handler,
	registerLimiter func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimiter).Post("/login", h.Login)
		r.With(registerLimiter).Post("/register", h.Register)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.GetMe)
			r.Post("/change-password", h.ChangePassword)
		})
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.WriteDecodeError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		var lenErr *core.FieldLengthError
		switch {
		case errors.Is(err, ErrInvalidReferral):
			core.BadRequest(w, "invalid referral code")
		case DuplicateField(err) != "":
			core.JSONError(w, core.ConflictError(DuplicateField(err)))
		case errors.Is(err, core.ErrInvalidInputType):
			core.BadRequest(w, "invalid input type")
		case errors.As(err, &lenErr):
			core.BadRequest(w, lenErr.Error())
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	h.setSessionCookie(w, session.Token, session.ExpiresAt)
	core.Created(w, toAuthResponse(session))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.WriteDecodeError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	session, err := h.service.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		var (
			lockedErr *lockout.LockedError
			credErr   *CredentialsError
		)
		switch {
		case errors.As(err, &lockedErr):
			core.JSONError(w, core.LockedError(lockedErr.RetryAfter))
		case errors.As(err, &credErr):
			core.JSONError(w, core.AuthenticationError(
				"invalid username, email or password",
				credErr.RemainingAttempts,
			))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	h.setSessionCookie(w, session.Token, session.ExpiresAt)
	core.OK(w, toAuthResponse(session))
}

// Logout ends the session server side and then clears the cookie. It
// needs no live session, so a stale cookie can always be cleared.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.service.Logout(r.Context(), middleware.ExtractToken(r))
	h.clearSessionCookie(w)

	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "logged out"})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req ChangePasswordRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.WriteDecodeError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	err := h.service.ChangePassword(
		r.Context(),
		userID,
		req.CurrentPassword,
		req.NewPassword,
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			core.JSONError(w, core.AuthenticationError(
				"current password is incorrect", -1,
			))
		case errors.Is(err, ErrSamePassword):
			core.BadRequest(w, ErrSamePassword.Error())
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	h.clearSessionCookie(w)
	core.NoContent(w)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnauthorized):
			core.Unauthorized(w, "")
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "user")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, ToUserResponse(account))
}

func (h *Handler) setSessionCookie(
	w http.ResponseWriter,
	token string,
	expiresAt time.Time,
) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
