package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
	"github.com/MrEthical07/authcore/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Service is the engine surface the handlers call. *authcore.Engine
// implements it.
type Service interface {
	Register(ctx context.Context, req authcore.RegisterRequest) (*authcore.PendingResult, error)
	ResendRegistrationOTP(ctx context.Context, email string) (*authcore.PendingResult, error)
	VerifyRegistration(ctx context.Context, email, code string) (*authcore.Profile, error)
	Login(ctx context.Context, email, password string) (*authcore.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*authcore.TokenPair, error)
	ValidateAccess(ctx context.Context, accessToken string) (*authcore.Claims, error)
	RequestPasswordReset(ctx context.Context, email string) (*authcore.PendingResult, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	RevokeRefreshToken(ctx context.Context, refreshToken string) error
	GetProfile(ctx context.Context, userID string) (*authcore.Profile, error)
	UpdateAccountStatus(ctx context.Context, userID string, status authcore.AccountStatus) (*authcore.Profile, error)
	UpdateRoles(ctx context.Context, userID string, roles []string) (*authcore.Profile, error)
	InspectOTP(ctx context.Context, purpose authcore.OTPPurpose, email string) (*authcore.OTPStatus, error)
}

// Options configures the HTTP surface.
type Options struct {
	Logger zerolog.Logger
	// AdminRole guards the /auth/admin routes. Defaults to ADMIN.
	AdminRole string
	// DebugRoutes mounts GET /auth/_debug/otp.
	DebugRoutes bool
}

// Handler serves the /auth routes.
type Handler struct {
	svc      Service
	validate *validator.Validate
	logger   zerolog.Logger
	opts     Options
}

func New(svc Service, opts Options) *Handler {
	if opts.AdminRole == "" {
		opts.AdminRole = "ADMIN"
	}
	return &Handler{
		svc:      svc,
		validate: newValidator(),
		logger:   opts.Logger.With().Str("component", "httpapi").Logger(),
		opts:     opts,
	}
}

// Routes returns a chi router with every endpoint registered. The client
// IP is attached to each request context for audit events.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(withClientIP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/resend-otp", h.resendOTP)
		r.Post("/verify-otp", h.verifyOTP)
		r.Post("/login", h.login)
		r.Post("/refresh-token", h.refresh)
		r.Post("/forgot-password", h.forgotPassword)
		r.Post("/reset-password", h.resetPassword)
		r.Post("/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(h.svc))
			r.Post("/change-password", h.changePassword)
			r.Get("/me", h.me)

			r.Route("/admin/users/{id}", func(r chi.Router) {
				r.Use(middleware.RequireRole(h.opts.AdminRole))
				r.Get("/", h.adminGetUser)
				r.Patch("/status", h.adminUpdateStatus)
				r.Patch("/roles", h.adminUpdateRoles)
			})
		})

		if h.opts.DebugRoutes {
			r.Get("/_debug/otp", h.debugOTP)
		}
	})

	return r
}

func withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authcore.WithClientIP(r.Context(), ratelimit.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.Register(r.Context(), authcore.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (h *Handler) resendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.ResendRegistrationOTP(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	profile, err := h.svc.VerifyRegistration(r.Context(), req.Email, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, r, authcore.ErrTokenInvalid)
		return
	}
	var req changePasswordRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), claims.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, r, authcore.ErrTokenInvalid)
		return
	}
	profile, err := h.svc.GetProfile(r.Context(), claims.Subject)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) adminGetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) adminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	status, err := authcore.ParseAccountStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	profile, err := h.svc.UpdateAccountStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) adminUpdateRoles(w http.ResponseWriter, r *http.Request) {
	var req updateRolesRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	profile, err := h.svc.UpdateRoles(r.Context(), chi.URLParam(r, "id"), strings.Split(req.Roles, ","))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) debugOTP(w http.ResponseWriter, r *http.Request) {
	purpose := authcore.OTPPurpose(r.URL.Query().Get("purpose"))
	if purpose == "" {
		purpose = authcore.PurposeRegister
	}
	status, err := h.svc.InspectOTP(r.Context(), purpose, r.URL.Query().Get("email"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
