package users_api

import (
	"fmt"
	"net/http"

	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/users"
	"ms-marketplace/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	UserService  *users.UserService
	Logger       *logger.Logger
	CookieSecure bool
}

func NewHandler(userService *users.UserService, log *logger.Logger, cookieSecure bool) *Handler {
	return &Handler{UserService: userService, Logger: log, CookieSecure: cookieSecure}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req users.RegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := h.UserService.Register(r.Context(), req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Register: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "user registered", user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req users.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, token, err := h.UserService.Login(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	auth.SetSessionCookie(w, token, h.UserService.Tokens.TTL(), h.CookieSecure)
	utils.WriteSuccess(w, http.StatusOK, "logged in", user)
}

// Logout always clears the cookie, even when there is no session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.TokenFromRequest(r)
	auth.ClearSessionCookie(w, h.CookieSecure)
	if err := h.UserService.Logout(r.Context(), token); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Logout: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "logged out", nil)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	profile, err := h.UserService.Profile(claims)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "profile", profile)
}

func (h *Handler) PromoteToVendor(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	userID := chi.URLParam(r, "userId")

	var profile models.VendorProfile
	if err := utils.DecodeJSON(r, &profile); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, token, err := h.UserService.PromoteToVendor(r.Context(), claims, userID, profile)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("PromoteToVendor %s: %v", userID, err))
		utils.WriteError(w, err)
		return
	}
	if token != "" {
		auth.SetSessionCookie(w, token, h.UserService.Tokens.TTL(), h.CookieSecure)
	}
	utils.WriteSuccess(w, http.StatusOK, "user promoted to vendor", user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	list, err := h.UserService.ListUsers(r.Context(), claims)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "users", list)
}

func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	list, err := h.UserService.ListVendors(r.Context(), claims)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "vendors", list)
}
