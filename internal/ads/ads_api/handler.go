package ads_api

import (
	"fmt"
	"net/http"

	"ms-marketplace/internal/ads"
	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/blob"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	AdService *ads.AdService
	Logger    *logger.Logger
}

func NewHandler(adService *ads.AdService, log *logger.Logger) *Handler {
	return &Handler{AdService: adService, Logger: log}
}

// CreateAd takes a multipart form with the ad fields and an "image" file.
func (h *Handler) CreateAd(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.WriteError(w, apperror.Validation("expected multipart form with an image"))
		return
	}

	req := ads.CreateAdRequest{
		Name:        r.FormValue("name"),
		Description: r.FormValue("desc"),
		Link:        r.FormValue("link"),
		Location:    r.FormValue("location"),
		Duration:    r.FormValue("duration"),
		Reference:   r.FormValue("reference"),
	}

	var image *blob.File
	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		image = &blob.File{Filename: header.Filename, Body: file}
	}

	ad, duplicate, err := h.AdService.Create(r.Context(), claims, req, image)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateAd: %v", err))
		utils.WriteError(w, err)
		return
	}
	if duplicate {
		utils.WriteSuccess(w, http.StatusOK, "ad already created", ad)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "ad created, awaiting approval", ad)
}

func (h *Handler) ListAds(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	list, err := h.AdService.List(r.Context(), claims)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "ads", list)
}

func (h *Handler) ActivateAd(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	adID := chi.URLParam(r, "adId")

	ad, err := h.AdService.Activate(r.Context(), claims, adID)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("ActivateAd %s: %v", adID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "ad activated", ad)
}
