package products_api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/blob"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/products"
	"ms-marketplace/internal/utils"

	"github.com/go-chi/chi/v5"
)

const (
	maxUploadBytes = 20 << 20
	maxImages      = 5
)

type Handler struct {
	ProductService *products.ProductService
	Logger         *logger.Logger
}

func NewHandler(productService *products.ProductService, log *logger.Logger) *Handler {
	return &Handler{ProductService: productService, Logger: log}
}

// formImages opens the "images" files of a parsed multipart form. The
// returned closer must be called once the service is done with them.
func formImages(form *multipart.Form) ([]blob.File, func(), error) {
	var (
		files  []blob.File
		opened []multipart.File
	)
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	if form == nil {
		return nil, closeAll, nil
	}
	headers := form.File["images"]
	if len(headers) > maxImages {
		return nil, closeAll, apperror.Validation(fmt.Sprintf("at most %d images are allowed", maxImages))
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperror.Validation("unreadable image upload")
		}
		opened = append(opened, f)
		files = append(files, blob.File{Filename: fh.Filename, Body: f})
	}
	return files, closeAll, nil
}

func parsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, apperror.Validation("price must be a number")
	}
	return price, nil
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.WriteError(w, apperror.Validation("expected multipart form with images"))
		return
	}
	price, err := parsePrice(r.FormValue("price"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	images, closeImages, err := formImages(r.MultipartForm)
	defer closeImages()
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	req := products.ProductRequest{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       price,
		Category:    r.FormValue("category"),
		Location:    r.FormValue("location"),
	}
	product, err := h.ProductService.Create(r.Context(), claims, req, images)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateProduct: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "product created", product)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.ProductService.List(r.Context(), r.URL.Query().Get("vendor"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "products", list)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.ProductService.Get(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "product", product)
}

// UpdateProduct accepts JSON, or a multipart form when images change.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	productID := chi.URLParam(r, "productId")

	var (
		req    products.UpdateRequest
		images []blob.File
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			utils.WriteError(w, apperror.Validation("invalid multipart form"))
			return
		}
		for field, dst := range map[string]**string{
			"name":        &req.Name,
			"description": &req.Description,
			"category":    &req.Category,
			"location":    &req.Location,
		} {
			if values, ok := r.MultipartForm.Value[field]; ok && len(values) > 0 {
				v := values[0]
				*dst = &v
			}
		}
		if values, ok := r.MultipartForm.Value["price"]; ok && len(values) > 0 {
			price, err := parsePrice(values[0])
			if err != nil {
				utils.WriteError(w, err)
				return
			}
			req.Price = &price
		}
		var (
			closeImages func()
			err         error
		)
		images, closeImages, err = formImages(r.MultipartForm)
		defer closeImages()
		if err != nil {
			utils.WriteError(w, err)
			return
		}
	} else if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	product, err := h.ProductService.Update(r.Context(), claims, productID, req, images)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("UpdateProduct %s: %v", productID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "product updated", product)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	productID := chi.URLParam(r, "productId")

	if err := h.ProductService.Delete(r.Context(), claims, productID); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("DeleteProduct %s: %v", productID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "product deleted", nil)
}
