package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
	"github.com/labcelsanantonio-byte/LABCEL/internal/identity"
	"github.com/labcelsanantonio-byte/LABCEL/internal/validation"
)

const (
	DefaultCategory = "funda"
	defaultStock    = 100
)

type Store interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, id string, patch ProductPatch, now time.Time) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) (bool, error)
	ListBrands(ctx context.Context) ([]domain.PhoneBrand, error)
	CreateBrand(ctx context.Context, b *domain.PhoneBrand) error
	ListModels(ctx context.Context, brandID string) ([]domain.PhoneModel, error)
	CreateModel(ctx context.Context, m *domain.PhoneModel) error
	Seed(ctx context.Context, data SeedData, now time.Time) error
}

type Handler struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	filter := ProductFilter{
		Category:   r.URL.Query().Get("category"),
		ActiveOnly: true,
	}
	if raw := r.URL.Query().Get("active_only"); raw != "" {
		activeOnly, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "active_only must be true or false")
			return
		}
		filter.ActiveOnly = activeOnly
	}
	if !filter.ActiveOnly && !h.isAdmin(r) {
		filter.ActiveOnly = true
	}

	products, err := h.store.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("products listed", "count", len(products), "category", filter.Category)
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

type createProductRequest struct {
	Name           string          `json:"name" validate:"required"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Category       string          `json:"category"`
	BaseImageURL   string          `json:"base_image_url"`
	IsCustomizable *bool           `json:"is_customizable"`
	Stock          *int            `json:"stock" validate:"omitempty,gte=0"`
}

func (h *Handler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Price.IsPositive() {
		h.writeError(w, http.StatusBadRequest, "price: must be greater than 0")
		return
	}

	now := h.now()
	product := &domain.Product{
		ID:             newID("prod_"),
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price.Round(2),
		Category:       req.Category,
		BaseImageURL:   req.BaseImageURL,
		IsCustomizable: true,
		IsActive:       true,
		Stock:          defaultStock,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if product.Category == "" {
		product.Category = DefaultCategory
	}
	if req.IsCustomizable != nil {
		product.IsCustomizable = *req.IsCustomizable
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	if err := h.store.CreateProduct(r.Context(), product); err != nil {
		h.writeStoreError(w, err, "failed to create product")
		return
	}

	h.logger.Info("product created", "product_id", product.ID)
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id := r.PathValue("id")

	var patch ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(patch); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Price != nil {
		if !patch.Price.IsPositive() {
			h.writeError(w, http.StatusBadRequest, "price: must be greater than 0")
			return
		}
		rounded := patch.Price.Round(2)
		patch.Price = &rounded
	}

	product, err := h.store.UpdateProduct(r.Context(), id, patch, h.now())
	if err != nil {
		h.writeStoreError(w, err, "failed to update product")
		return
	}
	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product updated", "product_id", id)
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id := r.PathValue("id")

	deleted, err := h.store.DeleteProduct(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to delete product")
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product deleted", "product_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

func (h *Handler) HandleListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.store.ListBrands(r.Context())
	if err != nil {
		h.logger.Error("failed to list phone brands", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, brands)
}

type createBrandRequest struct {
	Name    string `json:"name" validate:"required"`
	LogoURL string `json:"logo_url" validate:"omitempty,url"`
}

func (h *Handler) HandleCreateBrand(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req createBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	brand := &domain.PhoneBrand{ID: newID("brand_"), Name: req.Name, LogoURL: req.LogoURL, IsActive: true}
	if err := h.store.CreateBrand(r.Context(), brand); err != nil {
		h.writeStoreError(w, err, "failed to create phone brand")
		return
	}

	h.logger.Info("phone brand created", "brand_id", brand.ID)
	h.writeJSON(w, http.StatusCreated, brand)
}

func (h *Handler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.store.ListModels(r.Context(), r.URL.Query().Get("brand_id"))
	if err != nil {
		h.logger.Error("failed to list phone models", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, models)
}

type createModelRequest struct {
	BrandID         string `json:"brand_id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	ImageURL        string `json:"image_url" validate:"omitempty,url"`
	CaseTemplateURL string `json:"case_template_url" validate:"omitempty,url"`
}

func (h *Handler) HandleCreateModel(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req createModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	model := &domain.PhoneModel{
		ID:              newID("model_"),
		BrandID:         req.BrandID,
		Name:            req.Name,
		ImageURL:        req.ImageURL,
		CaseTemplateURL: req.CaseTemplateURL,
		IsActive:        true,
	}
	if err := h.store.CreateModel(r.Context(), model); err != nil {
		h.writeStoreError(w, err, "failed to create phone model")
		return
	}

	h.logger.Info("phone model created", "model_id", model.ID, "brand_id", model.BrandID)
	h.writeJSON(w, http.StatusCreated, model)
}

func (h *Handler) HandleSeed(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	data := DemoCatalog()
	if err := h.store.Seed(r.Context(), data, h.now()); err != nil {
		h.logger.Error("failed to seed catalog", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("catalog seeded",
		"brands", len(data.Brands), "models", len(data.Models), "products", len(data.Products))
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "catalog seeded"})
}

func (h *Handler) isAdmin(r *http.Request) bool {
	user := identity.UserFromContext(r.Context())
	return user != nil && user.IsAdmin()
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return false
	}
	if !user.IsAdmin() {
		h.writeError(w, http.StatusForbidden, "admin access required")
		return false
	}
	return true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrDuplicateID):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnknownBrand):
		h.writeError(w, http.StatusBadRequest, "brand_id: "+err.Error())
	default:
		h.logger.Error(logMsg, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
