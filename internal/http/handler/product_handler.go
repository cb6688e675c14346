package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/soukly/platform/internal/apperr"
	"github.com/soukly/platform/internal/http/middleware"
	"github.com/soukly/platform/internal/http/response"
	"github.com/soukly/platform/internal/repository"
	"github.com/soukly/platform/internal/service"
)

type ProductHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

func NewProductHandler(catalog *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(r.Context(), w, h.logger, apperr.New(apperr.KindAuth, "missing access token"))
		return
	}
	var in service.ProductInput
	if err := response.DecodeJSON(r, &in); err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	product, err := h.catalog.Create(r.Context(), sellerID, in)
	if err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, product)
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	req := repository.PageRequest{
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "page_size"),
	}
	result, err := h.catalog.List(r.Context(), req)
	if err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(r.Context(), w, h.logger, apperr.New(apperr.KindAuth, "missing access token"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	var in service.ProductInput
	if err := response.DecodeJSON(r, &in); err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	product, err := h.catalog.Update(r.Context(), sellerID, id, in)
	if err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(r.Context(), w, h.logger, apperr.New(apperr.KindAuth, "missing access token"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	if err := h.catalog.Delete(r.Context(), sellerID, id); err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

func pathID(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.KindValidation, "invalid product id")
	}
	return uint(id), nil
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
