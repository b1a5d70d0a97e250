package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quillbooks/quillbooks/internal/platform/httpx"
)

// Handler exposes the item master over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type createItemRequest struct {
	Name     string  `json:"name" validate:"required"`
	Type     string  `json:"type" validate:"required,oneof=PRODUCT SERVICE"`
	Price    float64 `json:"price" validate:"gte=0"`
	StockQty float64 `json:"stock_qty" validate:"gte=0"`
}

type updateItemRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1"`
	Price    *float64 `json:"price" validate:"omitempty,gte=0"`
	IsActive *bool    `json:"is_active"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.CreateItem(r.Context(), CreateItemInput{
		Name:     req.Name,
		Type:     ItemType(req.Type),
		Price:    req.Price,
		StockQty: req.StockQty,
	})
	if err != nil {
		h.logger.Error("create item", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	var req updateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.UpdateItem(r.Context(), id, UpdateItemInput{
		Name:     req.Name,
		Price:    req.Price,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.logger.Error("update item", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListItemsFilter{
		Type:   ItemType(r.URL.Query().Get("type")),
		Search: r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("is_active"); v != "" {
		active := v == "true"
		filter.IsActive = &active
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			filter.Offset = parsed
		}
	}
	items, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		h.logger.Error("list items", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}
