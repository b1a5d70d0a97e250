package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quillbooks/quillbooks/internal/platform/httpx"
)

// MovementLister reads the movement trail.
type MovementLister interface {
	ListMovements(ctx context.Context, itemID int64, limit int) ([]Movement, error)
}

// Handler exposes manual stock adjustments and the movement trail.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	movements MovementLister
	validate  *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, movements MovementLister) *Handler {
	return &Handler{logger: logger, service: service, movements: movements, validate: validator.New()}
}

type adjustStockRequest struct {
	ItemID int64   `json:"item_id" validate:"required"`
	Delta  float64 `json:"delta" validate:"required"`
	Note   string  `json:"note"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	mv, err := h.service.Adjust(r.Context(), AdjustmentInput{
		ItemID: req.ItemID,
		Delta:  req.Delta,
		Note:   req.Note,
	})
	if err != nil {
		h.logger.Error("adjust stock", slog.Any("error", err), slog.Int64("item_id", req.ItemID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, mv)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	movements, err := h.movements.ListMovements(r.Context(), itemID, limit)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err), slog.Int64("item_id", itemID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}
