package recurring

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quillbooks/quillbooks/internal/invoicing"
	"github.com/quillbooks/quillbooks/internal/platform/httpx"
)

// Handler exposes recurring profile management over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type profileLineRequest struct {
	ItemID      int64   `json:"item_id" validate:"required"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type createProfileRequest struct {
	CustomerID int64                `json:"customer_id" validate:"required"`
	Frequency  string               `json:"frequency" validate:"required,oneof=WEEKLY MONTHLY QUARTERLY YEARLY"`
	DueInDays  int                  `json:"due_in_days" validate:"gte=0"`
	Tax        float64              `json:"tax" validate:"gte=0"`
	Notes      string               `json:"notes"`
	StartAt    string               `json:"start_at" validate:"omitempty,datetime=2006-01-02"`
	Lines      []profileLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var startAt time.Time
	if req.StartAt != "" {
		startAt, _ = time.Parse("2006-01-02", req.StartAt)
	}
	lines := make([]invoicing.LineItemInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, invoicing.LineItemInput{
			ItemID:      line.ItemID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	profile, err := h.service.CreateProfile(r.Context(), CreateProfileInput{
		CustomerID: req.CustomerID,
		Frequency:  Frequency(req.Frequency),
		DueInDays:  req.DueInDays,
		Tax:        req.Tax,
		Notes:      req.Notes,
		StartAt:    startAt,
		Lines:      lines,
	})
	if err != nil {
		h.logger.Error("create recurring profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, profile)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid profile id")
		return
	}
	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListProfiles(r.Context())
	if err != nil {
		h.logger.Error("list recurring profiles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profiles)
}

func (h *Handler) pause(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.service.Pause)
}

func (h *Handler) resume(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.service.Resume)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64) error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid profile id")
		return
	}
	if err := apply(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
