package journal

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quillbooks/quillbooks/internal/platform/httpx"
)

// Handler exposes journal postings over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type postingLineRequest struct {
	AccountID int64   `json:"account_id" validate:"required"`
	Debit     float64 `json:"debit" validate:"gte=0"`
	Credit    float64 `json:"credit" validate:"gte=0"`
}

type postEntryRequest struct {
	Date        string               `json:"date" validate:"required,datetime=2006-01-02"`
	Reference   string               `json:"reference"`
	Description string               `json:"description"`
	Lines       []postingLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req postEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date")
		return
	}
	lines := make([]PostingLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, PostingLineInput{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}
	entry, err := h.service.Post(r.Context(), PostingInput{
		Date:        date,
		Reference:   req.Reference,
		Description: req.Description,
		Lines:       lines,
	})
	if err != nil {
		var unbalanced *UnbalancedError
		if errors.As(err, &unbalanced) {
			httpx.JSON(w, http.StatusBadRequest, map[string]any{
				"title":  "Entry Unbalanced",
				"status": http.StatusBadRequest,
				"detail": unbalanced.Error(),
				"debit":  unbalanced.Debit,
				"credit": unbalanced.Credit,
			})
			return
		}
		h.logger.Error("post journal entry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var filter ListEntriesFilter
	if v := r.URL.Query().Get("from"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = parsed
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = parsed
		}
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
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list journal entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}
