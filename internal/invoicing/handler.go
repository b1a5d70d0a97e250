package invoicing

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

// Handler exposes the invoice lifecycle over HTTP. It translates between
// JSON and the core's inputs; all business rules live in the service.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type lineItemRequest struct {
	ItemID      int64   `json:"item_id" validate:"required"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type createInvoiceRequest struct {
	CustomerID int64             `json:"customer_id" validate:"required"`
	IssueDate  string            `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate    string            `json:"due_date" validate:"required,datetime=2006-01-02"`
	Tax        float64           `json:"tax" validate:"gte=0"`
	Notes      string            `json:"notes"`
	Draft      bool              `json:"draft"`
	Lines      []lineItemRequest `json:"lines" validate:"required,min=1,dive"`
}

type editInvoiceRequest struct {
	IssueDate string            `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate   string            `json:"due_date" validate:"required,datetime=2006-01-02"`
	Tax       float64           `json:"tax" validate:"gte=0"`
	Notes     string            `json:"notes"`
	Lines     []lineItemRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	issue, due, err := parseDates(req.IssueDate, req.DueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.Create(r.Context(), CreateInvoiceInput{
		CustomerID: req.CustomerID,
		IssueDate:  issue,
		DueDate:    due,
		Tax:        req.Tax,
		Notes:      req.Notes,
		Draft:      req.Draft,
		Lines:      toLineInputs(req.Lines),
	})
	if err != nil {
		h.logger.Error("create invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	var req editInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	issue, due, err := parseDates(req.IssueDate, req.DueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.Edit(r.Context(), EditInvoiceInput{
		InvoiceID: id,
		IssueDate: issue,
		DueDate:   due,
		Tax:       req.Tax,
		Notes:     req.Notes,
		Lines:     toLineInputs(req.Lines),
	})
	if err != nil {
		h.logger.Error("edit invoice", slog.Any("error", err), slog.Int64("invoice_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete invoice", slog.Any("error", err), slog.Int64("invoice_id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListInvoicesFilter{
		Status: InvoiceStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("customer_id"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.CustomerID = parsed
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
	invoices, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func parseDates(issue, due string) (time.Time, time.Time, error) {
	issueDate, err := time.Parse("2006-01-02", issue)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid issue_date")
	}
	dueDate, err := time.Parse("2006-01-02", due)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid due_date")
	}
	return issueDate, dueDate, nil
}

func toLineInputs(lines []lineItemRequest) []LineItemInput {
	out := make([]LineItemInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineItemInput{
			ItemID:      line.ItemID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	return out
}
