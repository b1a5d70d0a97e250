package payments

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quillbooks/quillbooks/internal/platform/httpx"
)

// Handler exposes payment recording over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type recordPaymentRequest struct {
	InvoiceID  int64   `json:"invoice_id" validate:"required"`
	CustomerID int64   `json:"customer_id" validate:"required"`
	Amount     float64 `json:"amount" validate:"gt=0"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Method     string  `json:"method" validate:"required"`
	Note       string  `json:"note"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
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
	payment, err := h.service.Record(r.Context(), RecordPaymentInput{
		InvoiceID:  req.InvoiceID,
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Date:       date,
		Method:     req.Method,
		Note:       req.Note,
	})
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err), slog.Int64("invoice_id", req.InvoiceID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var customerID int64
	if v := r.URL.Query().Get("customer_id"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			customerID = parsed
		}
	}
	payments, err := h.service.ListPayments(r.Context(), customerID)
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) listForInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	payments, err := h.service.ListForInvoice(r.Context(), invoiceID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}
