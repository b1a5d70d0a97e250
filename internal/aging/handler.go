package aging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"golang.org/x/sync/singleflight"

	"github.com/quillbooks/quillbooks/internal/platform/httpx"
)

// Handler exposes the aging reports over HTTP. Schedules are cached and
// concurrent cold-cache requests for the same key collapse into one build.
type Handler struct {
	logger  *slog.Logger
	service *Service
	cache   *Cache
	group   singleflight.Group
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, cache *Cache) *Handler {
	return &Handler{logger: logger, service: service, cache: cache}
}

// MountRoutes registers report routes with a shared rate limit.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(30, time.Minute))
		r.Get("/reports/aging/receivables", h.receivables)
		r.Get("/reports/aging/payables", h.payables)
		r.Get("/reports/aging/receivables.csv", h.receivablesCSV)
		r.Get("/reports/aging/payables.csv", h.payablesCSV)
	})
}

func (h *Handler) receivables(w http.ResponseWriter, r *http.Request) {
	h.respondSchedule(w, r, "receivables", h.service.Receivables)
}

func (h *Handler) payables(w http.ResponseWriter, r *http.Request) {
	h.respondSchedule(w, r, "payables", h.service.Payables)
}

func (h *Handler) receivablesCSV(w http.ResponseWriter, r *http.Request) {
	h.respondCSV(w, r, "receivables", "Receivables Aging", h.service.Receivables)
}

func (h *Handler) payablesCSV(w http.ResponseWriter, r *http.Request) {
	h.respondCSV(w, r, "payables", "Payables Aging", h.service.Payables)
}

func (h *Handler) respondSchedule(w http.ResponseWriter, r *http.Request, report string, build func(context.Context, time.Time) (Schedule, error)) {
	asOf, err := parseAsOf(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	schedule, err := h.buildSchedule(r.Context(), report, asOf, build)
	if err != nil {
		h.logger.Error("build aging schedule", slog.String("report", report), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, schedule)
}

func (h *Handler) respondCSV(w http.ResponseWriter, r *http.Request, report, title string, build func(context.Context, time.Time) (Schedule, error)) {
	asOf, err := parseAsOf(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	schedule, err := h.buildSchedule(r.Context(), report, asOf, build)
	if err != nil {
		h.logger.Error("build aging schedule", slog.String("report", report), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=aging-%s-%s.csv", report, schedule.AsOf.Format("2006-01-02")))
	if err := WriteScheduleCSV(w, title, schedule); err != nil {
		h.logger.Error("write aging csv", slog.String("report", report), slog.Any("error", err))
	}
}

func (h *Handler) buildSchedule(ctx context.Context, report string, asOf time.Time, build func(context.Context, time.Time) (Schedule, error)) (Schedule, error) {
	key := fmt.Sprintf("aging:%s:%s", report, asOf.Format("2006-01-02"))
	result, err, _ := h.group.Do(key, func() (any, error) {
		return h.cache.Fetch(ctx, key, func(ctx context.Context) (Schedule, error) {
			return build(ctx, asOf)
		})
	})
	if err != nil {
		return Schedule{}, err
	}
	return result.(Schedule), nil
}

func parseAsOf(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("as_of")
	if v == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	asOf, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as_of date")
	}
	return asOf, nil
}
