package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/sales-dashboard-be/internal/dataset"
	"github.com/hongminglow/sales-dashboard-be/internal/http/respond"
	"github.com/hongminglow/sales-dashboard-be/internal/logging"
	"github.com/hongminglow/sales-dashboard-be/internal/models/dto"
	"github.com/hongminglow/sales-dashboard-be/internal/storage"
)

// Table paging defaults.
const (
	DefaultPageSize = 15
	MaxPageSize     = 100
)

// SalesHandler serves the read-only reports for one dataset.
type SalesHandler struct {
	def   *dataset.Definition
	store storage.SalesStore
	log   logging.Logger
}

func NewSalesHandler(def *dataset.Definition, store storage.SalesStore, log logging.Logger) *SalesHandler {
	return &SalesHandler{def: def, store: store, log: log}
}

// Register attaches the report routes. One by-<route> endpoint is added per routed dimension.
func (h *SalesHandler) Register(r chi.Router) {
	r.Get("/kpi", h.handleKPI)
	r.Get("/by-year", h.handleByYear)
	r.Get("/trend", h.handleTrend)
	r.Get("/table", h.handleTable)
	r.Get("/years", h.handleYears)
	for _, dim := range h.def.RoutedDimensions() {
		r.Get("/by-"+dim.Route, h.byDimension(dim))
	}
}

func (h *SalesHandler) handleKPI(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	totals, err := h.store.Totals(r.Context(), h.def.Name, h.def.MeasureKeys(), f)
	if err != nil {
		h.serverError(w, r, "kpi", err)
		return
	}
	respond.JSON(w, http.StatusOK, h.def.KPIRow(totals))
}

func (h *SalesHandler) byDimension(dim dataset.Dimension) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := parseFilter(w, r)
		if !ok {
			return
		}
		groups, err := h.store.GroupByDimension(r.Context(), h.def.Name, dim.Key, h.def.MeasureKeys(), f)
		if err != nil {
			h.serverError(w, r, "group by "+dim.Key, err)
			return
		}
		respond.JSON(w, http.StatusOK, h.def.GroupRows(dim, groups))
	}
}

func (h *SalesHandler) handleByYear(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.GroupByPeriod(r.Context(), h.def.Name, h.def.MeasureKeys(), false, storage.Filter{})
	if err != nil {
		h.serverError(w, r, "group by year", err)
		return
	}
	respond.JSON(w, http.StatusOK, h.def.YearRows(groups))
}

func (h *SalesHandler) handleTrend(w http.ResponseWriter, r *http.Request) {
	year, ok := parseIntParam(w, r, "year", 1, 9999)
	if !ok {
		return
	}
	groups, err := h.store.GroupByPeriod(r.Context(), h.def.Name, h.def.MeasureKeys(), true, storage.Filter{Year: year})
	if err != nil {
		h.serverError(w, r, "trend", err)
		return
	}
	respond.JSON(w, http.StatusOK, h.def.TrendRows(groups))
}

func (h *SalesHandler) handleTable(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page := positiveOr(q.Get("page"), 1)
	limit := positiveOr(q.Get("limit"), DefaultPageSize)
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	// offset stays representable; any page this far out is past the end anyway
	offsetPage := page
	if offsetPage > math.MaxInt/limit {
		offsetPage = math.MaxInt / limit
	}

	rows, total, err := h.store.Page(r.Context(), h.def.Name, storage.PageQuery{
		Filter:          f,
		Search:          strings.TrimSpace(q.Get("search")),
		SearchFields:    h.def.SearchFields(),
		OrderDimensions: h.def.TableOrder,
		Offset:          (offsetPage - 1) * limit,
		Limit:           limit,
	})
	if err != nil {
		h.serverError(w, r, "table", err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.TableResponse{
		Data:  rows,
		Total: total,
		Page:  page,
		Pages: int((total + int64(limit) - 1) / int64(limit)),
	})
}

func (h *SalesHandler) handleYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.store.DistinctYears(r.Context(), h.def.Name)
	if err != nil {
		h.serverError(w, r, "years", err)
		return
	}
	respond.JSON(w, http.StatusOK, years)
}

func (h *SalesHandler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error(r.Context(), op+" query failed", "error", err)
	respond.Error(w, http.StatusInternalServerError, msgServerError)
}

// parseFilter reads ?year= and ?month=, writing a 400 when either is malformed.
func parseFilter(w http.ResponseWriter, r *http.Request) (storage.Filter, bool) {
	year, ok := parseIntParam(w, r, "year", 1, 9999)
	if !ok {
		return storage.Filter{}, false
	}
	month, ok := parseIntParam(w, r, "month", 1, 12)
	if !ok {
		return storage.Filter{}, false
	}
	return storage.Filter{Year: year, Month: month}, true
}

// parseIntParam returns 0 for an absent parameter.
func parseIntParam(w http.ResponseWriter, r *http.Request, name string, lo, hi int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		respond.Error(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return n, true
}

func positiveOr(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}
