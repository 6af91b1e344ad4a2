// Package api exposes lenses and their stock grids over HTTP JSON, and
// provides a Client that implements editor.Store against that API.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/stockgrid/internal/db"
	"github.com/banshee-data/stockgrid/internal/editor"
	"github.com/banshee-data/stockgrid/internal/httputil"
	"github.com/banshee-data/stockgrid/internal/monitoring"
	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db              *db.DB
	defaultNotation units.Notation
}

func NewServer(database *db.DB, defaultNotation units.Notation) *Server {
	if !units.IsValid(string(defaultNotation)) {
		defaultNotation = editor.DefaultNotation
	}
	return &Server{
		db:              database,
		defaultNotation: defaultNotation,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /lenses", s.listLenses)
	mux.HandleFunc("POST /lenses", s.createLens)
	mux.HandleFunc("GET /lenses/{id}", s.getLens)
	mux.HandleFunc("DELETE /lenses/{id}", s.deleteLens)
	mux.HandleFunc("PUT /lenses/{id}/cyl_format", s.putCylFormat)
	mux.HandleFunc("PUT /lenses/{id}/rx_range", s.putRxRange)
	mux.HandleFunc("GET /lenses/{id}/grid", s.getGrid)
	mux.HandleFunc("PUT /lenses/{id}/grid", s.putGrid)
	mux.HandleFunc("POST /lenses/{id}/grid/transpose", s.transposeGrid)
	mux.HandleFunc("GET /lenses/{id}/grid/stats", s.gridStats)
	mux.HandleFunc("GET /lenses/{id}/grid/chart", s.gridChart)
	mux.HandleFunc("GET /lenses/{id}/availability", s.availability)
	return mux
}

// lensRef reads the lens identity from the path and query. It writes a 400
// and returns false when part of it is missing.
func lensRef(w http.ResponseWriter, r *http.Request) (stockgrid.LensRef, bool) {
	ref := stockgrid.LensRef{
		SupplierID: r.URL.Query().Get("supplier_id"),
		BrandID:    r.URL.Query().Get("brand_id"),
		LensID:     r.PathValue("id"),
	}
	if ref.SupplierID == "" || ref.BrandID == "" {
		httputil.BadRequest(w, "supplier_id and brand_id are required")
		return ref, false
	}
	return ref, true
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrLensNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, editor.ErrCorruptGridData), errors.Is(err, stockgrid.ErrMalformedKey):
		httputil.UnprocessableEntity(w, err.Error())
	case errors.Is(err, db.ErrInvalidLens),
		errors.Is(err, stockgrid.ErrInvalidRxRange),
		errors.Is(err, units.ErrUnknownNotation):
		httputil.BadRequest(w, err.Error())
	default:
		monitoring.Logf("request failed: %v", err)
		httputil.InternalServerError(w, "internal error")
	}
}
