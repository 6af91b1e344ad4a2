package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/stockgrid/internal/db"
	"github.com/banshee-data/stockgrid/internal/editor"
	"github.com/banshee-data/stockgrid/internal/httputil"
	"github.com/banshee-data/stockgrid/internal/report"
	"github.com/banshee-data/stockgrid/internal/rx"
	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
)

func (s *Server) listLenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lenses, err := s.db.ListLenses(r.Context(), q.Get("supplier_id"), q.Get("brand_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, lenses)
}

func (s *Server) createLens(w http.ResponseWriter, r *http.Request) {
	var l db.Lens
	if err := httputil.DecodeJSON(r, &l); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.db.CreateLens(r.Context(), &l); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, l)
}

func (s *Server) getLens(w http.ResponseWriter, r *http.Request) {
	ref, ok := lensRef(w, r)
	if !ok {
		return
	}
	l, err := s.db.GetLens(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, l)
}

func (s *Server) deleteLens(w http.ResponseWriter, r *http.Request) {
	ref, ok := lensRef(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteLens(r.Context(), ref); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cylFormatBody struct {
	CylFormat units.Notation `json:"cylFormat"`
}

// putCylFormat sets the notation attribute alone. The cells are not
// transposed; POST .../grid/transpose does both.
func (s *Server) putCylFormat(w http.ResponseWriter, r *http.Request) {
	ref, ok := lensRef(w, r)
	if !ok {
		return
	}
	var body cylFormatBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.db.UpdateCylFormat(r.Context(), ref, body.CylFormat); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, body)
}

func (s *Server) putRxRange(w http.ResponseWriter, r *http.Request) {
	ref, ok := lensRef(w, r)
	if !ok {
		return
	}
	var rng *stockgrid.RxRange
	if err := httputil.DecodeJSON(r, &rng); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.db.UpdateRxRange(r.Context(), ref, rng); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, rng)
}

// getGrid returns the grid as stored. An empty cylFormat tells the caller
// the lens never chose a notation.
func (s *Server) getGrid(w http.ResponseWriter, r *http.Request) {
	ref, ok := lensRef(w, r)
	if !ok {
		return
	}
	snap, err := s.db.LoadGrid(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, snap)
}

func (s *Server) putGrid(w http.ResponseWriter, r *http.Request) {
	ref, ok := lensRef(w, r)
	if !ok {
		return
	}
	var snap stockgrid.Snapshot
	if err := httputil.DecodeJSON(r, &snap); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if snap.CylFormat != "" && !units.IsValid(string(snap.CylFormat)) {
		httputil.UnprocessableEntity(w, fmt.Sprintf("%v: %q", units.ErrUnknownNotation, snap.CylFormat))
		return
	}
	if snap.Cells == nil {
		snap.Cells = stockgrid.Cells{}
	}
	if err := s.db.SaveGrid(r.Context(), ref, snap); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transposeGrid switches the lens's notation and re-keys its cells in one
// save.
func (s *Server) transposeGrid(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	sess.ToggleCylFormat()
	if err := sess.Save(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, sess.Snapshot())
}

func (s *Server) gridStats(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, sess.Stats())
}

func (s *Server) gridChart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	grid, err := stockgrid.FromSnapshot(sess.Snapshot())
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := report.CoverageChart(&buf, report.CoverageMatrix(grid), sess.Ref().String()); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sph, err := strconv.ParseFloat(q.Get("sph"), 64)
	if err != nil {
		httputil.BadRequest(w, "sph must be a number")
		return
	}
	cyl, err := strconv.ParseFloat(q.Get("cyl"), 64)
	if err != nil {
		httputil.BadRequest(w, "cyl must be a number")
		return
	}
	var axis *int
	if v := q.Get("axis"); v != "" {
		a, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, "axis must be an integer")
			return
		}
		axis = &a
	}
	var diameter float64
	if v := q.Get("diameter"); v != "" {
		if diameter, err = strconv.ParseFloat(v, 64); err != nil {
			httputil.BadRequest(w, "diameter must be a number")
			return
		}
	}

	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, sess.Lookup(rx.New(sph, cyl, axis), diameter))
}

// openSession loads the lens's grid through the editor, so reads see the
// same defaults and validation as an interactive session.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	ref, ok := lensRef(w, r)
	if !ok {
		return nil, false
	}
	sess, err := editor.Open(r.Context(), s.db, ref, editor.WithDefaultNotation(s.defaultNotation))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}
