package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stockgrid/internal/db"
	"github.com/banshee-data/stockgrid/internal/editor"
	"github.com/banshee-data/stockgrid/internal/httputil"
	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
)

var _ editor.Store = (*Client)(nil)

func setupTestClient(t *testing.T) (*Client, *db.DB) {
	t.Helper()
	s, d := setupTestServer(t)
	ts := httptest.NewServer(s.ServeMux())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/", nil, 5*time.Second), d
}

func TestClient_EditorSession(t *testing.T) {
	c, d := setupTestClient(t)
	ctx := context.Background()

	l := &db.Lens{SupplierID: "acme", BrandID: "clear", Name: "Remote"}
	require.NoError(t, c.CreateLens(ctx, l))
	require.NotEmpty(t, l.ID)

	sess, err := editor.Open(ctx, c, l.Ref())
	require.NoError(t, err)
	assert.Equal(t, editor.DefaultNotation, sess.Notation())
	assert.Empty(t, sess.Cells())

	sess.QuickFill(-200, 0, -100, 0, stockgrid.Diameters{65})
	require.NoError(t, sess.Save(ctx))

	snap, err := d.LoadGrid(ctx, l.Ref())
	require.NoError(t, err)
	assert.Len(t, snap.Cells, 9*5)
	assert.Equal(t, sess.Notation(), snap.CylFormat)

	reopened, err := editor.Open(ctx, c, l.Ref())
	require.NoError(t, err)
	assert.Equal(t, sess.Cells(), reopened.Cells())
}

func TestClient_GetLens(t *testing.T) {
	c, d := setupTestClient(t)
	l := createLens(t, d)

	got, err := c.GetLens(context.Background(), l.Ref())
	require.NoError(t, err)
	assert.Equal(t, l.Name, got.Name)

	ref := l.Ref()
	ref.BrandID = "other"
	_, err = c.GetLens(context.Background(), ref)
	assert.ErrorIs(t, err, db.ErrLensNotFound)
	assert.Equal(t, http.StatusNotFound, httputil.StatusCode(err))
}

func TestClient_Errors(t *testing.T) {
	c, d := setupTestClient(t)
	ctx := context.Background()
	l := createLens(t, d)

	_, err := c.LoadGrid(ctx, stockgrid.LensRef{SupplierID: "acme", BrandID: "clear", LensID: "missing"})
	assert.ErrorIs(t, err, db.ErrLensNotFound)

	err = c.SaveGrid(ctx, l.Ref(), stockgrid.Snapshot{
		CylFormat: units.Minus,
		Cells:     stockgrid.Cells{"junk": {Active: true}},
	})
	assert.ErrorIs(t, err, stockgrid.ErrMalformedKey)

	err = c.CreateLens(ctx, &db.Lens{SupplierID: "acme"})
	assert.ErrorIs(t, err, db.ErrInvalidLens)

	// The raw endpoint returns stored keys verbatim; the editor rejects them.
	_, err = d.Exec(`INSERT INTO stock_grid_cells (lens_id, cell_key, active, diameters) VALUES (?, 'junk', 1, '[]')`, l.ID)
	require.NoError(t, err)
	snap, err := c.LoadGrid(ctx, l.Ref())
	require.NoError(t, err)
	assert.Contains(t, snap.Cells, stockgrid.Key("junk"))
	_, err = editor.Open(ctx, c, l.Ref())
	assert.ErrorIs(t, err, editor.ErrCorruptGridData)
}

func TestClient_MockRequests(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"cylFormat":"plus"}`)
	mock.AddResponse(http.StatusNoContent, ``)
	c := NewClient("http://grid.test", mock, 0)
	ref := stockgrid.LensRef{SupplierID: "acme co", BrandID: "clear", LensID: "l/1"}

	snap, err := c.LoadGrid(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, units.Plus, snap.CylFormat)
	assert.NotNil(t, snap.Cells)

	require.NoError(t, c.SaveGrid(context.Background(), ref, snap))

	require.Equal(t, 2, mock.RequestCount())
	get, put := mock.Requests[0], mock.Requests[1]
	assert.Equal(t, http.MethodGet, get.Method)
	assert.Equal(t, "/lenses/l%2F1/grid", get.URL.EscapedPath())
	assert.Equal(t, "acme co", get.URL.Query().Get("supplier_id"))
	assert.Equal(t, http.MethodPut, put.Method)
	assert.Equal(t, "application/json", put.Header.Get("Content-Type"))
	assert.True(t, strings.Contains(mock.Bodies[1], `"cylFormat":"plus"`))
}

func TestClient_TransportError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddErrorResponse(errors.New("connection refused")).AddErrorResponse(errors.New("connection refused"))
	c := NewClient("http://grid.test", mock, 0)

	_, err := c.LoadGrid(context.Background(), stockgrid.LensRef{SupplierID: "a", BrandID: "b", LensID: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, httputil.StatusCode(err))

	_, err = editor.Open(context.Background(), c, stockgrid.LensRef{SupplierID: "a", BrandID: "b", LensID: "c"})
	assert.ErrorIs(t, err, editor.ErrPersistence)
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, db.ErrLensNotFound},
		{http.StatusUnprocessableEntity, stockgrid.ErrMalformedKey},
		{http.StatusBadRequest, db.ErrInvalidLens},
	}
	for _, tt := range tests {
		err := mapStatus(&httputil.StatusError{Code: tt.code, Message: "x"})
		assert.ErrorIs(t, err, tt.want)
		assert.Equal(t, tt.code, httputil.StatusCode(err))
	}

	plain := &httputil.StatusError{Code: http.StatusInternalServerError}
	assert.Same(t, plain, mapStatus(plain))
}
