package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/banshee-data/stockgrid/internal/db"
	"github.com/banshee-data/stockgrid/internal/httputil"
	"github.com/banshee-data/stockgrid/internal/stockgrid"
)

// Client talks to a stockgrid server. It implements editor.Store, so an
// editor session can run against a remote catalogue.
type Client struct {
	baseURL string
	hc      httputil.HTTPClient
}

// NewClient returns a client for the server at baseURL. A nil hc uses a
// standard client with the given timeout.
func NewClient(baseURL string, hc httputil.HTTPClient, timeout time.Duration) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(&http.Client{Timeout: timeout})
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

func (c *Client) lensURL(ref stockgrid.LensRef, suffix string) string {
	q := url.Values{}
	q.Set("supplier_id", ref.SupplierID)
	q.Set("brand_id", ref.BrandID)
	return c.baseURL + "/lenses/" + url.PathEscape(ref.LensID) + suffix + "?" + q.Encode()
}

// LoadGrid fetches the stored grid of ref.
func (c *Client) LoadGrid(ctx context.Context, ref stockgrid.LensRef) (stockgrid.Snapshot, error) {
	var snap stockgrid.Snapshot
	if err := httputil.DoJSON(ctx, c.hc, http.MethodGet, c.lensURL(ref, "/grid"), nil, &snap); err != nil {
		return stockgrid.Snapshot{}, mapStatus(err)
	}
	if snap.Cells == nil {
		snap.Cells = stockgrid.Cells{}
	}
	return snap, nil
}

// SaveGrid replaces the stored grid of ref with snap.
func (c *Client) SaveGrid(ctx context.Context, ref stockgrid.LensRef, snap stockgrid.Snapshot) error {
	if err := httputil.DoJSON(ctx, c.hc, http.MethodPut, c.lensURL(ref, "/grid"), snap, nil); err != nil {
		return mapStatus(err)
	}
	return nil
}

// CreateLens registers l on the server and fills in the assigned fields.
func (c *Client) CreateLens(ctx context.Context, l *db.Lens) error {
	if err := httputil.DoJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/lenses", l, l); err != nil {
		return mapStatus(err)
	}
	return nil
}

// GetLens fetches the lens record of ref.
func (c *Client) GetLens(ctx context.Context, ref stockgrid.LensRef) (*db.Lens, error) {
	var l db.Lens
	if err := httputil.DoJSON(ctx, c.hc, http.MethodGet, c.lensURL(ref, ""), nil, &l); err != nil {
		return nil, mapStatus(err)
	}
	return &l, nil
}

// mapStatus restores the sentinel a server status stands for, so callers
// can use errors.Is the same way against a local or remote store.
func mapStatus(err error) error {
	switch httputil.StatusCode(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", db.ErrLensNotFound, err)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", stockgrid.ErrMalformedKey, err)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %w", db.ErrInvalidLens, err)
	default:
		return err
	}
}
