package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/stockgrid/internal/monitoring"
	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
)

// LoadGrid returns the saved cells and notation of a lens. Keys are returned
// as stored; validating them is the caller's concern.
func (db *DB) LoadGrid(ctx context.Context, ref stockgrid.LensRef) (stockgrid.Snapshot, error) {
	var cylFormat string
	err := db.QueryRowContext(ctx,
		`SELECT cyl_format FROM lenses WHERE id = ? AND supplier_id = ? AND brand_id = ?`,
		ref.LensID, ref.SupplierID, ref.BrandID,
	).Scan(&cylFormat)
	if errors.Is(err, sql.ErrNoRows) {
		return stockgrid.Snapshot{}, fmt.Errorf("%w: %s", ErrLensNotFound, ref)
	}
	if err != nil {
		return stockgrid.Snapshot{}, fmt.Errorf("failed to load lens %s: %w", ref, err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT cell_key, active, diameters FROM stock_grid_cells WHERE lens_id = ?`,
		ref.LensID,
	)
	if err != nil {
		return stockgrid.Snapshot{}, fmt.Errorf("failed to query cells of lens %s: %w", ref, err)
	}
	defer rows.Close()

	cells := stockgrid.Cells{}
	for rows.Next() {
		var (
			key       string
			active    int
			diameters string
		)
		if err := rows.Scan(&key, &active, &diameters); err != nil {
			return stockgrid.Snapshot{}, fmt.Errorf("failed to scan cell: %w", err)
		}
		cell := stockgrid.Cell{Active: active == 1, Diameters: stockgrid.Diameters{}}
		if err := json.Unmarshal([]byte(diameters), &cell.Diameters); err != nil {
			return stockgrid.Snapshot{}, fmt.Errorf("failed to decode diameters of cell %s: %w", key, err)
		}
		cells[stockgrid.Key(key)] = cell
	}
	if err := rows.Err(); err != nil {
		return stockgrid.Snapshot{}, fmt.Errorf("error iterating cells: %w", err)
	}
	return stockgrid.Snapshot{CylFormat: units.Notation(cylFormat), Cells: cells}, nil
}

// SaveGrid replaces the lens's cells with snap.Cells and stores
// snap.CylFormat in the same transaction. An empty CylFormat leaves the
// stored notation alone. Malformed keys are refused before anything is
// written.
func (db *DB) SaveGrid(ctx context.Context, ref stockgrid.LensRef, snap stockgrid.Snapshot) error {
	if snap.CylFormat != "" && !units.IsValid(string(snap.CylFormat)) {
		return fmt.Errorf("%w: %q", units.ErrUnknownNotation, snap.CylFormat)
	}
	if err := snap.Cells.Validate(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE lenses
		SET cyl_format = COALESCE(NULLIF(?, ''), cyl_format), updated_at = ?
		WHERE id = ? AND supplier_id = ? AND brand_id = ?`,
		string(snap.CylFormat), time.Now().Unix(), ref.LensID, ref.SupplierID, ref.BrandID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lens %s: %w", ref, err)
	}
	if err := requireOneRow(res, ref); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stock_grid_cells WHERE lens_id = ?`, ref.LensID); err != nil {
		return fmt.Errorf("failed to clear cells of lens %s: %w", ref, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stock_grid_cells (lens_id, cell_key, active, diameters) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare cell insert: %w", err)
	}
	defer stmt.Close()

	for key, cell := range snap.Cells {
		diameters := cell.Diameters
		if diameters == nil {
			diameters = stockgrid.Diameters{}
		}
		encoded, err := json.Marshal(diameters)
		if err != nil {
			return fmt.Errorf("failed to encode diameters of cell %s: %w", key, err)
		}
		active := 0
		if cell.Active {
			active = 1
		}
		if _, err := stmt.ExecContext(ctx, ref.LensID, string(key), active, string(encoded)); err != nil {
			return fmt.Errorf("failed to insert cell %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit grid of lens %s: %w", ref, err)
	}
	monitoring.Logf("stored %d cells for lens %s", len(snap.Cells), ref)
	return nil
}
