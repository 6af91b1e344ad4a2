package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
)

// ErrLensNotFound is returned when no lens matches the full
// supplier/brand/lens identity.
var ErrLensNotFound = errors.New("lens not found")

// ErrInvalidLens is returned by Lens.Validate.
var ErrInvalidLens = errors.New("invalid lens")

// Lens is a catalogue entry owning one stock grid.
type Lens struct {
	ID         string             `json:"id"`
	SupplierID string             `json:"supplierId"`
	BrandID    string             `json:"brandId"`
	Name       string             `json:"name"`
	CylFormat  units.Notation     `json:"cylFormat,omitempty"`
	RxRange    *stockgrid.RxRange `json:"rxRange,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// Ref is the identity used by the grid store.
func (l *Lens) Ref() stockgrid.LensRef {
	return stockgrid.LensRef{SupplierID: l.SupplierID, BrandID: l.BrandID, LensID: l.ID}
}

// Validate checks the fields a caller may set on create.
func (l *Lens) Validate() error {
	if strings.TrimSpace(l.SupplierID) == "" {
		return fmt.Errorf("%w: supplier id is required", ErrInvalidLens)
	}
	if strings.TrimSpace(l.BrandID) == "" {
		return fmt.Errorf("%w: brand id is required", ErrInvalidLens)
	}
	if l.CylFormat != "" && !units.IsValid(string(l.CylFormat)) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidLens, units.ErrUnknownNotation, l.CylFormat)
	}
	if l.RxRange != nil {
		if err := l.RxRange.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidLens, err)
		}
	}
	return nil
}

const lensColumns = `id, supplier_id, brand_id, name, cyl_format, rx_range, created_at, updated_at`

// CreateLens inserts l, assigning a new ID when l.ID is empty.
func (db *DB) CreateLens(ctx context.Context, l *Lens) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	rxRange, err := encodeRxRange(l.RxRange)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	_, err = db.ExecContext(ctx, `
		INSERT INTO lenses (`+lensColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.SupplierID, l.BrandID, l.Name, string(l.CylFormat), rxRange, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create lens: %w", err)
	}
	l.CreatedAt = time.Unix(now, 0)
	l.UpdatedAt = l.CreatedAt
	return nil
}

// GetLens returns the lens matching every part of ref.
func (db *DB) GetLens(ctx context.Context, ref stockgrid.LensRef) (*Lens, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+lensColumns+`
		FROM lenses
		WHERE id = ? AND supplier_id = ? AND brand_id = ?`,
		ref.LensID, ref.SupplierID, ref.BrandID,
	)
	l, err := scanLens(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrLensNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lens %s: %w", ref, err)
	}
	return l, nil
}

// ListLenses returns lenses ordered by name. Empty filters match anything.
func (db *DB) ListLenses(ctx context.Context, supplierID, brandID string) ([]Lens, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+lensColumns+`
		FROM lenses
		WHERE (? = '' OR supplier_id = ?) AND (? = '' OR brand_id = ?)
		ORDER BY name ASC, id ASC`,
		supplierID, supplierID, brandID, brandID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lenses: %w", err)
	}
	defer rows.Close()

	lenses := []Lens{}
	for rows.Next() {
		l, err := scanLens(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lens: %w", err)
		}
		lenses = append(lenses, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lenses: %w", err)
	}
	return lenses, nil
}

// DeleteLens removes the lens and, by cascade, its grid.
func (db *DB) DeleteLens(ctx context.Context, ref stockgrid.LensRef) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM lenses WHERE id = ? AND supplier_id = ? AND brand_id = ?`,
		ref.LensID, ref.SupplierID, ref.BrandID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete lens %s: %w", ref, err)
	}
	return requireOneRow(res, ref)
}

// UpdateCylFormat sets the lens's notation attribute without touching its
// cells. SaveGrid is the way to change both together.
func (db *DB) UpdateCylFormat(ctx context.Context, ref stockgrid.LensRef, n units.Notation) error {
	if !units.IsValid(string(n)) {
		return fmt.Errorf("%w: %q", units.ErrUnknownNotation, n)
	}
	return db.updateLens(ctx, ref, "cyl_format", string(n))
}

// UpdateRxRange stores r as the lens's rx range. A nil r clears it.
func (db *DB) UpdateRxRange(ctx context.Context, ref stockgrid.LensRef, r *stockgrid.RxRange) error {
	if r != nil {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	encoded, err := encodeRxRange(r)
	if err != nil {
		return err
	}
	return db.updateLens(ctx, ref, "rx_range", encoded)
}

func (db *DB) updateLens(ctx context.Context, ref stockgrid.LensRef, column string, value any) error {
	res, err := db.ExecContext(ctx,
		`UPDATE lenses SET `+column+` = ?, updated_at = ? WHERE id = ? AND supplier_id = ? AND brand_id = ?`,
		value, time.Now().Unix(), ref.LensID, ref.SupplierID, ref.BrandID,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s of lens %s: %w", column, ref, err)
	}
	return requireOneRow(res, ref)
}

func requireOneRow(res sql.Result, ref stockgrid.LensRef) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLensNotFound, ref)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLens(s scanner) (*Lens, error) {
	var (
		l                    Lens
		cylFormat            string
		rxRange              sql.NullString
		createdAt, updatedAt int64
	)
	if err := s.Scan(&l.ID, &l.SupplierID, &l.BrandID, &l.Name, &cylFormat, &rxRange, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	l.CylFormat = units.Notation(cylFormat)
	if rxRange.Valid && rxRange.String != "" {
		var r stockgrid.RxRange
		if err := json.Unmarshal([]byte(rxRange.String), &r); err != nil {
			return nil, fmt.Errorf("failed to decode rx range of lens %s: %w", l.ID, err)
		}
		l.RxRange = &r
	}
	l.CreatedAt = time.Unix(createdAt, 0)
	l.UpdatedAt = time.Unix(updatedAt, 0)
	return &l, nil
}

func encodeRxRange(r *stockgrid.RxRange) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode rx range: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
