package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/court-booking/internal/model"
)

// ErrEquipmentNotFound is returned when an equipment item cannot be found.
var ErrEquipmentNotFound = errors.New("equipment not found")

// ErrSKUExists is returned when creating an item with a duplicate SKU.
var ErrSKUExists = errors.New("sku already exists")

// EquipmentRepo encapsulates database queries for the rental equipment
// catalog.  Items are fungible pools identified by SKU.
type EquipmentRepo struct {
	db *sql.DB
}

// NewEquipmentRepo constructs an EquipmentRepo with the provided DB handle.
func NewEquipmentRepo(db *sql.DB) *EquipmentRepo {
	return &EquipmentRepo{db: db}
}

// Create inserts a new equipment item, populating its ID.
func (r *EquipmentRepo) Create(ctx context.Context, e *model.EquipmentItem) error {
	const q = "INSERT INTO equipment_items (sku, name, total_quantity, rental_fee, active) VALUES (?, ?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, e.SKU, e.Name, e.TotalQuantity, e.RentalFee, e.Active)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrSKUExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetBySKU fetches an item by its SKU.
func (r *EquipmentRepo) GetBySKU(ctx context.Context, sku string) (*model.EquipmentItem, error) {
	const q = "SELECT id, sku, name, total_quantity, rental_fee, active FROM equipment_items WHERE sku = ?"
	var e model.EquipmentItem
	if err := r.db.QueryRowContext(ctx, q, sku).Scan(&e.ID, &e.SKU, &e.Name, &e.TotalQuantity, &e.RentalFee, &e.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}
	return &e, nil
}

// GetByID fetches an item by its primary key.
func (r *EquipmentRepo) GetByID(ctx context.Context, id uint64) (*model.EquipmentItem, error) {
	const q = "SELECT id, sku, name, total_quantity, rental_fee, active FROM equipment_items WHERE id = ?"
	var e model.EquipmentItem
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.SKU, &e.Name, &e.TotalQuantity, &e.RentalFee, &e.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns the full catalog.  When activeOnly is true, retired
// items are filtered out.
func (r *EquipmentRepo) List(ctx context.Context, activeOnly bool) ([]model.EquipmentItem, error) {
	q := "SELECT id, sku, name, total_quantity, rental_fee, active FROM equipment_items ORDER BY id"
	if activeOnly {
		q = "SELECT id, sku, name, total_quantity, rental_fee, active FROM equipment_items WHERE active = 1 ORDER BY id"
	}
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EquipmentItem
	for rows.Next() {
		var e model.EquipmentItem
		if err := rows.Scan(&e.ID, &e.SKU, &e.Name, &e.TotalQuantity, &e.RentalFee, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update rewrites the mutable columns of an item.  Shrinking
// total_quantity never touches existing allocations: conservation is
// enforced against the new pool size from the next admission onwards.
func (r *EquipmentRepo) Update(ctx context.Context, e *model.EquipmentItem) error {
	const q = "UPDATE equipment_items SET name = ?, total_quantity = ?, rental_fee = ?, active = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, e.Name, e.TotalQuantity, e.RentalFee, e.Active, e.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM equipment_items WHERE id = ?)", e.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrEquipmentNotFound
		}
	}
	return nil
}

// Delete removes an item from the catalog, refusing with ErrConflict
// while confirmed bookings still allocate it.
func (r *EquipmentRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var sku string
	err = tx.QueryRowContext(ctx, "SELECT sku FROM equipment_items WHERE id = ?", id).Scan(&sku)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrEquipmentNotFound
		return err
	}
	if err != nil {
		return err
	}

	var active int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings b
		JOIN booking_allocations a ON a.booking_id = b.id
		WHERE a.resource_type = 'equipment' AND a.resource_ref = ?
		  AND b.status = 'confirmed'`, sku).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		err = ErrConflict
		return err
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM equipment_items WHERE id = ?", id)
	return err
}
