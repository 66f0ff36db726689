package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/backroom/internal/domain"
)

// SalesRecord is one raw row of the sales table.
type SalesRecord struct {
	ItemID   string
	Date     domain.Date
	Quantity float64
}

// CatalogData is a full catalog load: items, stock levels and sales rows.
type CatalogData struct {
	Items []domain.ItemProfile
	Stock []domain.InventorySnapshot
	Sales []SalesRecord
}

// TxRunner runs fn inside a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type IngestRepository struct {
	db TxRunner
}

func NewIngestRepository(db TxRunner) *IngestRepository {
	return &IngestRepository{db: db}
}

// Load upserts items and stock and replaces the sales rows of every item present in
// data.Sales, all in one transaction.
func (r *IngestRepository) Load(ctx context.Context, data CatalogData) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for i := range data.Items {
			if err := r.upsertItem(ctx, tx, &data.Items[i]); err != nil {
				return err
			}
		}
		for i := range data.Stock {
			if err := r.upsertStock(ctx, tx, &data.Stock[i]); err != nil {
				return err
			}
		}
		return r.replaceSales(ctx, tx, data.Sales)
	})
}

func (r *IngestRepository) upsertItem(ctx context.Context, tx *sqlx.Tx, item *domain.ItemProfile) error {
	query := tx.Rebind(`
		INSERT INTO item_dim (item_id, description, price, lead_time, holding_cost)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (item_id)
		DO UPDATE SET
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			lead_time = EXCLUDED.lead_time,
			holding_cost = EXCLUDED.holding_cost
	`)
	_, err := tx.ExecContext(ctx, query,
		item.ItemID,
		item.Description,
		item.UnitPrice,
		item.LeadTimeDays,
		item.HoldingCostRate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", item.ItemID, err)
	}
	return nil
}

func (r *IngestRepository) upsertStock(ctx context.Context, tx *sqlx.Tx, stock *domain.InventorySnapshot) error {
	query := tx.Rebind(`
		INSERT INTO inv (item_id, unit)
		VALUES (?, ?)
		ON CONFLICT (item_id)
		DO UPDATE SET unit = EXCLUDED.unit
	`)
	if _, err := tx.ExecContext(ctx, query, stock.ItemID, stock.OnHandUnits); err != nil {
		return fmt.Errorf("failed to upsert stock for %s: %w", stock.ItemID, err)
	}
	return nil
}

func (r *IngestRepository) replaceSales(ctx context.Context, tx *sqlx.Tx, sales []SalesRecord) error {
	deleted := make(map[string]bool)
	deleteQuery := tx.Rebind(`DELETE FROM sales WHERE item_id = ?`)
	insertQuery := tx.Rebind(`INSERT INTO sales (item_id, date, sale) VALUES (?, ?, ?)`)

	for _, s := range sales {
		if !deleted[s.ItemID] {
			if _, err := tx.ExecContext(ctx, deleteQuery, s.ItemID); err != nil {
				return fmt.Errorf("failed to clear sales for %s: %w", s.ItemID, err)
			}
			deleted[s.ItemID] = true
		}
		if _, err := tx.ExecContext(ctx, insertQuery, s.ItemID, s.Date.String(), s.Quantity); err != nil {
			return fmt.Errorf("failed to insert sale %s/%s: %w", s.ItemID, s.Date, err)
		}
	}
	return nil
}
