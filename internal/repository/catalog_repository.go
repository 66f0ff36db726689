package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/backroom/internal/domain"
)

// CatalogStore reads item profiles, current stock and sales history.
// Missing items are reported with domain.ErrNotFound.
type CatalogStore interface {
	GetItemProfile(ctx context.Context, itemID string) (domain.ItemProfile, error)
	GetCurrentStock(ctx context.Context, itemID string) (domain.InventorySnapshot, error)
	ListItemIDs(ctx context.Context) ([]string, error)
	GetSalesHistory(ctx context.Context, itemID string) ([]domain.SalesObservation, error)
}

type catalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) CatalogStore {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetItemProfile(ctx context.Context, itemID string) (domain.ItemProfile, error) {
	query := r.db.Rebind(`
		SELECT item_id, COALESCE(description, '') AS description, price, lead_time, holding_cost
		FROM item_dim
		WHERE item_id = ?
	`)

	var profile domain.ItemProfile
	if err := r.db.GetContext(ctx, &profile, query, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ItemProfile{}, domain.NotFoundf("item profile %s", itemID)
		}
		return domain.ItemProfile{}, fmt.Errorf("error getting item profile %s: %w", itemID, err)
	}
	return profile, nil
}

func (r *catalogRepository) GetCurrentStock(ctx context.Context, itemID string) (domain.InventorySnapshot, error) {
	query := r.db.Rebind(`SELECT item_id, unit FROM inv WHERE item_id = ?`)

	var snapshot domain.InventorySnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.InventorySnapshot{}, domain.NotFoundf("stock for item %s", itemID)
		}
		return domain.InventorySnapshot{}, fmt.Errorf("error getting stock for %s: %w", itemID, err)
	}
	return snapshot, nil
}

func (r *catalogRepository) ListItemIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT item_id FROM inv ORDER BY item_id`); err != nil {
		return nil, fmt.Errorf("error listing items: %w", err)
	}
	return ids, nil
}

type salesRow struct {
	Date string  `db:"date"`
	Sale float64 `db:"sale"`
}

// GetSalesHistory returns daily totals in date order. Days without sales are absent.
func (r *catalogRepository) GetSalesHistory(ctx context.Context, itemID string) ([]domain.SalesObservation, error) {
	query := r.db.Rebind(`
		SELECT CAST(date AS TEXT) AS date, SUM(sale) AS sale
		FROM sales
		WHERE item_id = ?
		GROUP BY date
		ORDER BY date
	`)

	var rows []salesRow
	if err := r.db.SelectContext(ctx, &rows, query, itemID); err != nil {
		return nil, fmt.Errorf("error getting sales history for %s: %w", itemID, err)
	}

	history := make([]domain.SalesObservation, 0, len(rows))
	for _, row := range rows {
		d, err := domain.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("sales history for %s: %w", itemID, err)
		}
		history = append(history, domain.SalesObservation{Date: d, Quantity: row.Sale})
	}
	return history, nil
}
