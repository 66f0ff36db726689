// internal/domain/models.go
package domain

// ItemProfile holds the static catalog attributes needed for inventory decisions.
type ItemProfile struct {
	ItemID          string  `json:"item_id" db:"item_id" validate:"required"`
	Description     string  `json:"description" db:"description"`
	UnitPrice       float64 `json:"unit_price" db:"price" validate:"gte=0"`
	LeadTimeDays    int     `json:"lead_time_days" db:"lead_time" validate:"gte=0"`
	HoldingCostRate float64 `json:"holding_cost_rate" db:"holding_cost" validate:"gte=0"`
}

// InventorySnapshot is a point-in-time stock level supplied fresh by the caller.
type InventorySnapshot struct {
	ItemID      string `json:"item_id" db:"item_id" validate:"required"`
	OnHandUnits int    `json:"on_hand_units" db:"unit" validate:"gte=0"`
}

// SalesObservation is one day of historical demand for an item.
type SalesObservation struct {
	Date     Date    `json:"date"`
	Quantity float64 `json:"quantity"`
}
