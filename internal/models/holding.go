package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Holding is one recorded purchase lot of a ticker owned by a user.
//
// PurchasePriceUSD is always the USD-converted value regardless of the
// currency entered at input time; the original input currency is not
// retained.
type Holding struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Ticker           string          `gorm:"column:ticker;not null" json:"ticker"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:decimal(18,4);not null" json:"quantity"`
	PurchasePriceUSD decimal.Decimal `gorm:"column:purchase_price;type:decimal(18,4);not null" json:"purchase_price"`
	PurchaseDate     datatypes.Date  `gorm:"column:purchase_date;not null" json:"purchase_date"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (Holding) TableName() string {
	return "portfolios"
}

func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
