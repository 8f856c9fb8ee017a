package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"` // snapshot taken when the item was created
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i OrderItem) MarshalJSON() ([]byte, error) {
	type alias OrderItem
	out := struct {
		alias
		ProductName string          `json:"product_name,omitempty"`
		TotalPrice  decimal.Decimal `json:"total_price"`
	}{
		alias:      alias(i),
		TotalPrice: i.LineTotal(),
	}
	if i.Product != nil {
		out.ProductName = i.Product.Name
	}
	return json.Marshal(out)
}
