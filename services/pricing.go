package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/grocery-store/models"
	"gorm.io/gorm"
)

const MaxItemQuantity = 1000

// ItemInput is one requested order line. Prices are never accepted from callers.
type ItemInput struct {
	ProductID uint `json:"product"`
	Quantity  int  `json:"quantity"`
}

// snapshotPrice decides the unit price an order item is frozen at.
func snapshotPrice(product *models.Product) decimal.Decimal {
	return product.Price.Round(2)
}

// priceItems validates every requested line against the catalog and returns
// unsaved items priced from the live product. All field problems are reported together.
// No inputs means no items.
func priceItems(tx *gorm.DB, inputs []ItemInput) ([]models.OrderItem, error) {
	fields := map[string]string{}
	products := make(map[uint]*models.Product, len(inputs))
	items := make([]models.OrderItem, 0, len(inputs))

	for i, in := range inputs {
		prefix := fmt.Sprintf("items[%d]", i)

		switch {
		case in.Quantity <= 0:
			fields[prefix+".quantity"] = "quantity must be greater than 0"
		case in.Quantity > MaxItemQuantity:
			fields[prefix+".quantity"] = fmt.Sprintf("quantity cannot exceed %d", MaxItemQuantity)
		}

		if in.ProductID == 0 {
			fields[prefix+".product"] = "product is required"
			continue
		}

		product, ok := products[in.ProductID]
		if !ok {
			var p models.Product
			err := tx.First(&p, in.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fields[prefix+".product"] = fmt.Sprintf("product %d does not exist", in.ProductID)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("load product %d: %w", in.ProductID, err)
			}
			product = &p
			products[p.ID] = product
		}

		if !product.IsAvailable {
			fields[prefix+".product"] = fmt.Sprintf("product %q is not available", product.Name)
			continue
		}

		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Product:   product,
			Quantity:  in.Quantity,
			Price:     snapshotPrice(product),
		})
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return items, nil
}

// sumItems is the order total for a set of items.
func sumItems(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total.Round(2)
}
