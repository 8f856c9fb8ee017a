package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/grocery-store/models"
	"github.com/yeremiapane/grocery-store/utils"
	"gorm.io/gorm"
)

const DefaultLowStockThreshold = 10

// CatalogService manages products and categories. Writes are staff only.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ProductFilter narrows product listings. Zero values mean no filter.
type ProductFilter struct {
	CategoryID  uint
	IsAvailable *bool
	Search      string
	Ordering    string
}

// ProductInput is a full or partial product write.
type ProductInput struct {
	CategoryID  *uint
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	IsAvailable *bool
	Image       *string
}

var productOrderings = map[string]string{
	"name":        "name asc",
	"-name":       "name desc",
	"price":       "price asc",
	"-price":      "price desc",
	"stock":       "stock asc",
	"-stock":      "stock desc",
	"created_at":  "created_at asc",
	"-created_at": "created_at desc",
}

func (s *CatalogService) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Model(&models.Product{})
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.IsAvailable != nil {
		q = q.Where("is_available = ?", *f.IsAvailable)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	order, ok := productOrderings[f.Ordering]
	if !ok {
		order = productOrderings["-created_at"]
	}

	var products []models.Product
	if err := q.Order(order).Order("id desc").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "product", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	return &product, nil
}

// LowStock lists available products with stock at or below threshold.
func (s *CatalogService) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	if threshold < 0 {
		return nil, NewValidationError("threshold", "threshold cannot be negative")
	}
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("stock <= ? AND is_available = ?", threshold, true).
		Order("stock asc, id asc").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return products, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor Actor, in ProductInput) (*models.Product, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	product := models.Product{IsAvailable: true}
	if in.Name == nil {
		in.Name = new(string)
	}
	if in.Price == nil {
		zero := decimal.Zero
		in.Price = &zero
	}
	if in.Stock == nil {
		in.Stock = new(int)
	}
	if err := s.apply(ctx, &product, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	utils.InfoLogger.WithFields(logrus.Fields{"product_id": product.ID, "name": product.Name}).Info("Product created")
	return &product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, actor Actor, id uint, in ProductInput) (*models.Product, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, product, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	return product, nil
}

// apply validates and copies the supplied fields onto product.
func (s *CatalogService) apply(ctx context.Context, product *models.Product, in ProductInput) error {
	fields := map[string]string{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			fields["name"] = "name is required"
		}
		product.Name = name
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			fields["price"] = "price must be greater than 0"
		}
		product.Price = in.Price.Round(2)
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			fields["stock"] = "stock cannot be negative"
		}
		product.Stock = *in.Stock
	}
	if in.IsAvailable != nil {
		product.IsAvailable = *in.IsAvailable
	}
	if in.Image != nil {
		product.Image = *in.Image
	}
	if in.CategoryID != nil {
		if *in.CategoryID == 0 {
			product.CategoryID = nil
		} else {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", *in.CategoryID).Count(&count).Error; err != nil {
				return fmt.Errorf("check category: %w", err)
			}
			if count == 0 {
				fields["category"] = fmt.Sprintf("category %d does not exist", *in.CategoryID)
			}
			id := *in.CategoryID
			product.CategoryID = &id
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// DeleteProduct refuses products that are referenced by order items, which keep the snapshot.
func (s *CatalogService) DeleteProduct(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsStaff() {
		return ErrForbidden
	}
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	var used int64
	if err := s.db.WithContext(ctx).Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&used).Error; err != nil {
		return fmt.Errorf("check product usage: %w", err)
	}
	if used > 0 {
		return &RuleViolationError{Code: "product_in_use", Reason: "product is referenced by existing orders; mark it unavailable instead"}
	}
	if err := s.db.WithContext(ctx).Delete(product).Error; err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return nil
}

// UpdateStock sets the absolute stock count.
func (s *CatalogService) UpdateStock(ctx context.Context, actor Actor, id uint, quantity *int) (*models.Product, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if quantity == nil {
		return nil, NewValidationError("quantity", "quantity is required")
	}
	if *quantity < 0 {
		return nil, NewValidationError("quantity", "quantity cannot be negative")
	}
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(product).Update("stock", *quantity).Error; err != nil {
		return nil, fmt.Errorf("update stock of product %d: %w", id, err)
	}
	product.Stock = *quantity
	utils.InfoLogger.WithFields(logrus.Fields{"product_id": id, "stock": *quantity, "by": actor.UserID}).Info("Stock updated")
	return product, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name asc").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor Actor, name, description string) (*models.Category, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "name is required")
	}
	var taken int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("name = ?", name).Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("check category name: %w", err)
	}
	if taken > 0 {
		return nil, NewValidationError("name", fmt.Sprintf("category %q already exists", name))
	}
	category := models.Category{Name: name, Description: description}
	err := s.db.WithContext(ctx).Create(&category).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, NewValidationError("name", fmt.Sprintf("category %q already exists", name))
	}
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}
