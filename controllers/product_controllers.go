package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/grocery-store/services"
	"github.com/yeremiapane/grocery-store/utils"
)

type ProductController struct {
	Catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{Catalog: catalog}
}

type productRequest struct {
	CategoryID  *uint            `json:"category"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	IsAvailable *bool            `json:"is_available"`
	Image       *string          `json:"image"`
}

func (r productRequest) input() services.ProductInput {
	return services.ProductInput{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		IsAvailable: r.IsAvailable,
		Image:       r.Image,
	}
}

type createProductRequest struct {
	productRequest
	Name  *string          `json:"name" binding:"required"`
	Price *decimal.Decimal `json:"price" binding:"required"`
}

type updateStockRequest struct {
	Quantity *int `json:"quantity"`
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// GetAllProducts supports ?category=, ?is_available=, ?search= and ?ordering=.
func (pc *ProductController) GetAllProducts(c *gin.Context) {
	filter := services.ProductFilter{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	}
	if raw := c.Query("category"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.RespondFieldErrors(c, http.StatusBadRequest, "validation failed", map[string]string{"category": "must be a positive integer"})
			return
		}
		filter.CategoryID = uint(id)
	}
	if raw := c.Query("is_available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondFieldErrors(c, http.StatusBadRequest, "validation failed", map[string]string{"is_available": "must be true or false"})
			return
		}
		filter.IsAvailable = &v
	}

	products, err := pc.Catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of products", products)
}

func (pc *ProductController) GetProductByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	product, err := pc.Catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product detail", product)
}

func (pc *ProductController) GetLowStock(c *gin.Context) {
	threshold := services.DefaultLowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondFieldErrors(c, http.StatusBadRequest, "validation failed", map[string]string{"threshold": "must be an integer"})
			return
		}
		threshold = v
	}
	products, err := pc.Catalog.LowStock(c.Request.Context(), threshold)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Low stock products", products)
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	in := req.input()
	in.Name, in.Price = req.Name, req.Price

	product, err := pc.Catalog.CreateProduct(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Product created", product)
}

// UpdateProduct handles PUT and PATCH; only supplied fields change.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	product, err := pc.Catalog.UpdateProduct(c.Request.Context(), actorFrom(c), id, req.input())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product updated", product)
}

func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := pc.Catalog.DeleteProduct(c.Request.Context(), actorFrom(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product deleted", nil)
}

func (pc *ProductController) UpdateStock(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateStockRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindingError(c, err)
		return
	}
	product, err := pc.Catalog.UpdateStock(c.Request.Context(), actorFrom(c), id, req.Quantity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stock updated", product)
}

func (pc *ProductController) GetAllCategories(c *gin.Context) {
	categories, err := pc.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of categories", categories)
}

func (pc *ProductController) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	category, err := pc.Catalog.CreateCategory(c.Request.Context(), actorFrom(c), req.Name, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}
