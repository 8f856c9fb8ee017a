package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/grocery-store/services"
	"github.com/yeremiapane/grocery-store/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// itemRequest is one order line. A "price" sent by the client is ignored.
type itemRequest struct {
	ProductID uint `json:"product" binding:"required"`
	Quantity  int  `json:"quantity"`
}

type createOrderRequest struct {
	Items []itemRequest `json:"items" binding:"omitempty,dive"`
}

type updateOrderRequest struct {
	Paid   *bool         `json:"paid"`
	Status *string       `json:"status"`
	Items  []itemRequest `json:"items" binding:"omitempty,dive"`
}

func toItemInputs(items []itemRequest) []services.ItemInput {
	inputs := make([]services.ItemInput, len(items))
	for i, it := range items {
		inputs[i] = services.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return inputs
}

// GetAllOrders -> staff see every order, customers their own
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	orders, err := oc.Orders.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) GetMyOrders(c *gin.Context) {
	orders, err := oc.Orders.ListMine(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of my orders", orders)
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, err := oc.Orders.CreateOrder(c.Request.Context(), actorFrom(c), toItemInputs(req.Items))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	order, err := oc.Orders.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateOrder handles PUT and PATCH. Supplied items replace the whole item set.
func (oc *OrderController) UpdateOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, err := oc.Orders.Update(c.Request.Context(), actorFrom(c), id, services.UpdateOrderInput{
		Paid:   req.Paid,
		Status: req.Status,
		Items:  toItemInputs(req.Items),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := oc.Orders.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order deleted", nil)
}

func (oc *OrderController) MarkPaid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	order, err := oc.Orders.MarkPaid(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order marked as paid", order)
}

func (oc *OrderController) CancelOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	order, err := oc.Orders.Cancel(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}
