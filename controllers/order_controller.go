package controllers

import (
	"net/http"

	"bookstore-service/middlewares"
	"bookstore-service/models"
	"bookstore-service/services"

	"github.com/gin-gonic/gin"
)

func CreateOrder(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("create", succeeded(c))
	}()
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := orderService.CreateOrder(c.Request.Context(), services.CreateOrderInput{
		CustomerID:    userID,
		AddressID:     req.AddressID,
		PaymentMethod: req.PaymentMethod,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	middlewares.ObserveOrderAmount(string(order.Payment.Method), order.Payment.TotalAmount)
	c.JSON(http.StatusCreated, order)
}

func GetUserOrders(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("list", succeeded(c))
	}()
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	orders, err := orderService.ListOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func GetOrderDetails(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("details", succeeded(c))
	}()
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := orderService.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func CancelOrder(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("cancel", succeeded(c))
	}()
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := orderService.CancelOrder(c.Request.Context(), userID, orderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled", "order_id": orderID})
}

func UpdateOrderStatus(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("update_status", succeeded(c))
	}()
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := orderService.UpdateStatus(c.Request.Context(), orderID, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order_id": orderID, "status": req.Status})
}

// VNPayReturn is where the gateway sends the customer back after checkout.
func VNPayReturn(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("payment_return", succeeded(c))
	}()

	payment, err := paymentService.HandleVNPayReturn(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id": payment.OrderID,
		"status":   payment.Status,
		"amount":   payment.TotalAmount,
	})
}
