package controllers

import (
	"net/http"

	"bookstore-service/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, jwtSecret string) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/api")
	{
		public.GET("/books", ListBooks)
		public.GET("/books/:id", GetBook)
		public.GET("/authors", listEntities(DirectoryService.ListAuthors))
		public.GET("/authors/:id", getEntity(DirectoryService.GetAuthor))
		public.GET("/publishers", listEntities(DirectoryService.ListPublishers))
		public.GET("/publishers/:id", getEntity(DirectoryService.GetPublisher))
		public.GET("/genres", listEntities(DirectoryService.ListGenres))
		public.GET("/genres/:id", getEntity(DirectoryService.GetGenre))
		public.GET("/payments/vnpay/return", VNPayReturn)
	}

	authGroup := r.Group("/api")
	authGroup.Use(middlewares.AuthMiddleware(jwtSecret))
	{
		authGroup.GET("/cart", GetCart)
		authGroup.POST("/cart/items", AddCartItem)
		authGroup.PUT("/cart/items/:book_id", UpdateCartItem)
		authGroup.DELETE("/cart/items/:book_id", RemoveCartItem)

		authGroup.GET("/addresses", ListAddresses)
		authGroup.POST("/addresses", CreateAddress)

		authGroup.POST("/orders", CreateOrder)
		authGroup.GET("/orders", GetUserOrders)
		authGroup.GET("/orders/:id", GetOrderDetails)
		authGroup.POST("/orders/:id/cancel", CancelOrder)
	}

	admin := r.Group("/api/admin")
	admin.Use(middlewares.AuthMiddleware(jwtSecret), middlewares.AdminOnly())
	{
		admin.POST("/books", CreateBook)
		admin.PUT("/books/:id", UpdateBook)
		admin.DELETE("/books/:id", DeleteBook)

		admin.POST("/discounts", CreateDiscount)
		admin.GET("/discounts", ListDiscounts)
		admin.GET("/discounts/:id", GetDiscount)
		admin.DELETE("/discounts/:id", DeleteDiscount)

		admin.POST("/authors", createEntity(DirectoryService.CreateAuthor))
		admin.PUT("/authors/:id", updateEntity(DirectoryService.UpdateAuthor))
		admin.DELETE("/authors/:id", deleteEntity(DirectoryService.DeleteAuthor))

		admin.POST("/publishers", createEntity(DirectoryService.CreatePublisher))
		admin.PUT("/publishers/:id", updateEntity(DirectoryService.UpdatePublisher))
		admin.DELETE("/publishers/:id", deleteEntity(DirectoryService.DeletePublisher))

		admin.POST("/genres", createEntity(DirectoryService.CreateGenre))
		admin.PUT("/genres/:id", updateEntity(DirectoryService.UpdateGenre))
		admin.DELETE("/genres/:id", deleteEntity(DirectoryService.DeleteGenre))

		admin.GET("/suppliers", listEntities(DirectoryService.ListSuppliers))
		admin.GET("/suppliers/:id", getEntity(DirectoryService.GetSupplier))
		admin.POST("/suppliers", createEntity(DirectoryService.CreateSupplier))
		admin.PUT("/suppliers/:id", updateEntity(DirectoryService.UpdateSupplier))
		admin.DELETE("/suppliers/:id", deleteEntity(DirectoryService.DeleteSupplier))

		admin.POST("/stock-imports", ImportStock)

		admin.PUT("/orders/:id/status", UpdateOrderStatus)
	}
}
