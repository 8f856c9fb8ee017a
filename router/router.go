package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/grocery-store/config"
	"github.com/yeremiapane/grocery-store/controllers"
	"github.com/yeremiapane/grocery-store/hub"
	"github.com/yeremiapane/grocery-store/middlewares"
	"github.com/yeremiapane/grocery-store/services"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, cfg *config.Config, h *hub.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply security middlewares
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.Server.AllowedOrigins))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst).RateLimit())

	orderService := services.NewOrderService(db, cfg.Order, h)
	paymentService := services.NewPaymentService(db, cfg.Bank, h)
	catalogService := services.NewCatalogService(db)
	reportService := services.NewReportService(db)

	userCtrl := controllers.NewUserController(db)
	orderCtrl := controllers.NewOrderController(orderService)
	paymentCtrl := controllers.NewPaymentController(paymentService)
	productCtrl := controllers.NewProductController(catalogService)
	adminCtrl := controllers.NewAdminController(reportService)
	eventsCtrl := controllers.NewEventsController(h, cfg.Server.AllowedOrigins)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Public
	authLimiter := middlewares.NewStrictRateLimiter(cfg.RateLimit.AuthPerMinute)
	r.POST("/register", authLimiter.RateLimit(), userCtrl.Register)
	r.POST("/login", authLimiter.RateLimit(), userCtrl.Login)

	r.GET("/products", productCtrl.GetAllProducts)
	r.GET("/products/low_stock", productCtrl.GetLowStock)
	r.GET("/products/:id", productCtrl.GetProductByID)
	r.GET("/categories", productCtrl.GetAllCategories)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware())
	{
		auth.GET("/profile", userCtrl.GetProfile)
		auth.PUT("/change-password", userCtrl.ChangePassword)
		auth.POST("/logout", userCtrl.Logout)

		orders := auth.Group("/orders")
		{
			orders.GET("", orderCtrl.GetAllOrders)
			orders.POST("", orderCtrl.CreateOrder)
			orders.GET("/my_orders", orderCtrl.GetMyOrders)
			orders.GET("/:id", orderCtrl.GetOrderByID)
			orders.PUT("/:id", orderCtrl.UpdateOrder)
			orders.PATCH("/:id", orderCtrl.UpdateOrder)
			orders.DELETE("/:id", orderCtrl.DeleteOrder)
			orders.POST("/:id/mark_paid", orderCtrl.MarkPaid)
			orders.POST("/:id/cancel", orderCtrl.CancelOrder)
		}

		payments := auth.Group("/payment")
		{
			payments.GET("", paymentCtrl.GetAllPayments)
			payments.POST("", paymentCtrl.CreatePayment)
			payments.POST("/create_qr_payment", paymentCtrl.CreateQRPayment)
			payments.GET("/:id", paymentCtrl.GetPaymentByID)
			payments.PUT("/:id", paymentCtrl.UpdatePayment)
			payments.PATCH("/:id", paymentCtrl.UpdatePayment)
			payments.DELETE("/:id", paymentCtrl.DeletePayment)
			payments.POST("/:id/confirm_payment", paymentCtrl.ConfirmPayment)
			payments.POST("/:id/cancel_payment", paymentCtrl.CancelPayment)
			payments.POST("/:id/fail_payment", paymentCtrl.FailPayment)
			payments.GET("/:id/get_qr_code", paymentCtrl.GetQRCode)
		}

		// Staff only
		staff := auth.Group("/")
		staff.Use(middlewares.RequireStaff())
		{
			staff.POST("/products", productCtrl.CreateProduct)
			staff.PUT("/products/:id", productCtrl.UpdateProduct)
			staff.PATCH("/products/:id", productCtrl.UpdateProduct)
			staff.DELETE("/products/:id", productCtrl.DeleteProduct)
			staff.POST("/products/:id/update_stock", productCtrl.UpdateStock)
			staff.POST("/categories", productCtrl.CreateCategory)
			staff.GET("/admin/stats", adminCtrl.GetDashboardStats)
			staff.GET("/ws", eventsCtrl.Stream)
		}
	}

	return r
}
