package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/lumina/internal/config"
	"github.com/example/lumina/internal/handlers"
	"github.com/example/lumina/internal/middleware"
	"github.com/example/lumina/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	issuer := services.NewRazorpayService(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.DefaultCurrency)
	carts := services.NewCartStore(db)
	payments := services.NewPaymentStore(db)
	checkout := services.NewCheckoutService(services.CheckoutPolicy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFee:           cfg.ShippingFee,
		TaxRate:               cfg.TaxRate,
		Currency:              cfg.DefaultCurrency,
	}, issuer, carts, payments, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)

	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	productHandler := handlers.NewProductHandler(db)
	cartHandler := handlers.NewCartHandler(db)
	paymentHandler := handlers.NewPaymentHandler(db, issuer, checkout, payments, cfg.RazorpayKeyID, cfg.DefaultCurrency)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Catalog
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Post("/", productHandler.CreateProduct)
	products.Get("/:id", productHandler.GetProduct)
	products.Put("/:id", productHandler.UpdateProduct)
	products.Delete("/:id", productHandler.DeleteProduct)

	// Cart store
	cart := api.Group("/cart")
	cart.Get("/:userId", cartHandler.GetCart)
	cart.Patch("/:userId", cartHandler.UpdateCart)
	cart.Delete("/:userId", cartHandler.ClearCart)

	// Payment bridge
	payment := api.Group("/payment")
	payment.Post("/create-order", paymentHandler.CreateOrder)
	payment.Post("/verify", paymentHandler.Verify)
	payment.Get("/config", paymentHandler.Config)
	payment.Get("/payments", paymentHandler.ListPayments)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))
	protected.Post("/checkout", paymentHandler.Checkout)
	protected.Get("/users", userHandler.ListUsers)
}
