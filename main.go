package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/mercadopro/mercadopro_backend/config"
	"github.com/mercadopro/mercadopro_backend/controllers"
	"github.com/mercadopro/mercadopro_backend/middleware"
	"github.com/mercadopro/mercadopro_backend/repositories"
	"github.com/mercadopro/mercadopro_backend/routes"
	"github.com/mercadopro/mercadopro_backend/services"
	"github.com/mercadopro/mercadopro_backend/utils"
	"github.com/mercadopro/mercadopro_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize Firebase
	config.InitFirebase()

	// Connect to Redis
	config.ConnectRedis()
	defer config.CloseRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repositories
	userRepo := repositories.NewUserRepository(client)
	catalogRepo := repositories.NewCatalogRepository(client)
	orderRepo := repositories.NewOrderRepository(client)
	referralRepo := repositories.NewReferralRepository(client)
	shortCodeRepo := repositories.NewShortCodeRepository(client)
	notificationRepo := repositories.NewNotificationRepository(client)

	// Services
	emailMetrics := utils.NewEmailMetrics(config.GetRedisClient())
	mailService := services.NewMailService(emailMetrics)
	pushService := services.NewFCMPushService(userRepo, notificationRepo)

	var latch services.ConfirmationLatch
	if rdb := config.GetRedisClient(); rdb != nil {
		latch = services.NewRedisConfirmationLatch(rdb)
	}

	stripeService := services.NewStripeService()
	mercadoPagoService := services.NewMercadoPagoService()
	referralService := services.NewReferralService(referralRepo, shortCodeRepo, userRepo)
	orderService := services.NewOrderService(catalogRepo, orderRepo, wsHub)
	analyticsService := services.NewAnalyticsService(userRepo, orderRepo, referralRepo)
	paymentService := services.NewPaymentService(
		stripeService, mercadoPagoService,
		orderService, referralService,
		catalogRepo, userRepo,
		mailService, pushService, latch,
	)

	// Controllers
	authController := controllers.NewAuthController(userRepo)
	paymentController := controllers.NewPaymentController(paymentService, stripeService)
	referralController := controllers.NewReferralController(referralService)
	orderController := controllers.NewOrderController(orderService, catalogRepo)
	adminController := controllers.NewAdminController(referralService, analyticsService, emailMetrics)
	notificationController := controllers.NewNotificationController(notificationRepo)
	wsHandler := websocket.NewHandler(wsHub, catalogRepo)

	// Create a new Echo instance
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	// Middleware
	rateLimiter := middleware.NewRateLimiter()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "MercadoPro Backend is running",
			"version": "1.0",
		})
	})
	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Routes
	routes.RegisterAuthRoutes(e, authController)
	routes.RegisterPaymentRoutes(e, paymentController, referralController)
	routes.RegisterReferralRoutes(e, referralController)
	routes.RegisterCompanyRoutes(e, orderController, wsHandler)
	routes.RegisterAdminRoutes(e, adminController)
	routes.RegisterNotificationRoutes(e, notificationController)

	// Start the inactivity reminder job
	reminderService := services.NewReminderService(userRepo, mailService, 14*24*time.Hour, 24*time.Hour)
	go reminderService.Run(context.Background())

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
