package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mercadopro/mercadopro_backend/controllers"
	"github.com/mercadopro/mercadopro_backend/middleware"
)

// RegisterAuthRoutes sets up authentication routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController) {
	e.POST("/api/auth/register", authController.Register)
	e.POST("/api/auth/login", authController.Login)

	protected := e.Group("/api/auth")
	protected.Use(middleware.JWTMiddleware())
	protected.POST("/fcm-token", authController.UpdateFCMToken)
}
