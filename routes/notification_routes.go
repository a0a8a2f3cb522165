package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mercadopro/mercadopro_backend/controllers"
	"github.com/mercadopro/mercadopro_backend/middleware"
)

// RegisterNotificationRoutes sets up the in-app notification inbox routes
func RegisterNotificationRoutes(e *echo.Echo, notificationController *controllers.NotificationController) {
	notifications := e.Group("/api/notifications")
	notifications.Use(middleware.JWTMiddleware())

	notifications.GET("", notificationController.GetMyNotifications)
	notifications.POST("/:id/read", notificationController.MarkNotificationRead)
}
