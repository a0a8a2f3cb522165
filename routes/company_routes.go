package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mercadopro/mercadopro_backend/controllers"
	"github.com/mercadopro/mercadopro_backend/middleware"
	"github.com/mercadopro/mercadopro_backend/models"
	"github.com/mercadopro/mercadopro_backend/websocket"
)

// RegisterCompanyRoutes sets up the company dashboard routes
func RegisterCompanyRoutes(e *echo.Echo, orderController *controllers.OrderController, wsHandler *websocket.Handler) {
	company := e.Group("/api/company")
	company.Use(middleware.JWTMiddleware())
	company.Use(middleware.RequireRole(models.RoleCompany, models.RoleAdmin))

	company.GET("/orders", orderController.GetMyOrders)
	company.GET("/ws/orders", wsHandler.HandleOrderEvents)
}
