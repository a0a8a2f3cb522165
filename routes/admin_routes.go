package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mercadopro/mercadopro_backend/controllers"
	"github.com/mercadopro/mercadopro_backend/middleware"
	"github.com/mercadopro/mercadopro_backend/models"
)

// RegisterAdminRoutes sets up the back-office routes
func RegisterAdminRoutes(e *echo.Echo, adminController *controllers.AdminController) {
	admin := e.Group("/api/admin")
	admin.Use(middleware.JWTMiddleware())
	admin.Use(middleware.RequireRole(models.RoleAdmin))

	admin.GET("/commissions", adminController.GetAllCommissions)
	admin.POST("/commissions/:id/pay", adminController.MarkCommissionPaid)
	admin.GET("/analytics", adminController.GetAnalytics)
	admin.GET("/email-stats", adminController.GetEmailStats)
}
