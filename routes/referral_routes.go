package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mercadopro/mercadopro_backend/controllers"
	"github.com/mercadopro/mercadopro_backend/middleware"
)

// RegisterReferralRoutes sets up referral code, shared cart and commission
// routes
func RegisterReferralRoutes(e *echo.Echo, referralController *controllers.ReferralController) {
	// Public resolution endpoints, called before the visitor signs in
	e.GET("/api/referral/resolve/:code", referralController.ResolveReferralCode)
	e.GET("/api/referral/shared-cart/:code", referralController.ResolveSharedCart)

	protected := e.Group("/api/referral")
	protected.Use(middleware.JWTMiddleware())
	protected.GET("/code", referralController.GetMyReferralCode)
	protected.POST("/shared-cart", referralController.CreateSharedCart)
	protected.GET("/commissions", referralController.GetMyCommissions)
	protected.GET("/stats", referralController.GetMyReferralStats)
}
