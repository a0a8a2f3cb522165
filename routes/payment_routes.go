package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mercadopro/mercadopro_backend/controllers"
	"github.com/mercadopro/mercadopro_backend/middleware"
)

// RegisterPaymentRoutes sets up the checkout and confirmation routes. The
// checkout endpoints stay public: guest checkout is supported, and
// authenticated callers are recognized through the optional token instead of
// a route guard.
func RegisterPaymentRoutes(e *echo.Echo, paymentController *controllers.PaymentController, referralController *controllers.ReferralController) {
	e.GET("/payments/config", paymentController.GetConfig)
	e.POST("/payments/create-payment-intent", paymentController.CreatePaymentIntent)
	e.POST("/payments/confirm-payment", paymentController.ConfirmPayment)

	e.POST("/payments/mercadopago/create-preference", paymentController.CreateMercadoPagoPreference)
	e.POST("/payments/mercadopago/confirm-payment", paymentController.ConfirmMercadoPagoPayment)
	e.POST("/payments/mercadopago/webhook", paymentController.MercadoPagoWebhook)

	protected := e.Group("/payments")
	protected.Use(middleware.JWTMiddleware())
	protected.GET("/payment-history", paymentController.GetPaymentHistory)
	protected.GET("/referral-stats", referralController.GetMyReferralStats)
}
