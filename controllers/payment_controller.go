package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/mercadopro/mercadopro_backend/middleware"
	"github.com/mercadopro/mercadopro_backend/models"
	"github.com/mercadopro/mercadopro_backend/services"
)

// PaymentController exposes the checkout and confirmation endpoints
type PaymentController struct {
	payments *services.PaymentService
	stripe   *services.StripeService
	validate *validator.Validate
}

func NewPaymentController(payments *services.PaymentService, stripe *services.StripeService) *PaymentController {
	return &PaymentController{
		payments: payments,
		stripe:   stripe,
		validate: validator.New(),
	}
}

// GetConfig returns the publishable key the checkout frontend needs
func (pc *PaymentController) GetConfig(c echo.Context) error {
	key, err := pc.stripe.PublishableKey()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Payment configuration is incomplete",
		})
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment config retrieved successfully",
		Data:    map[string]string{"publishableKey": key},
	})
}

// fillIdentityFromToken overrides client-supplied identity with the
// authenticated user when a token is present. Guests stay guests.
func fillIdentityFromToken(c echo.Context, userID *string) {
	if authenticated, err := middleware.ExtractUserID(c); err == nil {
		*userID = authenticated
	}
}

func gatewayErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrAmountTooSmall),
		errors.Is(err, services.ErrNoItems),
		errors.Is(err, services.ErrMissingEmail):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrGatewayRejected):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Payment was rejected by the payment provider",
		})
	case errors.Is(err, services.ErrPaymentNotCompleted):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Payment has not completed",
		})
	case errors.Is(err, services.ErrGatewayUnreachable):
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Payment provider is temporarily unavailable, please retry",
		})
	default:
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Payment processing failed",
		})
	}
}

// CreatePaymentIntent creates a Stripe payment intent for the cart
func (pc *PaymentController) CreatePaymentIntent(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.CreateIntentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := pc.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}
	fillIdentityFromToken(c, &req.UserID)

	result, err := pc.payments.Stripe().CreateIntent(ctx, req)
	if err != nil {
		log.Printf("Failed to create payment intent: %v", err)
		return gatewayErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment intent created successfully",
		Data:    result,
	})
}

// ConfirmPayment verifies a client-reported payment and runs the full
// confirmation pipeline
func (pc *PaymentController) ConfirmPayment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	var confirmation models.PaymentConfirmation
	if err := c.Bind(&confirmation); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := pc.validate.Struct(&confirmation); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}
	fillIdentityFromToken(c, &confirmation.PayerID)

	result, err := pc.payments.ConfirmPayment(ctx, pc.payments.Stripe(), confirmation)
	if err != nil {
		log.Printf("Payment confirmation failed for %s: %v", confirmation.PaymentIntentID, err)
		return gatewayErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment confirmed successfully",
		Data:    result,
	})
}

// CreateMercadoPagoPreference creates a hosted checkout preference
func (pc *PaymentController) CreateMercadoPagoPreference(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.CreateIntentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := pc.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}
	fillIdentityFromToken(c, &req.UserID)

	result, err := pc.payments.MercadoPago().CreateIntent(ctx, req)
	if err != nil {
		log.Printf("Failed to create MercadoPago preference: %v", err)
		return gatewayErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Checkout preference created successfully",
		Data:    result,
	})
}

// ConfirmMercadoPagoPayment confirms a payment after the buyer returns from
// the hosted checkout
func (pc *PaymentController) ConfirmMercadoPagoPayment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	var confirmation models.PaymentConfirmation
	if err := c.Bind(&confirmation); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := pc.validate.Struct(&confirmation); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}
	fillIdentityFromToken(c, &confirmation.PayerID)

	result, err := pc.payments.ConfirmPayment(ctx, pc.payments.MercadoPago(), confirmation)
	if err != nil {
		log.Printf("MercadoPago confirmation failed for %s: %v", confirmation.PaymentIntentID, err)
		return gatewayErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment confirmed successfully",
		Data:    result,
	})
}

// GetPaymentHistory lists the authenticated buyer's past orders
func (pc *PaymentController) GetPaymentHistory(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication required",
		})
	}

	orders, err := pc.payments.PaymentHistory(ctx, userID)
	if err != nil {
		log.Printf("Failed to load payment history for %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve payment history",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment history retrieved successfully",
		Data:    orders,
	})
}

// MercadoPagoWebhook receives payment notifications from MercadoPago. It
// always answers 200 for handled events; MercadoPago retries anything else.
func (pc *PaymentController) MercadoPagoWebhook(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	var webhook models.MercadoPagoWebhook
	if err := c.Bind(&webhook); err != nil {
		log.Printf("Unparseable MercadoPago webhook: %v", err)
		return c.NoContent(http.StatusOK)
	}

	if err := pc.payments.HandleMercadoPagoWebhook(ctx, webhook); err != nil {
		log.Printf("MercadoPago webhook processing failed: %v", err)
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusOK)
}
