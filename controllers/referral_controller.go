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
	"github.com/mercadopro/mercadopro_backend/utils"
)

// ReferralController exposes referral codes, shared cart links and the
// commission ledger
type ReferralController struct {
	referrals *services.ReferralService
	validate  *validator.Validate
}

func NewReferralController(referrals *services.ReferralService) *ReferralController {
	return &ReferralController{
		referrals: referrals,
		validate:  validator.New(),
	}
}

// GetMyReferralCode returns the caller's referral code, link and QR image,
// minting the code on first use
func (rc *ReferralController) GetMyReferralCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication required",
		})
	}

	sc, err := rc.referrals.GetOrCreateShortCode(ctx, userID)
	if err != nil {
		log.Printf("Failed to get referral code for user %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to get referral code",
		})
	}

	link := services.ReferralLink(sc.ShortCode)
	qr, err := utils.GenerateQRCode(link)
	if err != nil {
		log.Printf("Failed to render referral QR for user %s: %v", userID, err)
		qr = ""
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral code retrieved successfully",
		Data: map[string]interface{}{
			"shortCode":    sc.ShortCode,
			"referralLink": link,
			"qrCode":       qr,
		},
	})
}

// ResolveReferralCode maps a short code to the owning referrer. Public: the
// checkout page calls it before the buyer signs in.
func (rc *ReferralController) ResolveReferralCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	sc, err := rc.referrals.ResolveReferralCode(ctx, c.Param("code"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Referral code not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to resolve referral code",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral code resolved successfully",
		Data:    map[string]string{"userId": sc.UserID},
	})
}

// CreateSharedCart snapshots the caller's cart under a shareable short link
func (rc *ReferralController) CreateSharedCart(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication required",
		})
	}

	var req models.SharedCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := rc.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	cart, err := rc.referrals.CreateSharedCartLink(ctx, userID, req.CartData)
	if err != nil {
		log.Printf("Failed to create shared cart for user %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create shared cart link",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Shared cart link created successfully",
		Data: map[string]interface{}{
			"shortCode": cart.ShortCode,
			"shareLink": services.SharedCartLinkURL(cart.ShortCode),
		},
	})
}

// ResolveSharedCart returns the cart snapshot behind a shared link. Public.
func (rc *ReferralController) ResolveSharedCart(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	cart, err := rc.referrals.ResolveSharedCartLink(ctx, c.Param("code"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Shared cart not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to resolve shared cart",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Shared cart resolved successfully",
		Data: map[string]interface{}{
			"userId":   cart.UserID,
			"cartData": cart.CartData,
		},
	})
}

// GetMyCommissions lists the caller's earned commissions
func (rc *ReferralController) GetMyCommissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication required",
		})
	}

	referrals, err := rc.referrals.GetUserCommissions(ctx, userID)
	if err != nil {
		log.Printf("Failed to list commissions for user %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve commissions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commissions retrieved successfully",
		Data:    referrals,
	})
}

// GetMyReferralStats aggregates the caller's commission totals
func (rc *ReferralController) GetMyReferralStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication required",
		})
	}

	stats, err := rc.referrals.StatsFor(ctx, userID)
	if err != nil {
		log.Printf("Failed to compute referral stats for user %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve referral stats",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral stats retrieved successfully",
		Data:    stats,
	})
}
