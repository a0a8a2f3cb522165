package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mercadopro/mercadopro_backend/models"
	"github.com/mercadopro/mercadopro_backend/services"
	"github.com/mercadopro/mercadopro_backend/utils"
)

// AdminController exposes the back-office commission ledger, platform
// analytics and email delivery stats
type AdminController struct {
	referrals *services.ReferralService
	analytics *services.AnalyticsService
	metrics   *utils.EmailMetrics
}

func NewAdminController(referrals *services.ReferralService, analytics *services.AnalyticsService, metrics *utils.EmailMetrics) *AdminController {
	return &AdminController{
		referrals: referrals,
		analytics: analytics,
		metrics:   metrics,
	}
}

// GetAnalytics returns the platform activity snapshot
func (ac *AdminController) GetAnalytics(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	overview, err := ac.analytics.Overview(ctx)
	if err != nil {
		log.Printf("Failed to build analytics overview: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve analytics",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Analytics retrieved successfully",
		Data:    overview,
	})
}

// GetAllCommissions lists every commission in the ledger
func (ac *AdminController) GetAllCommissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	referrals, err := ac.referrals.GetAllCommissions(ctx)
	if err != nil {
		log.Printf("Failed to list all commissions: %v", err)
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

// MarkCommissionPaid settles a pending commission after payout
func (ac *AdminController) MarkCommissionPaid(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	referral, err := ac.referrals.MarkCommissionPaid(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Commission not found",
			})
		}
		log.Printf("Failed to mark commission %s paid: %v", c.Param("id"), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to mark commission as paid",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission marked as paid",
		Data:    referral,
	})
}

// GetEmailStats returns mail delivery counters for the requested period
// (daily, weekly or monthly; daily when omitted)
func (ac *AdminController) GetEmailStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	period := c.QueryParam("period")
	if period == "" {
		period = utils.PeriodDaily
	}

	stats, err := ac.metrics.Stats(ctx, period)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Email stats retrieved successfully",
		Data: map[string]interface{}{
			"period": period,
			"stats":  stats,
		},
	})
}
