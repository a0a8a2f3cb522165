package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercadopro/mercadopro_backend/middleware"
	"github.com/mercadopro/mercadopro_backend/models"
	"github.com/mercadopro/mercadopro_backend/repositories"
	"github.com/mercadopro/mercadopro_backend/services"
)

// OrderController lets company accounts view the orders attributed to them
type OrderController struct {
	orders  *services.OrderService
	catalog *repositories.CatalogRepository
}

func NewOrderController(orders *services.OrderService, catalog *repositories.CatalogRepository) *OrderController {
	return &OrderController{
		orders:  orders,
		catalog: catalog,
	}
}

// GetMyOrders lists the orders of the caller's company, newest first
func (oc *OrderController) GetMyOrders(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication required",
		})
	}
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	company, err := oc.catalog.FindCompanyByUser(ctx, userObjID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "No company found for this account",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to resolve company",
		})
	}

	orders, err := oc.orders.OrdersForCompany(ctx, company.ID)
	if err != nil {
		log.Printf("Failed to list orders for company %s: %v", company.ID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve orders",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Orders retrieved successfully",
		Data:    orders,
	})
}
