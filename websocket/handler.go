package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercadopro/mercadopro_backend/middleware"
	"github.com/mercadopro/mercadopro_backend/models"
	"github.com/mercadopro/mercadopro_backend/repositories"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades company dashboard connections onto the hub
type Handler struct {
	hub     *Hub
	catalog *repositories.CatalogRepository
}

func NewHandler(hub *Hub, catalog *repositories.CatalogRepository) *Handler {
	return &Handler{hub: hub, catalog: catalog}
}

// HandleOrderEvents upgrades the connection and subscribes the caller's
// company to live order events. Requires an authenticated company account.
func (h *Handler) HandleOrderEvents(c echo.Context) error {
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

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	company, err := h.catalog.FindCompanyByUser(ctx, userObjID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "No company found for this account",
		})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		CompanyID: company.ID,
		Conn:      conn,
	}
	h.hub.register <- client

	conn.WriteJSON(models.OrderEvent{
		Type:      "connected",
		CompanyID: company.ID.Hex(),
		CreatedAt: time.Now(),
	})

	// Drain the read side until the peer goes away
	go func() {
		defer func() {
			h.hub.unregister <- client
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	return nil
}
