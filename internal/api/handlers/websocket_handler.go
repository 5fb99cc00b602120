package handlers

import (
	"net/http"

	"github.com/haopham98/commerce/internal/domain"
	ws "github.com/haopham98/commerce/internal/infrastructure/websocket"
	"github.com/haopham98/commerce/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// WebSocketHandler upgrades watchers onto the live bid feed for a
// listing.
type WebSocketHandler struct {
	listings    domain.ListingStore
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(listings domain.ListingStore,
	connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		listings:    listings,
		connManager: connManager,
		log:         log,
	}
}

func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	listingID := c.Param("id")

	listing, err := h.listings.Get(c.Request().Context(), listingID)
	if err != nil {
		return respondError(c, err)
	}

	if !listing.IsActive {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "listing is closed"})
	}

	user, ok := userID(c)
	if !ok {
		return unauthorized(c)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return err
	}

	wsConn := ws.NewConnection(conn, user, listingID, h.log)

	if err := h.connManager.RegisterConnection(user, listingID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return nil
	}

	// Reader loop; its only job is to notice the peer going away.
	go func() {
		defer func() {
			h.connManager.UnregisterConnection(user, listingID)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}
