package websocket

import (
	"context"

	"github.com/haopham98/commerce/internal/domain"
)

type WebSocketBroadcaster struct {
	connManager domain.ConnectionManager
}

func NewWebSocketBroadcaster(connManager domain.ConnectionManager) *WebSocketBroadcaster {
	return &WebSocketBroadcaster{connManager: connManager}
}

func (n *WebSocketBroadcaster) BroadcastToListing(ctx context.Context, listingID string, message interface{}) error {
	return n.connManager.BroadcastToListing(listingID, message)
}
