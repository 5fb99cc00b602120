package websocket

import (
	"encoding/json"
	"sync"

	"github.com/haopham98/commerce/pkg/logger"

	"github.com/gorilla/websocket"
)

// Connection wraps a gorilla websocket connection for one user watching
// one listing. Writes are serialized with a mutex since gorilla allows
// only one concurrent writer.
type Connection struct {
	conn      *websocket.Conn
	userID    string
	listingID string
	writeMu   sync.Mutex
	log       logger.Logger
}

func NewConnection(conn *websocket.Conn, userID, listingID string, log logger.Logger) *Connection {
	return &Connection{
		conn:      conn,
		userID:    userID,
		listingID: listingID,
		log:       log,
	}
}

func (c *Connection) Send(message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	data, ok := message.([]byte)
	if !ok {
		var err error
		data, err = json.Marshal(message)
		if err != nil {
			return err
		}
	}

	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

func (c *Connection) UserID() string {
	return c.userID
}

func (c *Connection) ListingID() string {
	return c.listingID
}
