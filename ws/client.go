package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: tek bir frame'i yazmak için üst süre.
	writeWait = 10 * time.Second

	// pongWait: bu süre içinde pong (ya da herhangi bir frame) gelmezse bağlantı kopmuş sayılır.
	pongWait = 60 * time.Second

	// pingPeriod, pongWait'ten kısa olmalı.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize: presence kontrol mesajları küçüktür.
	maxMessageSize = 4096

	// sendBufferSize: dolarsa bağlantı yavaş tüketici olarak kapatılır.
	sendBufferSize = 256
)

// Client, tek bir presence WebSocket bağlantısı.
//
// Her bağlantı için iki goroutine çalışır: ReadPump gelen frame'leri decode
// edip odanın actor'üne iletir, WritePump send kanalındaki frame'leri yazar.
// send kanalına sadece oda actor'ü yazar ve sadece o kapatır.
type Client struct {
	hub    *Hub
	room   *room
	conn   *websocket.Conn
	id     string
	roomID string

	send      chan []byte
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, roomID, connectionID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		id:     connectionID,
		roomID: roomID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// ID, bağlantının connection ID'si.
func (c *Client) ID() string { return c.id }

// enqueue, frame'i bloklamadan buffer'a ekler. Buffer doluysa false döner.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// ReadPump, bağlantıdan gelen kontrol mesajlarını okur.
// Bozuk frame'ler düşürülür, bağlantı açık kalır. Okuma hatasında
// disconnect event'i gönderilir ve bağlantı kapatılır.
func (c *Client) ReadPump() {
	defer func() {
		c.room.deliver(roomEvent{kind: eventDisconnect, client: c})
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("module", "ws.client").Str("room", c.roomID).Str("conn", c.id).Msg("unexpected close")
			}
			return
		}

		msg, err := decodeInbound(raw)
		if err != nil {
			droppedFramesTotal.Inc()
			log.Debug().Err(err).Str("module", "ws.client").Str("room", c.roomID).Str("conn", c.id).Msg("dropping frame")
			continue
		}

		if !c.room.deliver(roomEvent{kind: eventMessage, client: c, msg: msg}) {
			return
		}
	}
}

// WritePump, send kanalındaki frame'leri yazar ve periyodik ping gönderir.
// send kapandığında close frame yazar ve döner.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.Debug().Err(err).Str("module", "ws.client").Str("conn", c.id).Msg("write failed")
				}
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
