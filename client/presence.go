package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/akinalp/teamchat/models"
)

const (
	defaultReconnectInterval = 2 * time.Second
	presenceWriteWait        = 10 * time.Second
	outboundBuffer           = 16
	updatesBuffer            = 16
)

// PresenceConfig, PresenceClient ayarları.
type PresenceConfig struct {
	// ServerURL, http(s) veya ws(s) taban adresi. Örn: http://localhost:9090
	ServerURL   string
	WorkspaceID string
	Token       string

	// ReconnectInterval, ardışık bağlantı denemeleri arasındaki en kısa süre.
	ReconnectInterval time.Duration
}

// PresenceClient, workspace presence odasına bağlanır, kendi kullanıcısını
// bildirir ve en son snapshot'u tutar. Bağlantı koparsa aynı connection ID
// (_pk) ile yeniden bağlanır; sunucu side-table'dan kimliği geri yükler.
type PresenceClient struct {
	endpoint     string
	connectionID string
	dialer       *websocket.Dialer
	limiter      *rate.Limiter

	user    atomic.Pointer[models.User]
	users   atomic.Pointer[[]models.User]
	updates chan []models.User

	mu  sync.Mutex
	out chan []byte

	connects atomic.Int64
}

// NewPresenceClient, constructor. Bağlantı Run çağrılınca açılır.
func NewPresenceClient(cfg PresenceConfig) (*PresenceClient, error) {
	u, err := url.Parse(strings.TrimRight(cfg.ServerURL, "/"))
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, errors.New("presence: server url must be http(s) or ws(s)")
	}
	u.Path += "/parties/chat/" + models.WorkspaceRoom(cfg.WorkspaceID)

	interval := cfg.ReconnectInterval
	if interval <= 0 {
		interval = defaultReconnectInterval
	}

	c := &PresenceClient{
		connectionID: uuid.New().String(),
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(interval), 1),
		updates:      make(chan []models.User, updatesBuffer),
	}

	q := u.Query()
	q.Set("_pk", c.connectionID)
	if cfg.Token != "" {
		q.Set("token", cfg.Token)
	}
	u.RawQuery = q.Encode()
	c.endpoint = u.String()

	empty := []models.User{}
	c.users.Store(&empty)
	return c, nil
}

// ConnectionID, yeniden bağlanmalarda da aynı kalan bağlantı kimliği.
func (c *PresenceClient) ConnectionID() string {
	return c.connectionID
}

// Users, en son alınan snapshot. Bağlanmadan önce boş listedir.
func (c *PresenceClient) Users() []models.User {
	users := *c.users.Load()
	out := make([]models.User, len(users))
	copy(out, users)
	return out
}

// Updates, her geçerli snapshot'ta bir değer yayar. Okunmazsa eski değerler düşer.
func (c *PresenceClient) Updates() <-chan []models.User {
	return c.updates
}

// Connects, şu ana kadar kurulan bağlantı sayısı.
func (c *PresenceClient) Connects() int {
	return int(c.connects.Load())
}

// SetUser, odaya bildirilen kullanıcıyı değiştirir. nil kullanıcı remove-user gönderir.
// Bağlantı yoksa değer saklanır ve ilk bağlantıda gönderilir.
func (c *PresenceClient) SetUser(user *models.User) error {
	if user != nil {
		if !user.Valid() {
			return errors.New("presence: user id is required")
		}
		u := *user
		c.user.Store(&u)
	} else {
		c.user.Store(nil)
	}

	frame, err := c.identityFrame()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out != nil {
		select {
		case c.out <- frame:
		default:
			log.Warn().Str("module", "presence-client").Msg("outbound buffer full, identity update dropped")
		}
	}
	return nil
}

func (c *PresenceClient) identityFrame() ([]byte, error) {
	user := c.user.Load()
	if user == nil {
		return json.Marshal(models.PresenceMessage{Type: models.PresenceRemoveUser})
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.PresenceMessage{Type: models.PresenceAddUser, Payload: payload})
}

// Run, ctx iptal edilene kadar bağlı kalır; kopan bağlantıyı rate limiter
// temposunda yeniden kurar. Dönüş değeri her zaman ctx.Err()'dur.
func (c *PresenceClient) Run(ctx context.Context) error {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Str("module", "presence-client").Err(err).Msg("presence connection lost, reconnecting")
	}
}

// session, tek bir bağlantının ömrü: dial, identity, read + write döngüleri.
func (c *PresenceClient) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return err
	}
	c.connects.Add(1)

	out := make(chan []byte, outboundBuffer)
	c.mu.Lock()
	c.out = out
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.out == out {
			c.out = nil
		}
		c.mu.Unlock()
	}()

	// Kimlik her bağlantıda yeniden bildirilir.
	if c.user.Load() != nil {
		if frame, err := c.identityFrame(); err == nil {
			out <- frame
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(conn) })
	g.Go(func() error { return c.writeLoop(gctx, conn, out) })
	g.Go(func() error {
		<-gctx.Done()
		return conn.Close()
	})
	return g.Wait()
}

func (c *PresenceClient) readLoop(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg models.PresenceMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != models.PresenceSnapshot {
			log.Debug().Str("module", "presence-client").Msg("ignoring unexpected frame")
			continue
		}
		var payload models.PresencePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Users == nil {
			log.Debug().Str("module", "presence-client").Msg("ignoring malformed snapshot")
			continue
		}

		users := payload.Users
		c.users.Store(&users)
		c.publish(users)
	}
}

func (c *PresenceClient) publish(users []models.User) {
	for {
		select {
		case c.updates <- users:
			return
		default:
		}
		// Kanal dolu: en eskiyi at, yenisini koy.
		select {
		case <-c.updates:
		default:
		}
	}
}

func (c *PresenceClient) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(presenceWriteWait))
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			conn.WriteMessage(websocket.CloseMessage, msg)
			return nil
		case frame := <-out:
			conn.SetWriteDeadline(time.Now().Add(presenceWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return err
			}
		}
	}
}
