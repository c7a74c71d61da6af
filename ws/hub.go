package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/repository"
)

const (
	// storeTimeout, side-table'a yapılan tek bir işlemin üst süresi.
	storeTimeout = 2 * time.Second

	// storeQueueSize, bekleyen side-table yazımı sınırı. Dolunca yazım düşürülür.
	storeQueueSize = 256
)

// ErrHubClosed, Shutdown başladıktan sonra gelen bağlantılar için döner.
var ErrHubClosed = errors.New("presence hub is shutting down")

// Hub, presence odalarını yönetir.
//
// Oda actor'leri ilk bağlantıda başlatılır ve oda boşalınca durur. Farklı odalar
// birbirinden bağımsızdır; ortak olan sadece Registry ve side-table'dır.
// Hub kimlik doğrulaması yapmaz, bağlantıyı kabul eden katman (Handler) yapar.
//
// Side-table yazımları oda actor'lerinin dışında, tek bir writer goroutine'inde
// sırayla yapılır; store yavaşlasa da odalar beklemez.
type Hub struct {
	registry *Registry
	store    repository.SessionStore

	writes     chan sessionWrite
	writerQuit chan struct{}
	writerDone chan struct{}
	stopWriter sync.Once

	mu     sync.Mutex
	rooms  map[string]*room
	closed bool
}

// sessionWrite, kuyruktaki tek side-table işlemi. state.User nil ise kayıt silinir.
type sessionWrite struct {
	state models.SessionState
}

// NewHub, yeni bir Hub oluşturur. store nil olabilir; o zaman resume devre dışıdır.
func NewHub(store repository.SessionStore) *Hub {
	h := &Hub{
		registry: NewRegistry(),
		store:    store,
		rooms:    make(map[string]*room),
	}
	if store != nil {
		h.writes = make(chan sessionWrite, storeQueueSize)
		h.writerQuit = make(chan struct{})
		h.writerDone = make(chan struct{})
		go h.writeLoop()
	}
	return h
}

// Members, odanın o anki dedup'lı kullanıcı listesi.
func (h *Hub) Members(roomID string) []models.User {
	return h.registry.MembersOf(roomID)
}

// Rooms, actor'ü çalışan oda sayısı.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// connect, client'ı odasının actor'üne kaydeder ve attach sonucunu bekler.
func (h *Hub) connect(c *Client, restored *models.User) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	r, ok := h.rooms[c.roomID]
	if !ok {
		r = newRoom(h, c.roomID)
		h.rooms[c.roomID] = r
		go r.run()
	}
	r.pending++
	h.mu.Unlock()

	c.room = r
	reply := make(chan error, 1)
	if !r.deliver(roomEvent{kind: eventConnect, client: c, restored: restored, reply: reply}) {
		return ErrHubClosed
	}

	select {
	case err := <-reply:
		return err
	case <-r.stopped:
		return ErrHubClosed
	}
}

// connectArrived, bekleyen connect actor'e ulaştığında çağrılır.
func (h *Hub) connectArrived(r *room) {
	h.mu.Lock()
	r.pending--
	h.mu.Unlock()
}

// releaseRoom, boş odayı map'ten çıkarır. Yolda bir connect varsa oda kalır.
func (h *Hub) releaseRoom(r *room) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r.pending > 0 {
		return false
	}
	if h.rooms[r.id] == r {
		delete(h.rooms, r.id)
	}
	return true
}

// restore, resume edilen bağlantının side-table'daki kullanıcısını okur.
// Kayıt yoksa, başka bir odaya aitse ya da store hata verirse nil döner.
func (h *Hub) restore(ctx context.Context, roomID, connectionID string) *models.User {
	if h.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	state, err := h.store.Get(ctx, connectionID)
	if err != nil {
		if !errors.Is(err, pkg.ErrNotFound) {
			log.Warn().Err(err).Str("module", "ws.hub").Str("conn", connectionID).Msg("failed to load presence session")
		}
		return nil
	}
	if state.RoomID != roomID || !state.User.Valid() {
		return nil
	}
	return state.User
}

// persistUser, iliştirilen kullanıcıyı side-table kuyruğuna yazar.
// Hata loglanır; canlı snapshot bellekteki oturumdan üretildiği için presence etkilenmez.
func (h *Hub) persistUser(roomID, connectionID string, user *models.User) {
	h.enqueueWrite(sessionWrite{state: models.SessionState{
		ConnectionID: connectionID,
		RoomID:       roomID,
		User:         user,
		UpdatedAt:    time.Now().UTC(),
	}})
}

// forgetUser, remove-user sonrası side-table kaydının silinmesini kuyruğa koyar.
func (h *Hub) forgetUser(roomID, connectionID string) {
	h.enqueueWrite(sessionWrite{state: models.SessionState{ConnectionID: connectionID, RoomID: roomID}})
}

// enqueueWrite bloklamaz; actor'ün içinden çağrılır.
func (h *Hub) enqueueWrite(w sessionWrite) {
	if h.store == nil {
		return
	}
	select {
	case h.writes <- w:
	default:
		log.Warn().Str("module", "ws.hub").Str("room", w.state.RoomID).Str("conn", w.state.ConnectionID).
			Msg("presence session queue full, write dropped")
	}
}

// writeLoop, kuyruktaki yazımları geliş sırasıyla uygular. writerQuit kapanınca
// kalanları boşaltır ve döner.
func (h *Hub) writeLoop() {
	defer close(h.writerDone)
	for {
		select {
		case w := <-h.writes:
			h.applyWrite(w)
		case <-h.writerQuit:
			for {
				select {
				case w := <-h.writes:
					h.applyWrite(w)
				default:
					return
				}
			}
		}
	}
}

func (h *Hub) applyWrite(w sessionWrite) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	st := w.state
	if st.User == nil {
		if err := h.store.Delete(ctx, st.ConnectionID); err != nil {
			log.Warn().Err(err).Str("module", "ws.hub").Str("room", st.RoomID).Str("conn", st.ConnectionID).
				Msg("failed to delete presence session")
		}
		return
	}
	if err := h.store.Put(ctx, st); err != nil {
		log.Warn().Err(err).Str("module", "ws.hub").Str("room", st.RoomID).Str("conn", st.ConnectionID).
			Msg("failed to persist presence session")
	}
}

// Shutdown, bütün oda actor'lerini durdurur ve bağlantıları kapatır.
// ctx dolarsa beklemeyi bırakır ve ctx hatasını döner.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	rooms := make([]*room, 0, len(h.rooms))
	for id, r := range h.rooms {
		rooms = append(rooms, r)
		delete(h.rooms, id)
	}
	h.mu.Unlock()

	for _, r := range rooms {
		close(r.quit)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range rooms {
		g.Go(func() error {
			select {
			case <-r.stopped:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if h.store != nil {
		h.stopWriter.Do(func() { close(h.writerQuit) })
		g.Go(func() error {
			select {
			case <-h.writerDone:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Str("module", "ws.hub").Int("rooms", len(rooms)).Msg("presence hub stopped")
	return nil
}
