package ws

import (
	"fmt"
	"sort"
	"sync"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

// SessionState, bir bağlantının yaşam döngüsü durumu.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ConnectionSession, tek bir fiziksel bağlantının presence kaydı.
// Sadece Registry içinde değiştirilir; dışarıya kopyası verilir.
type ConnectionSession struct {
	ID     string
	RoomID string
	User   *models.User
	State  SessionState

	// order, attach sırası. Dedup'ta kazanan ve snapshot sırası buna göre belirlenir.
	order uint64
}

// Registry, oda → canlı oturum eşlemesi.
//
// Bir connection ID aynı anda sadece bir oturuma ait olabilir; canlı bir ID'yi
// tekrar attach etmek ErrInvalidState döner. MembersOf aynı User.ID'yi bir kez
// içerir: birden fazla canlı oturumda aynı kullanıcı varsa son attach edilen kazanır.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]*ConnectionSession
	sessions map[string]*ConnectionSession
	nextSeq  uint64
}

// NewRegistry, boş bir Registry oluşturur.
func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[string]*ConnectionSession),
		sessions: make(map[string]*ConnectionSession),
	}
}

// Attach, connectionID'yi roomID'ye Active olarak bağlar.
func (r *Registry) Attach(roomID, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, live := r.sessions[connectionID]; live {
		return fmt.Errorf("%w: connection %s is already attached", pkg.ErrInvalidState, connectionID)
	}

	r.nextSeq++
	s := &ConnectionSession{
		ID:     connectionID,
		RoomID: roomID,
		State:  StateActive,
		order:  r.nextSeq,
	}
	r.sessions[connectionID] = s

	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[string]*ConnectionSession)
		r.rooms[roomID] = room
	}
	room[connectionID] = s
	return nil
}

// SetUser, oturuma kullanıcı iliştirir; nil kullanıcıyı temizler.
func (r *Registry) SetUser(connectionID string, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return fmt.Errorf("%w: connection %s", pkg.ErrNotFound, connectionID)
	}
	s.User = user.Clone()
	return nil
}

// Detach, oturumu kapatır ve odasından çıkarır. Oturum yoksa false döner.
func (r *Registry) Detach(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return false
	}
	s.State = StateClosed
	delete(r.sessions, connectionID)

	if room, ok := r.rooms[s.RoomID]; ok {
		delete(room, connectionID)
		if len(room) == 0 {
			delete(r.rooms, s.RoomID)
		}
	}
	return true
}

// Session, canlı oturumun kopyasını döner.
func (r *Registry) Session(connectionID string) (ConnectionSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return ConnectionSession{}, false
	}
	c := *s
	c.User = s.User.Clone()
	return c, true
}

// MembersOf, odanın dedup'lı kullanıcı listesini canlı oturumlardan baştan üretir.
// Sıra, kazanan oturumun attach sırasıdır.
func (r *Registry) MembersOf(roomID string) []models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	winners := make(map[string]*ConnectionSession)
	for _, s := range r.rooms[roomID] {
		if s.User == nil {
			continue
		}
		if prev, ok := winners[s.User.ID]; !ok || s.order > prev.order {
			winners[s.User.ID] = s
		}
	}

	ordered := make([]*ConnectionSession, 0, len(winners))
	for _, s := range winners {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })

	users := make([]models.User, 0, len(ordered))
	for _, s := range ordered {
		users = append(users, *s.User)
	}
	return users
}

// RoomSize, odadaki canlı oturum sayısı (kullanıcısız oturumlar dahil).
func (r *Registry) RoomSize(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// Len, tüm odalardaki canlı oturum sayısı.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
