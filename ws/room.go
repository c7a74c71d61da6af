package ws

import (
	"github.com/rs/zerolog/log"

	"github.com/akinalp/teamchat/models"
)

type eventKind int

const (
	eventConnect eventKind = iota
	eventMessage
	eventDisconnect
)

// roomEvent, bir odanın actor'üne giden tek event.
type roomEvent struct {
	kind     eventKind
	client   *Client
	msg      inbound
	restored *models.User // connect: side-table'dan geri yüklenen kullanıcı
	reply    chan error   // connect: attach sonucu
}

// room, tek bir presence odasının actor'ü.
//
// Odaya ait bütün event'ler (connect, mesaj, disconnect) events kanalından
// tek goroutine'de sırayla işlenir; recompute + broadcast bu yüzden aynı odadaki
// eşzamanlı üyelik değişikliklerine karşı atomiktir. clients sadece actor'e aittir.
type room struct {
	id      string
	hub     *Hub
	events  chan roomEvent
	clients map[string]*Client

	// pending, actor'e henüz ulaşmamış connect sayısı. hub.mu ile korunur.
	pending int

	quit    chan struct{}
	stopped chan struct{}
}

func newRoom(hub *Hub, id string) *room {
	return &room{
		id:      id,
		hub:     hub,
		events:  make(chan roomEvent, 64),
		clients: make(map[string]*Client),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// deliver, event'i actor'e iletir. Actor durmuşsa false döner.
func (r *room) deliver(ev roomEvent) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.stopped:
		return false
	}
}

// run, odanın event loop'u. Oda boşalıp hub'dan çıkarıldığında ya da
// Shutdown ile quit kapatıldığında döner.
func (r *room) run() {
	roomsGauge.Inc()
	defer func() {
		roomsGauge.Dec()
		close(r.stopped)
	}()

	log.Debug().Str("module", "ws.room").Str("room", r.id).Msg("room started")

	for {
		select {
		case ev := <-r.events:
			switch ev.kind {
			case eventConnect:
				r.handleConnect(ev)
			case eventMessage:
				r.handleMessage(ev)
			case eventDisconnect:
				r.handleDisconnect(ev)
			}
			if len(r.clients) == 0 && r.hub.releaseRoom(r) {
				log.Debug().Str("module", "ws.room").Str("room", r.id).Msg("room empty, stopped")
				return
			}

		case <-r.quit:
			for _, c := range r.clients {
				r.drop(c)
			}
			return
		}
	}
}

func (r *room) handleConnect(ev roomEvent) {
	r.hub.connectArrived(r)
	c := ev.client

	if err := r.hub.registry.Attach(r.id, c.id); err != nil {
		ev.reply <- err
		return
	}
	sessionsGauge.Inc()
	r.clients[c.id] = c
	ev.reply <- nil

	if ev.restored != nil {
		if err := r.hub.registry.SetUser(c.id, ev.restored); err == nil {
			log.Info().Str("module", "ws.room").Str("room", r.id).Str("conn", c.id).
				Str("user_id", ev.restored.ID).Msg("session resumed")
			r.broadcast(reasonResume)
			return
		}
	}

	// Kullanıcı henüz yok: snapshot sadece yeni bağlantıya gider.
	frame, err := encodeSnapshot(r.hub.registry.MembersOf(r.id))
	if err != nil {
		log.Error().Err(err).Str("module", "ws.room").Str("room", r.id).Msg("failed to encode snapshot")
		return
	}
	if !c.enqueue(frame) {
		r.drop(c)
	}
}

func (r *room) handleMessage(ev roomEvent) {
	c := ev.client
	if r.clients[c.id] != c {
		return
	}

	switch ev.msg.Type {
	case models.PresenceAddUser:
		if err := r.hub.registry.SetUser(c.id, ev.msg.User); err != nil {
			return
		}
		r.hub.persistUser(r.id, c.id, ev.msg.User)
		r.broadcast(reasonAddUser)

	case models.PresenceRemoveUser:
		if err := r.hub.registry.SetUser(c.id, nil); err != nil {
			return
		}
		r.hub.forgetUser(r.id, c.id)
		r.broadcast(reasonRemoveUser)
	}
}

func (r *room) handleDisconnect(ev roomEvent) {
	c := ev.client
	if r.clients[c.id] != c {
		// Yavaş tüketici olarak zaten çıkarıldı.
		return
	}
	r.drop(c)
	log.Debug().Str("module", "ws.room").Str("room", r.id).Str("conn", c.id).Msg("connection closed")

	if len(r.clients) > 0 {
		r.broadcast(reasonDisconnect)
	}
}

// drop, bağlantıyı registry'den ve odadan çıkarır; send kanalını kapatır.
// Side-table kaydı silinmez; aynı ID ile geri dönen bağlantı kullanıcısını geri alır.
func (r *room) drop(c *Client) {
	if r.hub.registry.Detach(c.id) {
		sessionsGauge.Dec()
	}
	delete(r.clients, c.id)
	c.close()
}

// broadcast, snapshot'ı baştan hesaplar ve odadaki herkese gönderir.
// Buffer'ı dolu bağlantılar transport hatası sayılır, çıkarılır ve kalanlara
// yeni snapshot gönderilir; kapanan bağlantıya hiçbir şey gitmez.
func (r *room) broadcast(reason string) {
	for len(r.clients) > 0 {
		frame, err := encodeSnapshot(r.hub.registry.MembersOf(r.id))
		if err != nil {
			log.Error().Err(err).Str("module", "ws.room").Str("room", r.id).Msg("failed to encode snapshot")
			return
		}
		broadcastsTotal.WithLabelValues(reason).Inc()

		var slow []*Client
		for _, c := range r.clients {
			if !c.enqueue(frame) {
				slow = append(slow, c)
			}
		}
		if len(slow) == 0 {
			return
		}

		for _, c := range slow {
			log.Warn().Str("module", "ws.room").Str("room", r.id).Str("conn", c.id).
				Msg("send buffer full, dropping connection")
			r.drop(c)
		}
		reason = reasonSlow
	}
}
