package streamsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/akinalp/teamchat/models"
)

// Op, mutasyon türü.
type Op string

const (
	OpSend     Op = "send"
	OpReply    Op = "reply"
	OpEdit     Op = "edit"
	OpReaction Op = "reaction"
)

// Failure, geri alınan bir mutasyonun kullanıcıya gösterilecek sinyali.
type Failure struct {
	Key StreamKey
	Op  Op
	Err error
}

// effects, akış anahtarı başına önbellek değişikliği.
type effects map[StreamKey]func()

// mutation, journal'daki tek bir iyimser işlem.
type mutation struct {
	seq       uint64
	op        Op
	token     string
	keys      []StreamKey
	snapshots map[StreamKey]Snapshot
	apply     effects
	settle    effects
	done      bool
	// received, Receive ile gelen kaydın id'si (yalnızca Receive girdilerinde).
	received  string
}

// Coordinator, iyimser mutasyonları yürütür.
//
// Her mutasyon: Begin (akışın süren isteğini iptal et, snapshot al) → Apply →
// Issue (uzak istek) → Reconcile ya da Rollback. Begin + Apply tek kilit altında
// yapılır; aynı akıştaki ikinci mutasyonun snapshot'ı birincinin iyimser etkisini içerir.
// Rollback kendi snapshot'ını geri yükler, ardından journal'da kendisinden sonra
// gelen işlemlerin etkilerini sırayla yeniden uygular. Arkasında bekleyen işlem
// varken gelen reconcile da aynı yolla yapılır; böylece sonraki snapshot'lar
// onaylı kaydı içerir.
type Coordinator struct {
	cache   *Cache
	fetcher *Fetcher
	svc     MessageService
	viewer  models.User
	now     func() time.Time

	mu       sync.Mutex
	seq      uint64
	journal  map[StreamKey][]*mutation
	failures chan Failure

	// ownReplies, reconcile edilmiş ama Receive ile henüz geri gelmemiş cevaplar.
	ownReplies map[string]struct{}
}

// NewCoordinator, viewer adına mutasyon yürüten bir Coordinator oluşturur.
func NewCoordinator(cache *Cache, fetcher *Fetcher, svc MessageService, viewer models.User) *Coordinator {
	return &Coordinator{
		cache:      cache,
		fetcher:    fetcher,
		svc:        svc,
		viewer:     viewer,
		now:        time.Now,
		journal:    make(map[StreamKey][]*mutation),
		failures:   make(chan Failure, 32),
		ownReplies: make(map[string]struct{}),
	}
}

// Failures, geri alınan mutasyonların sinyal kanalı.
// Kanal doluysa yeni sinyal düşürülür (loglanır); mutasyon yine de geri alınmıştır.
func (c *Coordinator) Failures() <-chan Failure {
	return c.failures
}

// Pending, akışta henüz sonuçlanmamış mutasyon sayısı.
func (c *Coordinator) Pending(key StreamKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, m := range c.journal[key] {
		if !m.done {
			n++
		}
	}
	return n
}

// Discard, akışı önbellekten ve journal'dan atar. O akışa ait geç gelen
// cevaplar stale sayılır ve yok sayılır.
func (c *Coordinator) Discard(key StreamKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetcher.Cancel(key)
	c.cache.Discard(key)
	delete(c.journal, key)
}

// Send, kanala yeni mesaj gönderir.
func (c *Coordinator) Send(ctx context.Context, channelID, content string, imageURL *string) (*models.MessageRecord, error) {
	token := uuid.NewString()
	key := ChannelKey(channelID)
	temp := c.optimisticRecord(token, channelID, content, imageURL, nil)

	return run(c, ctx, OpSend, token,
		effects{
			key: func() { c.cache.Append(key, Entry{Record: temp, State: Pending, Token: token}, ReasonApply) },
		},
		func(ctx context.Context) (*models.MessageRecord, error) {
			return c.svc.CreateMessage(ctx, models.CreateMessageRequest{
				ChannelID: channelID,
				Content:   content,
				ImageURL:  imageURL,
			})
		},
		func(server *models.MessageRecord) effects {
			return effects{
				key: func() { c.replaceTemp(key, temp.ID, *server) },
			}
		},
	)
}

// Reply, thread'e cevap gönderir. Thread akışına geçici kayıt eklenir, kanal
// akışındaki ve thread'deki ebeveynin repliesCount'u artırılır.
func (c *Coordinator) Reply(ctx context.Context, channelID, parentID, content string, imageURL *string) (*models.MessageRecord, error) {
	token := uuid.NewString()
	threadKey := ThreadKey(parentID)
	channelKey := ChannelKey(channelID)
	temp := c.optimisticRecord(token, channelID, content, imageURL, &parentID)

	bumpParent := func(key StreamKey) {
		c.cache.Update(key, parentID, ReasonApply, func(e *Entry) {
			e.Record.RepliesCount++
		})
	}
	dropBump := func(key StreamKey) {
		c.cache.Update(key, parentID, ReasonReconcile, func(e *Entry) {
			if e.Record.RepliesCount > 0 {
				e.Record.RepliesCount--
			}
		})
	}

	return run(c, ctx, OpReply, token,
		effects{
			threadKey: func() {
				if c.cache.Append(threadKey, Entry{Record: temp, State: Pending, Token: token}, ReasonApply) {
					bumpParent(threadKey)
				}
			},
			channelKey: func() { bumpParent(channelKey) },
		},
		func(ctx context.Context) (*models.MessageRecord, error) {
			return c.svc.CreateMessage(ctx, models.CreateMessageRequest{
				ChannelID: channelID,
				Content:   content,
				ImageURL:  imageURL,
				ThreadID:  &parentID,
			})
		},
		func(server *models.MessageRecord) effects {
			// Cevap Receive ile önce geldiyse sayaç iki kez artmıştır.
			echoed := c.receivedWhilePending(channelKey, server.ID)
			if !echoed {
				c.ownReplies[server.ID] = struct{}{}
			}
			return effects{
				threadKey: func() {
					if c.replaceTemp(threadKey, temp.ID, *server) {
						dropBump(threadKey)
					}
				},
				// repliesCount yerel sayımdır; cevap kaydı onu değiştirmez.
				channelKey: func() {
					if echoed {
						dropBump(channelKey)
					}
				},
			}
		},
	)
}

// Edit, mesaj içeriğini değiştirir. Mesajın göründüğü bütün akışlarda uygulanır.
func (c *Coordinator) Edit(ctx context.Context, messageID, content string) (*models.UpdateMessageResult, error) {
	if IsTemp(messageID) {
		return nil, fmt.Errorf("%w: message %s is not sent yet", ErrMutationRejected, messageID)
	}
	token := uuid.NewString()
	keys := c.cache.KeysContaining(messageID)

	apply := make(effects, len(keys))
	for _, key := range keys {
		apply[key] = func() {
			c.cache.Update(key, messageID, ReasonApply, func(e *Entry) {
				e.Record.Content = content
				e.State = Pending
				e.Token = token
			})
		}
	}

	return run(c, ctx, OpEdit, token, apply,
		func(ctx context.Context) (*models.UpdateMessageResult, error) {
			return c.svc.UpdateMessage(ctx, models.UpdateMessageRequest{MessageID: messageID, Content: content})
		},
		func(res *models.UpdateMessageResult) effects {
			settle := make(effects, len(keys))
			for _, key := range keys {
				settle[key] = func() {
					c.cache.Update(key, messageID, ReasonReconcile, func(e *Entry) {
						e.Record.Content = res.Message.Content
						e.Record.UpdatedAt = res.Message.UpdatedAt
						if res.Message.RepliesCount > e.Record.RepliesCount {
							e.Record.RepliesCount = res.Message.RepliesCount
						}
						confirm(e, token)
					})
				}
			}
			return settle
		},
	)
}

// ToggleReaction, viewer'ın emoji tepkisini çevirir. Mesaj hem kanal akışında
// hem thread'de görünüyorsa ikisinde de aynı değişiklik uygulanır.
func (c *Coordinator) ToggleReaction(ctx context.Context, messageID, emoji string) (*models.ToggleReactionResult, error) {
	if IsTemp(messageID) {
		return nil, fmt.Errorf("%w: message %s is not sent yet", ErrMutationRejected, messageID)
	}
	token := uuid.NewString()
	keys := c.cache.KeysContaining(messageID)

	apply := make(effects, len(keys))
	for _, key := range keys {
		apply[key] = func() {
			c.cache.Update(key, messageID, ReasonApply, func(e *Entry) {
				e.Record.Reactions = ToggleReaction(e.Record.Reactions, emoji)
				e.State = Pending
				e.Token = token
			})
		}
	}

	return run(c, ctx, OpReaction, token, apply,
		func(ctx context.Context) (*models.ToggleReactionResult, error) {
			return c.svc.ToggleReaction(ctx, models.ToggleReactionRequest{MessageID: messageID, Emoji: emoji})
		},
		func(res *models.ToggleReactionResult) effects {
			settle := make(effects, len(keys))
			for _, key := range keys {
				settle[key] = func() {
					c.cache.Update(key, messageID, ReasonReconcile, func(e *Entry) {
						e.Record.Reactions = append([]models.ReactionGroup{}, res.Reactions...)
						confirm(e, token)
					})
				}
			}
			return settle
		},
	)
}

// Receive, başka bir yerden gelen (ör. realtime) onaylı kaydı akışın sonuna ekler.
// Cevapsa thread akışına eklenir ve kanal akışındaki ebeveynin sayacı artar.
func (c *Coordinator) Receive(rec models.MessageRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	apply := effects{}
	if rec.IsReply() {
		parentID := *rec.ThreadID
		threadKey := ThreadKey(parentID)
		apply[threadKey] = func() {
			if c.cache.Append(threadKey, Entry{Record: rec}, ReasonAppend) {
				c.cache.Update(threadKey, parentID, ReasonAppend, func(e *Entry) { e.Record.RepliesCount++ })
			}
		}
		// Kendi cevabımız zaten sayıldı.
		if _, own := c.ownReplies[rec.ID]; own {
			delete(c.ownReplies, rec.ID)
		} else {
			channelKey := ChannelKey(rec.ChannelID)
			apply[channelKey] = func() {
				c.cache.Update(channelKey, parentID, ReasonAppend, func(e *Entry) { e.Record.RepliesCount++ })
			}
		}
	} else {
		key := ChannelKey(rec.ChannelID)
		apply[key] = func() { c.cache.Append(key, Entry{Record: rec}, ReasonAppend) }
	}

	for key, fn := range apply {
		if _, seen := c.cache.Find(key, rec.ID); seen {
			continue
		}
		fn()
		// Önünde bekleyen mutasyon varsa, olası bir rollback sonrası yeniden uygulanmak üzere journal'a yazılır.
		if len(c.journal[key]) > 0 {
			c.seq++
			c.journal[key] = append(c.journal[key], &mutation{
				seq:      c.seq,
				keys:     []StreamKey{key},
				apply:    effects{key: fn},
				done:     true,
				received: rec.ID,
			})
		}
	}
}

// run, mutasyon protokolünün ortak gövdesi.
func run[T any](
	c *Coordinator,
	ctx context.Context,
	op Op,
	token string,
	apply effects,
	issue func(context.Context) (T, error),
	reconcile func(T) effects,
) (T, error) {
	var zero T

	c.mu.Lock()
	c.seq++
	m := &mutation{
		seq:       c.seq,
		op:        op,
		token:     token,
		snapshots: make(map[StreamKey]Snapshot, len(apply)),
		apply:     apply,
	}
	for key := range apply {
		m.keys = append(m.keys, key)
	}
	sortKeys(m.keys)

	for _, key := range m.keys {
		c.fetcher.Cancel(key)
		m.snapshots[key] = c.cache.Snapshot(key)
	}
	for _, key := range m.keys {
		apply[key]()
		c.journal[key] = append(c.journal[key], m)
	}
	c.mu.Unlock()

	result, err := issue(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		rolledBack := c.rollback(m)
		if len(rolledBack) > 0 {
			c.signal(Failure{Key: rolledBack[0], Op: op, Err: err})
		}
		return zero, fmt.Errorf("%w: %w", ErrMutationRejected, err)
	}

	m.settle = reconcile(result)
	m.done = true
	for _, key := range m.keys {
		list := c.journal[key]
		idx := indexOf(list, m)
		if idx < 0 {
			log.Debug().Str("module", "streamsync.coordinator").Str("key", key.String()).
				Str("op", string(op)).Err(ErrStaleContext).Msg("reconcile ignored")
			continue
		}
		if idx == len(list)-1 {
			if fn, ok := m.settle[key]; ok {
				fn()
			}
			continue
		}
		c.replay(key, m.snapshots[key], list[idx:], ReasonReconcile)
	}
	for _, key := range m.keys {
		c.trim(key)
	}
	return result, nil
}

// rollback, m'yi journal'dan çıkarır: her akış için m'nin snapshot'ını geri
// yükler ve sonraki işlemlerin etkilerini sırayla yeniden uygular.
// Geri alınan akışları döner.
func (c *Coordinator) rollback(m *mutation) []StreamKey {
	var rolledBack []StreamKey
	for _, key := range m.keys {
		list := c.journal[key]
		idx := indexOf(list, m)
		if idx < 0 {
			continue
		}

		later := list[idx+1:]
		c.replay(key, m.snapshots[key], later, ReasonRollback)

		c.journal[key] = append(list[:idx:idx], later...)
		c.trim(key)
		rolledBack = append(rolledBack, key)
	}
	return rolledBack
}

// replay, akışı base'e döndürür ve list'teki işlemleri sırayla yeniden uygular.
// Bekleyen her işlemin snapshot'ı kendi etkisinden hemen önceki duruma güncellenir.
func (c *Coordinator) replay(key StreamKey, base Snapshot, list []*mutation, reason ChangeReason) {
	c.cache.restore(base, reason)
	for _, l := range list {
		if !l.done {
			l.snapshots[key] = c.cache.Snapshot(key)
		}
		if fn, ok := l.apply[key]; ok {
			fn()
		}
		if fn, ok := l.settle[key]; ok {
			fn()
		}
	}
}

// receivedWhilePending, kaydın akışta bekleyen bir mutasyon varken Receive ile gelip gelmediği.
func (c *Coordinator) receivedWhilePending(key StreamKey, id string) bool {
	for _, l := range c.journal[key] {
		if l.received == id {
			return true
		}
	}
	return false
}

// trim, başındaki tamamlanmış işlemleri journal'dan atar; önlerinde geri
// alınabilecek bir mutasyon kalmamıştır.
func (c *Coordinator) trim(key StreamKey) {
	list := c.journal[key]
	i := 0
	for i < len(list) && list[i].done {
		i++
	}
	if i == len(list) {
		delete(c.journal, key)
		return
	}
	c.journal[key] = list[i:]
}

func (c *Coordinator) signal(f Failure) {
	select {
	case c.failures <- f:
	default:
		log.Warn().Str("module", "streamsync.coordinator").Str("key", f.Key.String()).
			Str("op", string(f.Op)).Err(f.Err).Msg("failure channel full, signal dropped")
	}
}

// replaceTemp, geçici kaydı sunucu kaydıyla aynı pozisyonda değiştirir.
// Sunucu kaydı akışta zaten varsa geçici kayıt atılır ve true döner.
func (c *Coordinator) replaceTemp(key StreamKey, tempID string, server models.MessageRecord) bool {
	if server.Reactions == nil {
		server.Reactions = []models.ReactionGroup{}
	}
	if _, ok := c.cache.Find(key, server.ID); ok {
		return c.cache.Remove(key, tempID, ReasonReconcile)
	}
	if !c.cache.Replace(key, tempID, Entry{Record: server, State: Confirmed}, ReasonReconcile) {
		log.Debug().Str("module", "streamsync.coordinator").Str("key", key.String()).
			Str("temp_id", tempID).Err(ErrStaleContext).Msg("temp entry gone, reconcile ignored")
	}
	return false
}

func (c *Coordinator) optimisticRecord(token, channelID, content string, imageURL *string, threadID *string) models.MessageRecord {
	now := c.now().UTC()
	name := c.viewer.DisplayName
	if name == "" {
		name = c.viewer.Email
	}
	rec := models.MessageRecord{
		ID:           TempIDPrefix + token,
		Content:      content,
		ImageURL:     imageURL,
		AuthorID:     c.viewer.ID,
		AuthorName:   name,
		AuthorEmail:  c.viewer.Email,
		AuthorAvatar: c.viewer.AvatarURL,
		ChannelID:    channelID,
		ThreadID:     threadID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Reactions:    []models.ReactionGroup{},
	}
	return rec.Clone()
}

// confirm, kaydı değiştiren son mutasyon token ise Confirmed yapar.
func confirm(e *Entry, token string) {
	if e.Token == token {
		e.State = Confirmed
		e.Token = ""
	}
}

func indexOf(list []*mutation, m *mutation) int {
	for i, x := range list {
		if x == m {
			return i
		}
	}
	return -1
}

func sortKeys(keys []StreamKey) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j].String() < keys[j-1].String(); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

// IsRejected, hatanın geri alınmış bir mutasyondan gelip gelmediği.
func IsRejected(err error) bool {
	return errors.Is(err, ErrMutationRejected)
}
