package streamsync

import (
	"sort"
	"sync"

	"github.com/akinalp/teamchat/models"
)

// ChangeReason, akışın neden değiştiği.
type ChangeReason string

const (
	ReasonFetch     ChangeReason = "fetch"
	ReasonApply     ChangeReason = "apply"
	ReasonRollback  ChangeReason = "rollback"
	ReasonReconcile ChangeReason = "reconcile"
	ReasonAppend    ChangeReason = "append"
)

// Change, abonelere giden değişiklik bildirimi.
type Change struct {
	Key    StreamKey
	Reason ChangeReason
}

// Page, önbellekteki bir sayfa. Entries eskiden yeniye sıralıdır.
type Page struct {
	Entries []Entry
}

type stream struct {
	pages   []Page
	parent  *Entry
	cursor  string
	hasMore bool
}

func (s *stream) clone() *stream {
	c := &stream{cursor: s.cursor, hasMore: s.hasMore}
	c.pages = make([]Page, len(s.pages))
	for i, p := range s.pages {
		entries := make([]Entry, len(p.Entries))
		for j, e := range p.Entries {
			entries[j] = e.clone()
		}
		c.pages[i] = Page{Entries: entries}
	}
	if s.parent != nil {
		p := s.parent.clone()
		c.parent = &p
	}
	return c
}

// locate, id'li kaydın adresini döner. Thread ebeveyni de aranır.
func (s *stream) locate(id string) *Entry {
	if s.parent != nil && s.parent.Record.ID == id {
		return s.parent
	}
	for i := range s.pages {
		for j := range s.pages[i].Entries {
			if s.pages[i].Entries[j].Record.ID == id {
				return &s.pages[i].Entries[j]
			}
		}
	}
	return nil
}

// Snapshot, bir akışın derin kopyası. Restore ile aynen geri yüklenir.
type Snapshot struct {
	Key     StreamKey
	present bool
	state   *stream
}

// Cache, akış anahtarı başına sayfa dizisi tutar.
//
// Geriye doğru sayfalar başa eklenir ve öğeleri ters çevrilir; ileri büyüme
// (yeni mesaj) son sayfanın sonuna eklenir. Entries her zaman kronolojik sıradır.
// Tüm metodlar goroutine-safe'tir; abonelere bildirim kilit dışında yapılır.
type Cache struct {
	mu      sync.RWMutex
	streams map[StreamKey]*stream
	subs    map[int]func(Change)
	nextSub int
}

// NewCache, boş bir Cache oluşturur.
func NewCache() *Cache {
	return &Cache{
		streams: make(map[StreamKey]*stream),
		subs:    make(map[int]func(Change)),
	}
}

// Subscribe, değişiklik aboneliği. Dönen fonksiyon aboneliği iptal eder.
// fn değişikliği yapan goroutine'de çağrılır; içinden Fetcher ya da
// Coordinator çağrılacaksa ayrı goroutine'e taşınmalıdır.
func (c *Cache) Subscribe(fn func(Change)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Cache) notify(key StreamKey, reason ChangeReason) {
	c.mu.RLock()
	subs := make([]func(Change), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.RUnlock()

	for _, fn := range subs {
		fn(Change{Key: key, Reason: reason})
	}
}

// Loaded, akışın en az bir kez çekilip çekilmediği.
func (c *Cache) Loaded(key StreamKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.streams[key]
	return ok
}

// HasMore, daha eski sayfa kalıp kalmadığı. Hiç çekilmemiş akış için true.
func (c *Cache) HasMore(key StreamKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.streams[key]
	return !ok || s.hasMore
}

// Cursor, bir sonraki geriye doğru isteğin cursor'ı (bilinen en eski öğe).
func (c *Cache) Cursor(key StreamKey) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.streams[key]; ok {
		return s.cursor
	}
	return ""
}

// MergeOlder, sunucudan gelen (yeniden eskiye) sayfayı akışın başına ekler.
// Akışta zaten bulunan ID'ler atlanır.
func (c *Cache) MergeOlder(key StreamKey, page models.MessagePage) {
	c.mu.Lock()
	s, ok := c.streams[key]
	if !ok {
		s = &stream{}
		c.streams[key] = s
	}

	entries := make([]Entry, 0, len(page.Items))
	for i := len(page.Items) - 1; i >= 0; i-- {
		rec := page.Items[i]
		if s.locate(rec.ID) != nil {
			continue
		}
		entries = append(entries, Entry{Record: rec.Clone(), State: Confirmed})
	}
	if len(entries) > 0 {
		s.pages = append([]Page{{Entries: entries}}, s.pages...)
	}
	s.cursor = page.NextCursor
	s.hasMore = page.NextCursor != ""
	c.mu.Unlock()

	c.notify(key, ReasonFetch)
}

// SeedThread, thread akışını listeden tek sayfa olarak kurar.
// Listede olmayan Pending kayıtlar (henüz onaylanmamış cevaplar) sona korunur.
func (c *Cache) SeedThread(key StreamKey, listing models.ThreadListing) {
	c.mu.Lock()
	entries := make([]Entry, 0, len(listing.Messages))
	seen := make(map[string]bool, len(listing.Messages))
	for _, rec := range listing.Messages {
		entries = append(entries, Entry{Record: rec.Clone(), State: Confirmed})
		seen[rec.ID] = true
	}

	parent := Entry{Record: listing.Parent.Clone(), State: Confirmed}
	if old, ok := c.streams[key]; ok {
		for _, p := range old.pages {
			for _, e := range p.Entries {
				if e.State == Pending && !seen[e.Record.ID] {
					entries = append(entries, e.clone())
				}
			}
		}
		if old.parent != nil && old.parent.State == Pending {
			parent = old.parent.clone()
		}
	}

	c.streams[key] = &stream{
		pages:  []Page{{Entries: entries}},
		parent: &parent,
	}
	c.mu.Unlock()

	c.notify(key, ReasonFetch)
}

// Append, kaydı son sayfanın sonuna ekler. Akış yüklenmemişse false döner.
func (c *Cache) Append(key StreamKey, e Entry, reason ChangeReason) bool {
	c.mu.Lock()
	s, ok := c.streams[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	if s.locate(e.Record.ID) != nil {
		c.mu.Unlock()
		return false
	}
	if len(s.pages) == 0 {
		s.pages = []Page{{}}
	}
	last := &s.pages[len(s.pages)-1]
	last.Entries = append(last.Entries, e.clone())
	c.mu.Unlock()

	c.notify(key, reason)
	return true
}

// Entries, akışın tüm kayıtlarını eskiden yeniye döner (kopya).
func (c *Cache) Entries(key StreamKey) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.streams[key]
	if !ok {
		return nil
	}
	var out []Entry
	for _, p := range s.pages {
		for _, e := range p.Entries {
			out = append(out, e.clone())
		}
	}
	return out
}

// Pages, akışın sayfa sayısı.
func (c *Cache) Pages(key StreamKey) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.streams[key]; ok {
		return len(s.pages)
	}
	return 0
}

// Parent, thread akışının ebeveyn kaydı.
func (c *Cache) Parent(key StreamKey) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.streams[key]
	if !ok || s.parent == nil {
		return Entry{}, false
	}
	return s.parent.clone(), true
}

// Find, akışta id'li kaydı arar (thread ebeveyni dahil).
func (c *Cache) Find(key StreamKey, id string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.streams[key]
	if !ok {
		return Entry{}, false
	}
	if e := s.locate(id); e != nil {
		return e.clone(), true
	}
	return Entry{}, false
}

// Update, id'li kaydı yerinde değiştirir. Kayıt yoksa false döner.
func (c *Cache) Update(key StreamKey, id string, reason ChangeReason, fn func(*Entry)) bool {
	c.mu.Lock()
	s, ok := c.streams[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	e := s.locate(id)
	if e == nil {
		c.mu.Unlock()
		return false
	}
	fn(e)
	c.mu.Unlock()

	c.notify(key, reason)
	return true
}

// Replace, id'li kaydı aynı pozisyonda yeni kayıtla değiştirir.
func (c *Cache) Replace(key StreamKey, id string, e Entry, reason ChangeReason) bool {
	return c.Update(key, id, reason, func(target *Entry) {
		*target = e.clone()
	})
}

// Remove, id'li kaydı sayfasından çıkarır. Thread ebeveyni çıkarılmaz.
func (c *Cache) Remove(key StreamKey, id string, reason ChangeReason) bool {
	c.mu.Lock()
	s, ok := c.streams[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	removed := false
	for i := range s.pages {
		entries := s.pages[i].Entries
		for j := range entries {
			if entries[j].Record.ID == id {
				s.pages[i].Entries = append(entries[:j:j], entries[j+1:]...)
				removed = true
				break
			}
		}
		if removed {
			break
		}
	}
	c.mu.Unlock()

	if removed {
		c.notify(key, reason)
	}
	return removed
}

// KeysContaining, id'li kaydı içeren yüklü akışlar (deterministik sıra).
func (c *Cache) KeysContaining(id string) []StreamKey {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var keys []StreamKey
	for key, s := range c.streams {
		if s.locate(id) != nil {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Snapshot, akışın derin kopyasını alır.
func (c *Cache) Snapshot(key StreamKey) Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.streams[key]
	if !ok {
		return Snapshot{Key: key}
	}
	return Snapshot{Key: key, present: true, state: s.clone()}
}

// Restore, akışı snapshot'taki haline aynen döndürür.
func (c *Cache) Restore(snap Snapshot) {
	c.restore(snap, ReasonRollback)
}

func (c *Cache) restore(snap Snapshot, reason ChangeReason) {
	c.mu.Lock()
	if snap.present {
		c.streams[snap.Key] = snap.state.clone()
	} else {
		delete(c.streams, snap.Key)
	}
	c.mu.Unlock()

	c.notify(snap.Key, reason)
}

// Discard, akışı önbellekten tamamen çıkarır.
func (c *Cache) Discard(key StreamKey) {
	c.mu.Lock()
	delete(c.streams, key)
	c.mu.Unlock()
}
