package streamsync

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/akinalp/teamchat/models"
)

type fetchCall struct {
	gen    uint64
	cancel context.CancelFunc
}

// Fetcher, akışlar için geriye doğru sayfa isteklerini yürütür.
//
// Bir akış için aynı anda en fazla bir istek olur; ikinci çağrı istek atmadan
// ErrFetchInFlight döner. Cancel süren isteği iptal eder ve nesil sayacını
// artırır; geç gelen cevap önbelleğe yazılmaz.
type Fetcher struct {
	cache *Cache
	svc   MessageService
	limit int

	mu       sync.Mutex
	inflight map[StreamKey]*fetchCall
	gens     map[StreamKey]uint64
}

// NewFetcher, yeni bir Fetcher oluşturur. limit <= 0 ise varsayılan sayfa boyu kullanılır.
func NewFetcher(cache *Cache, svc MessageService, limit int) *Fetcher {
	if limit <= 0 {
		limit = models.DefaultPageLimit
	}
	return &Fetcher{
		cache:    cache,
		svc:      svc,
		limit:    limit,
		inflight: make(map[StreamKey]*fetchCall),
		gens:     make(map[StreamKey]uint64),
	}
}

// FetchOlder, akışın bir sonraki eski sayfasını çeker ve başa ekler.
// Kanal için cursor önbellekteki en eski öğedir; thread tek seferde yüklenir.
// Daha eski sayfa kalmadıysa istek atmadan nil döner.
func (f *Fetcher) FetchOlder(ctx context.Context, key StreamKey) error {
	if !f.cache.HasMore(key) {
		return nil
	}
	return f.fetch(ctx, key)
}

// LoadThread, thread akışını yeniden yükler (zaten yüklü olsa bile).
func (f *Fetcher) LoadThread(ctx context.Context, parentID string) error {
	return f.fetch(ctx, ThreadKey(parentID))
}

// InFlight, akış için süren bir istek olup olmadığı.
func (f *Fetcher) InFlight(key StreamKey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.inflight[key]
	return ok
}

// Cancel, akışın süren isteğini iptal eder. Cevap gelse bile yok sayılır.
func (f *Fetcher) Cancel(key StreamKey) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if call, ok := f.inflight[key]; ok {
		call.cancel()
		delete(f.inflight, key)
		log.Debug().Str("module", "streamsync.fetcher").Str("key", key.String()).Msg("in-flight fetch cancelled")
	}
	f.gens[key]++
}

func (f *Fetcher) fetch(ctx context.Context, key StreamKey) error {
	f.mu.Lock()
	if _, ok := f.inflight[key]; ok {
		f.mu.Unlock()
		return ErrFetchInFlight
	}
	f.gens[key]++
	gen := f.gens[key]
	ctx, cancel := context.WithCancel(ctx)
	f.inflight[key] = &fetchCall{gen: gen, cancel: cancel}
	f.mu.Unlock()
	defer cancel()

	var (
		page    *models.MessagePage
		listing *models.ThreadListing
		err     error
	)
	switch key.Kind {
	case KindThread:
		listing, err = f.svc.GetThread(ctx, key.ID)
	default:
		page, err = f.svc.ListMessages(ctx, key.ID, f.cache.Cursor(key), f.limit)
	}

	// Nesil kontrolü ve merge aynı kilit altında: Cancel dönünce bu cevap
	// önbelleğe artık yazılamaz.
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.gens[key] != gen {
		return ErrStaleContext
	}
	delete(f.inflight, key)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ErrStaleContext
		}
		return err
	}

	if listing != nil {
		f.cache.SeedThread(key, *listing)
	} else if page != nil {
		f.cache.MergeOlder(key, *page)
	}
	return nil
}
