// Package assist, özetleme ve yazım yardımı gibi uzun süren isteklerin
// iptalini sahip (owner) bazında yönetir.
//
// Bir owner tipik olarak bir diyalogdur: diyalog kapanınca ona ait bütün
// istekler iptal edilir ve owner unutulur. Aynı owner için yeni bir istek
// başlatmak öncekini iptal eder (durdur + yeniden dene).
package assist

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/akinalp/teamchat/models"
)

// ErrCanceled, istek Close ya da yeni bir Start ile iptal edildiğinde döner.
var ErrCanceled = errors.New("assist: request canceled")

// Generator, yardımcı metin üreten uzak servis.
type Generator interface {
	Summarize(ctx context.Context, messages []models.MessageRecord) (string, error)
	Compose(ctx context.Context, prompt string) (string, error)
}

type ownerState struct {
	next    uint64
	cancels map[uint64]context.CancelFunc
}

// Registry, owner → iptal fonksiyonları eşlemesi.
type Registry struct {
	mu     sync.Mutex
	owners map[string]*ownerState
}

// NewRegistry, boş bir Registry oluşturur.
func NewRegistry() *Registry {
	return &Registry{owners: make(map[string]*ownerState)}
}

// Start, fn'i owner'a bağlı bir context ile çalıştırır ve sonucunu döner.
// Owner'ın süren istekleri önce iptal edilir. fn iptal yüzünden biterse ErrCanceled döner.
func (r *Registry) Start(ctx context.Context, owner string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancelCause(ctx)

	r.mu.Lock()
	st, ok := r.owners[owner]
	if !ok {
		st = &ownerState{cancels: make(map[uint64]context.CancelFunc)}
		r.owners[owner] = st
	}
	for id, prev := range st.cancels {
		prev()
		delete(st.cancels, id)
	}
	st.next++
	id := st.next
	st.cancels[id] = func() { cancel(ErrCanceled) }
	r.mu.Unlock()

	err := fn(ctx)

	r.mu.Lock()
	if cur, ok := r.owners[owner]; ok && cur == st {
		delete(st.cancels, id)
	}
	r.mu.Unlock()
	cancel(nil)

	if err != nil && errors.Is(context.Cause(ctx), ErrCanceled) {
		return ErrCanceled
	}
	return err
}

// Close, owner'ın bütün isteklerini iptal eder ve owner'ı unutur.
func (r *Registry) Close(owner string) {
	r.mu.Lock()
	st, ok := r.owners[owner]
	delete(r.owners, owner)
	r.mu.Unlock()

	if !ok {
		return
	}
	for _, cancel := range st.cancels {
		cancel()
	}
	log.Debug().Str("module", "assist").Str("owner", owner).Int("canceled", len(st.cancels)).Msg("owner closed")
}

// Outstanding, owner için süren istek sayısı.
func (r *Registry) Outstanding(owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.owners[owner]; ok {
		return len(st.cancels)
	}
	return 0
}

// Owners, kayıtlı owner sayısı.
func (r *Registry) Owners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}

// Assistant, Generator çağrılarını Registry üzerinden yürütür.
type Assistant struct {
	registry *Registry
	gen      Generator
}

// NewAssistant, constructor.
func NewAssistant(registry *Registry, gen Generator) *Assistant {
	return &Assistant{registry: registry, gen: gen}
}

// Summarize, thread ya da kanal mesajlarının özetini üretir.
func (a *Assistant) Summarize(ctx context.Context, owner string, messages []models.MessageRecord) (string, error) {
	var out string
	err := a.registry.Start(ctx, owner, func(ctx context.Context) error {
		var err error
		out, err = a.gen.Summarize(ctx, messages)
		return err
	})
	return out, err
}

// Compose, verilen talimattan mesaj taslağı üretir.
func (a *Assistant) Compose(ctx context.Context, owner, prompt string) (string, error) {
	var out string
	err := a.registry.Start(ctx, owner, func(ctx context.Context) error {
		var err error
		out, err = a.gen.Compose(ctx, prompt)
		return err
	})
	return out, err
}

// Close, owner'ın isteklerini iptal eder.
func (a *Assistant) Close(owner string) {
	a.registry.Close(owner)
}
