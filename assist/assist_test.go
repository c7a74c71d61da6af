package assist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/teamchat/models"
)

// blockingGen, iptal edilene kadar bekler; started her çağrıda sinyal verir.
type blockingGen struct {
	started chan struct{}
}

func (g *blockingGen) Summarize(ctx context.Context, _ []models.MessageRecord) (string, error) {
	g.started <- struct{}{}
	<-ctx.Done()
	return "", ctx.Err()
}

func (g *blockingGen) Compose(ctx context.Context, prompt string) (string, error) {
	if prompt == "instant" {
		return "draft: " + prompt, nil
	}
	g.started <- struct{}{}
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCloseCancelsOutstandingRequests(t *testing.T) {
	gen := &blockingGen{started: make(chan struct{})}
	reg := NewRegistry()
	a := NewAssistant(reg, gen)

	done := make(chan error, 1)
	go func() {
		_, err := a.Summarize(context.Background(), "dialog-1", nil)
		done <- err
	}()
	<-gen.started
	assert.Equal(t, 1, reg.Outstanding("dialog-1"))

	a.Close("dialog-1")
	assert.ErrorIs(t, <-done, ErrCanceled)
	assert.Equal(t, 0, reg.Outstanding("dialog-1"))
	assert.Equal(t, 0, reg.Owners())
}

func TestStartSupersedesPreviousRequest(t *testing.T) {
	gen := &blockingGen{started: make(chan struct{})}
	reg := NewRegistry()
	a := NewAssistant(reg, gen)

	first := make(chan error, 1)
	go func() {
		_, err := a.Compose(context.Background(), "dialog-1", "slow")
		first <- err
	}()
	<-gen.started

	out, err := a.Compose(context.Background(), "dialog-1", "instant")
	require.NoError(t, err)
	assert.Equal(t, "draft: instant", out)
	assert.ErrorIs(t, <-first, ErrCanceled)
	assert.Equal(t, 0, reg.Outstanding("dialog-1"))
}

func TestOwnersAreIndependent(t *testing.T) {
	gen := &blockingGen{started: make(chan struct{})}
	reg := NewRegistry()
	a := NewAssistant(reg, gen)

	done := make(chan error, 1)
	go func() {
		_, err := a.Summarize(context.Background(), "dialog-1", nil)
		done <- err
	}()
	<-gen.started

	a.Close("dialog-2")
	assert.Equal(t, 1, reg.Outstanding("dialog-1"))

	a.Close("dialog-1")
	assert.ErrorIs(t, <-done, ErrCanceled)
}

func TestStartPassesThroughErrors(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("upstream 500")

	err := reg.Start(context.Background(), "dialog-1", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = reg.Start(ctx, "dialog-1", func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrCanceled)
}
