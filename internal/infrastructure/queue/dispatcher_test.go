package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/auth-api/internal/core/domain"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []domain.AuthEvent
	err    error
	block  chan struct{}
}

func (h *recordingHandler) Handle(_ context.Context, e domain.AuthEvent) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return h.err
}

func (h *recordingHandler) snapshot() []domain.AuthEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.AuthEvent, len(h.events))
	copy(out, h.events)
	return out
}

func TestDispatcher_DeliversAllEventsOnClose(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(3, h, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 50; i++ {
		d.Publish(domain.AuthEvent{Type: domain.EventLogin, Username: fmt.Sprintf("user-%d", i%5)})
	}
	d.Close()

	assert.Len(t, h.snapshot(), 50)
}

func TestDispatcher_PreservesPerUserOrder(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(4, h, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 20; i++ {
		d.Publish(domain.AuthEvent{Type: domain.EventLogin, Username: "alice", Reason: fmt.Sprint(i)})
		d.Publish(domain.AuthEvent{Type: domain.EventLogin, Username: "bob", Reason: fmt.Sprint(i)})
	}
	d.Close()

	next := map[string]int{}
	for _, e := range h.snapshot() {
		assert.Equal(t, fmt.Sprint(next[e.Username]), e.Reason, "out of order for %s", e.Username)
		next[e.Username]++
	}
	assert.Equal(t, 20, next["alice"])
	assert.Equal(t, 20, next["bob"])
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, &recordingHandler{}, zerolog.Nop())
	first := d.shardIndex("alice")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, d.shardIndex("alice"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 8)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	h := &recordingHandler{block: make(chan struct{})}
	d := NewDispatcher(1, h, zerolog.Nop())
	d.Start(context.Background())

	// One event is held by the blocked worker, the buffer takes the next
	// channelBuffer events and the rest must be dropped without blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+10; i++ {
			d.Publish(domain.AuthEvent{Username: "alice"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}

	close(h.block)
	d.Close()

	got := len(h.snapshot())
	assert.GreaterOrEqual(t, got, channelBuffer)
	assert.Less(t, got, channelBuffer+10)
}

func TestDispatcher_PublishAfterCloseIsDropped(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(2, h, zerolog.Nop())
	d.Start(context.Background())
	d.Close()
	d.Close()

	require.NotPanics(t, func() { d.Publish(domain.AuthEvent{Username: "late"}) })
	assert.Empty(t, h.snapshot())
}

func TestDispatcher_HandlerErrorDoesNotStopWorker(t *testing.T) {
	h := &recordingHandler{err: errors.New("db down")}
	d := NewDispatcher(1, h, zerolog.Nop())
	d.Start(context.Background())

	d.Publish(domain.AuthEvent{Username: "a"})
	d.Publish(domain.AuthEvent{Username: "a"})
	d.Close()

	assert.Len(t, h.snapshot(), 2)
}
