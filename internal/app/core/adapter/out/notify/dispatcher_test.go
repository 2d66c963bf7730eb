package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.BalanceChanged
	block     chan struct{}
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, event domain.BalanceChanged) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, event)
	return m.err
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

func event(delta int64) domain.BalanceChanged {
	return domain.BalanceChanged{AccountID: uuid.New(), Delta: decimal.NewFromInt(delta), Reason: domain.ReasonCredit, Reference: uuid.New()}
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	pub := &mockPublisher{}
	d := NewDispatcher(pub, 8, zerolog.Nop())
	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), event(int64(i+1)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
	if pub.count() != 5 {
		t.Errorf("expected 5 published events, got %d", pub.count())
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	pub := &mockPublisher{}
	var buf bytes.Buffer
	d := NewDispatcher(pub, 2, zerolog.New(&buf))

	// 尚未 Start，佇列只容得下 2 筆
	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), event(1))
	}
	if d.Dropped() != 3 {
		t.Errorf("expected 3 dropped events, got %d", d.Dropped())
	}
	if !strings.Contains(buf.String(), "notification buffer full") {
		t.Errorf("expected drop warning in log, got %q", buf.String())
	}
}

func TestDispatcherNotifyDoesNotBlockOnSlowPublisher(t *testing.T) {
	pub := &mockPublisher{block: make(chan struct{})}
	d := NewDispatcher(pub, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			d.Notify(context.Background(), event(1))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a slow publisher")
	}

	close(pub.block)
	cancel()
	<-d.Done()
}

func TestDispatcherLogsPublishErrors(t *testing.T) {
	pub := &mockPublisher{err: errors.New("stream unavailable")}
	var buf bytes.Buffer
	d := NewDispatcher(pub, 4, zerolog.New(&buf))
	d.Notify(context.Background(), event(1))

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()
	<-d.Done()

	if !strings.Contains(buf.String(), "failed to publish balance change") {
		t.Errorf("expected publish failure to be logged, got %q", buf.String())
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))
	if err := p.Publish(context.Background(), event(-7)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.Contains(buf.String(), `"delta":"-7"`) {
		t.Errorf("expected delta in log line, got %q", buf.String())
	}
}
