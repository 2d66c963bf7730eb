package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// Publisher 將事件送往外部 (Redis Stream、Log 等)
type Publisher interface {
	Publish(ctx context.Context, event domain.BalanceChanged) error
}

// Dispatcher 非阻塞的餘額異動通知
//
// Notify 只把事件放進有界佇列；佇列滿時丟棄並計數，不會卡住帳務流程。
// 背景 goroutine 依序交給 Publisher，發送失敗只記錄 Log。
type Dispatcher struct {
	publisher Publisher
	logger    zerolog.Logger
	events    chan domain.BalanceChanged
	dropped   atomic.Uint64
	timeout   time.Duration

	startOnce sync.Once
	done      chan struct{}
}

// NewDispatcher 建立 Dispatcher，buffer <= 0 時使用 1024
func NewDispatcher(publisher Publisher, buffer int, logger zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Dispatcher{
		publisher: publisher,
		logger:    logger.With().Str("component", "notify_dispatcher").Logger(),
		events:    make(chan domain.BalanceChanged, buffer),
		timeout:   3 * time.Second,
		done:      make(chan struct{}),
	}
}

// Notify 實作 usecase.Notifier
func (d *Dispatcher) Notify(_ context.Context, event domain.BalanceChanged) {
	select {
	case d.events <- event:
	default:
		n := d.dropped.Add(1)
		d.logger.Warn().
			Str("account_id", event.AccountID.String()).
			Str("reference", event.Reference.String()).
			Uint64("dropped_total", n).
			Msg("notification buffer full, event dropped")
	}
}

// Dropped 已丟棄的事件數
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Start 啟動背景發送，ctx 結束後送完佇列內剩餘事件再關閉 Done
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		go d.loop(ctx)
	})
}

// Done 背景發送結束時關閉
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case event := <-d.events:
			d.publish(event)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.events:
			d.publish(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(event domain.BalanceChanged) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.logger.Error().Err(err).
			Str("account_id", event.AccountID.String()).
			Str("reference", event.Reference.String()).
			Msg("failed to publish balance change")
	}
}

// LogPublisher 只寫 Log 的 Publisher，未啟用 Redis 時使用
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "balance_events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.BalanceChanged) error {
	p.logger.Info().
		Str("account_id", event.AccountID.String()).
		Str("delta", event.Delta.String()).
		Str("balance", event.Balance.String()).
		Str("reason", string(event.Reason)).
		Str("reference", event.Reference.String()).
		Int64("occurred_at", event.OccurredAt).
		Msg("balance changed")
	return nil
}

var _ usecase.Notifier = (*Dispatcher)(nil)
