package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// EventType 餘額異動事件類型
const EventType = "balance.changed"

// Envelope Stream 訊息內容，放在 "event" 欄位
type Envelope struct {
	Type      string                `json:"type"`
	Timestamp time.Time             `json:"timestamp"`
	Data      domain.BalanceChanged `json:"data"`
}

// EventPublisher 以 Redis Stream (XADD) 發布餘額異動
type EventPublisher struct {
	client goredis.Cmdable
	stream string
	maxLen int64
	now    func() time.Time
}

// NewEventPublisher 建立 EventPublisher
//
// 參數:
//
//	client: Redis 客戶端
//	stream: Stream 名稱
//	maxLen: Stream 約略長度上限 (MAXLEN ~)，0 表示不裁切
func NewEventPublisher(client goredis.Cmdable, stream string, maxLen int64) *EventPublisher {
	return &EventPublisher{client: client, stream: stream, maxLen: maxLen, now: time.Now}
}

// Publish 實作 notify.Publisher
func (p *EventPublisher) Publish(ctx context.Context, event domain.BalanceChanged) error {
	payload, err := Encode(Envelope{Type: EventType, Timestamp: p.now().UTC(), Data: event})
	if err != nil {
		return err
	}
	args := &goredis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"event": payload},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Encode 將 Envelope 序列化為 Stream 欄位值
func Encode(e Envelope) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return string(b), nil
}

// Decode 解析 Stream 訊息
func Decode(values map[string]any) (Envelope, error) {
	var e Envelope
	raw, ok := values["event"].(string)
	if !ok {
		return e, fmt.Errorf("invalid message format")
	}
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return e, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return e, nil
}
