package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	eventstream "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/redis"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Handler 處理一筆餘額異動事件，回傳錯誤時不 ACK，訊息會留在 Pending 等待重試
type Handler func(ctx context.Context, event domain.BalanceChanged) error

type SubscriberConfig struct {
	Stream        string
	Group         string
	Consumer      string
	BatchSize     int64
	BlockDuration time.Duration
}

// AuditSubscriber 以 Consumer Group 消費餘額異動 Stream
type AuditSubscriber struct {
	client  *goredis.Client
	cfg     SubscriberConfig
	handler Handler
	logger  zerolog.Logger
}

func NewAuditSubscriber(client *goredis.Client, cfg SubscriberConfig, handler Handler, logger zerolog.Logger) *AuditSubscriber {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.BlockDuration == 0 {
		cfg.BlockDuration = 5 * time.Second
	}
	return &AuditSubscriber{
		client:  client,
		cfg:     cfg,
		handler: handler,
		logger: logger.With().
			Str("component", "audit_subscriber").
			Str("stream", cfg.Stream).
			Str("group", cfg.Group).
			Logger(),
	}
}

// LogHandler 將事件寫入稽核 Log
func LogHandler(logger zerolog.Logger) Handler {
	return func(_ context.Context, event domain.BalanceChanged) error {
		logger.Info().
			Str("account_id", event.AccountID.String()).
			Str("delta", event.Delta.String()).
			Str("balance", event.Balance.String()).
			Str("reason", string(event.Reason)).
			Str("reference", event.Reference.String()).
			Msg("audit: balance changed")
		return nil
	}
}

// Start 建立 Consumer Group (已存在時略過) 並持續讀取，直到 ctx 結束
func (s *AuditSubscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	s.logger.Info().Str("consumer", s.cfg.Consumer).Msg("subscriber started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("subscriber stopping")
			return nil
		default:
		}
		if err := s.readMessages(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error().Err(err).Msg("error reading messages")
			time.Sleep(time.Second)
		}
	}
}

func (s *AuditSubscriber) readMessages(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, ">"},
		Count:    s.cfg.BatchSize,
		Block:    s.cfg.BlockDuration,
	}).Result()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			if err := s.processMessage(ctx, message); err != nil {
				s.logger.Warn().Err(err).Str("message_id", message.ID).Msg("failed to process message")
				continue
			}
			if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, message.ID).Err(); err != nil {
				s.logger.Error().Err(err).Str("message_id", message.ID).Msg("failed to ack message")
			}
		}
	}
	return nil
}

func (s *AuditSubscriber) processMessage(ctx context.Context, message goredis.XMessage) error {
	envelope, err := eventstream.Decode(message.Values)
	if err != nil {
		return err
	}
	if envelope.Type != eventstream.EventType {
		return fmt.Errorf("unexpected event type %q", envelope.Type)
	}
	return s.handler(ctx, envelope.Data)
}
