package events

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TranslationEvent is the record published for every completed translation.
type TranslationEvent struct {
	ID             string    `json:"id"`
	TranslatedText string    `json:"translated_text"`
	SourceText     string    `json:"source_text"`
	SourceLanguage string    `json:"source_language,omitempty"`
	TargetLanguage string    `json:"target_language"`
	Service        string    `json:"translation_service"`
	Timestamp      time.Time `json:"timestamp"`
	EventType      string    `json:"event_type"`
}

// NewTranslationEvent stamps an event with an ID, timestamp and type.
func NewTranslationEvent(sourceText, translated, from, to string) TranslationEvent {
	return TranslationEvent{
		ID:             uuid.NewString(),
		TranslatedText: translated,
		SourceText:     sourceText,
		SourceLanguage: from,
		TargetLanguage: to,
		Service:        "translator",
		Timestamp:      time.Now().UTC(),
		EventType:      "translation",
	}
}

// Publisher sends translation events to a Redis pub/sub channel so other
// local tooling can observe the stream. A nil Publisher is a no-op, which is
// how the server runs when no Redis address is configured.
type Publisher struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger

	published atomic.Int64
	failed    atomic.Int64
}

func NewPublisher(rdb *redis.Client, channel string, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, channel: channel, logger: logger}
}

// Publish sends one event. Failures are counted and logged but never fail
// the request that produced the event.
func (p *Publisher) Publish(ctx context.Context, ev TranslationEvent) {
	if p == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("marshal translation event", zap.Error(err))
		return
	}

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.failed.Add(1)
		p.logger.Warn("publish translation event",
			zap.String("channel", p.channel),
			zap.Error(err))
		return
	}
	p.published.Add(1)
}

// Close logs session counters and releases the Redis connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.logger.Info("event publisher closed",
		zap.Int64("published", p.published.Load()),
		zap.Int64("failed", p.failed.Load()))
	return p.rdb.Close()
}
