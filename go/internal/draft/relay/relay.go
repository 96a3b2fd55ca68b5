// Package relay forwards committed draft events to a message broker so other
// services can follow a league's draft.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/rs/zerolog/log"
)

// Message is an encoded event addressed to a subject
type Message struct {
	ID        string
	LeagueID  string
	EventType string
	Subject   string
	Data      []byte
}

// Publisher delivers one message to the broker
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

type Config struct {
	SubjectPrefix string        `yaml:"subject_prefix" env:"RELAY_SUBJECT_PREFIX"`
	QueueSize     int           `yaml:"queue_size" env:"RELAY_QUEUE_SIZE"`
	MaxAttempts   int           `yaml:"max_attempts" env:"RELAY_MAX_ATTEMPTS"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"RELAY_RETRY_DELAY"`
	// IncludeTicks relays TimerTick events, which arrive once a second per league.
	IncludeTicks bool `yaml:"include_ticks" env:"RELAY_INCLUDE_TICKS"`
}

func DefaultConfig() Config {
	return Config{
		SubjectPrefix: "draft.events",
		QueueSize:     1024,
		MaxAttempts:   3,
		RetryDelay:    100 * time.Millisecond,
	}
}

// Relay is an events.Sink that queues events and publishes them from Run.
// Broadcast never blocks: when the queue is full the event is dropped.
type Relay struct {
	publisher Publisher
	config    Config
	queue     chan Message

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

func New(publisher Publisher, cfg Config) *Relay {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Relay{
		publisher: publisher,
		config:    cfg,
		queue:     make(chan Message, cfg.QueueSize),
	}
}

// Subject returns the subject an event is published on:
// <prefix>.<league id>.<event type>
func Subject(prefix string, leagueID uuid.UUID, t events.EventType) string {
	return fmt.Sprintf("%s.%s.%s", prefix, leagueID, t)
}

func (r *Relay) Broadcast(leagueID uuid.UUID, ev *events.DraftEvent) {
	if ev.Type == events.EventTypeTimerTick && !r.config.IncludeTicks {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to marshal event for relay")
		return
	}

	msg := Message{
		ID:        ev.ID,
		LeagueID:  leagueID.String(),
		EventType: string(ev.Type),
		Subject:   Subject(r.config.SubjectPrefix, leagueID, ev.Type),
		Data:      data,
	}
	select {
	case r.queue <- msg:
	default:
		r.dropped.Add(1)
		log.Warn().
			Str("league_id", leagueID.String()).
			Str("event_type", string(ev.Type)).
			Msg("relay queue full, dropping event")
	}
}

// Run publishes queued events until ctx is done, then flushes what is left
// with a short grace period.
func (r *Relay) Run(ctx context.Context) error {
	log.Info().
		Str("subject_prefix", r.config.SubjectPrefix).
		Int("queue_size", r.config.QueueSize).
		Msg("event relay started")

	for {
		select {
		case msg := <-r.queue:
			r.publish(ctx, msg)
		case <-ctx.Done():
			r.flush()
			log.Info().
				Int64("published", r.published.Load()).
				Int64("dropped", r.dropped.Load()).
				Int64("failed", r.failed.Load()).
				Msg("event relay stopped")
			return nil
		}
	}
}

func (r *Relay) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-r.queue:
			r.publish(ctx, msg)
		default:
			return
		}
	}
}

func (r *Relay) publish(ctx context.Context, msg Message) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.RetryDelay
	b.Reset()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, r.publisher.Publish(ctx, msg)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.config.MaxAttempts)),
	)
	if err != nil {
		r.failed.Add(1)
		log.Error().
			Err(err).
			Str("subject", msg.Subject).
			Str("event_id", msg.ID).
			Msg("failed to relay event")
		return
	}
	r.published.Add(1)
}

// Stats reports relay counters
type Stats struct {
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
	Failed    int64 `json:"failed"`
	Queued    int   `json:"queued"`
}

func (r *Relay) Stats() Stats {
	return Stats{
		Published: r.published.Load(),
		Dropped:   r.dropped.Load(),
		Failed:    r.failed.Load(),
		Queued:    len(r.queue),
	}
}
