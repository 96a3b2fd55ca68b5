// Package events defines the draft event envelope and its payloads.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of draft event
type EventType string

const (
	EventTypeSnapshot            EventType = "Snapshot"
	EventTypeParticipantsChanged EventType = "ParticipantsChanged"
	EventTypeDraftStarted        EventType = "DraftStarted"
	EventTypeTurnChanged         EventType = "TurnChanged"
	EventTypeTimerTick           EventType = "TimerTick"
	EventTypePlayerDrafted       EventType = "PlayerDrafted"
	EventTypeDraftEnded          EventType = "DraftEnded"
	EventTypeError               EventType = "Error"
)

// DraftEvent is the envelope for every event sent to participants.
// Seq is the session version the event reflects; clients drop events whose
// Seq is lower than the last one applied. Ticks, presence and errors carry
// no version and use Seq 0.
type DraftEvent struct {
	ID        string          `json:"id"`
	LeagueID  string          `json:"league_id"`
	Type      EventType       `json:"type"`
	Seq       int64           `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New wraps payload in an envelope.
func New(leagueID uuid.UUID, eventType EventType, seq int64, at time.Time, payload any) (*DraftEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &DraftEvent{
		ID:        uuid.New().String(),
		LeagueID:  leagueID.String(),
		Type:      eventType,
		Seq:       seq,
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// Decode unmarshals the event data into the payload type for its Type.
func Decode(event *DraftEvent) (any, error) {
	var payload any
	switch event.Type {
	case EventTypeSnapshot:
		payload = &SnapshotPayload{}
	case EventTypeParticipantsChanged:
		payload = &ParticipantsChangedPayload{}
	case EventTypeDraftStarted:
		payload = &DraftStartedPayload{}
	case EventTypeTurnChanged:
		payload = &TurnChangedPayload{}
	case EventTypeTimerTick:
		payload = &TimerTickPayload{}
	case EventTypePlayerDrafted:
		payload = &PlayerDraftedPayload{}
	case EventTypeDraftEnded:
		payload = &DraftEndedPayload{}
	case EventTypeError:
		payload = &ErrorPayload{}
	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}

	if err := json.Unmarshal(event.Data, payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}
	return payload, nil
}

// Sink receives events after they are committed. Implementations must not
// block the caller.
type Sink interface {
	Broadcast(leagueID uuid.UUID, event *DraftEvent)
}

// Fanout delivers every event to each of its sinks in order.
type Fanout []Sink

func (f Fanout) Broadcast(leagueID uuid.UUID, event *DraftEvent) {
	for _, s := range f {
		if s != nil {
			s.Broadcast(leagueID, event)
		}
	}
}
