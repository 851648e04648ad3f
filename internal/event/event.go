// Package event pushes ledger change notifications to connected WebSocket
// clients, grouped by workspace.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type represents the kind of change an event describes.
type Type string

const (
	TypeCreated Type = "created"
	TypeUpdated Type = "updated"
	TypeDeleted Type = "deleted"
	TypePosted  Type = "posted"
	TypeSkipped Type = "skipped"
)

// Entity represents the entity an event is about.
type Entity string

const (
	EntityTransaction Entity = "transaction"
	EntityAccount     Entity = "account"
	EntitySchedule    Entity = "schedule"
)

// Event is one message sent to clients.
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"` // Combined, e.g. "transaction.created"
	Entity    Entity      `json:"entity"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// New creates an event with the given type, entity, and payload
func New(t Type, entity Entity, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entity, t),
		Entity:    entity,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionCreated creates a transaction.created event
func TransactionCreated(payload interface{}) Event {
	return New(TypeCreated, EntityTransaction, payload)
}

// TransactionUpdated creates a transaction.updated event
func TransactionUpdated(payload interface{}) Event {
	return New(TypeUpdated, EntityTransaction, payload)
}

// TransactionDeleted creates a transaction.deleted event
func TransactionDeleted(payload interface{}) Event {
	return New(TypeDeleted, EntityTransaction, payload)
}

// AccountUpdated creates an account.updated event
func AccountUpdated(payload interface{}) Event {
	return New(TypeUpdated, EntityAccount, payload)
}

// AccountDeleted creates an account.deleted event
func AccountDeleted(payload interface{}) Event {
	return New(TypeDeleted, EntityAccount, payload)
}

// SchedulePosted creates a schedule.posted event
func SchedulePosted(payload interface{}) Event {
	return New(TypePosted, EntitySchedule, payload)
}

// ScheduleSkipped creates a schedule.skipped event
func ScheduleSkipped(payload interface{}) Event {
	return New(TypeSkipped, EntitySchedule, payload)
}
