package messaging

import (
	"context"
	"time"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Publisher defines the interface for publishing record events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Event describes a change to a stored record.
type Event struct {
	Type        string    `json:"type"`
	Resource    string    `json:"resource"`
	ID          string    `json:"id"`
	LabNumber   string    `json:"labNumber,omitempty"`
	PatientName string    `json:"patientName,omitempty"`
	At          time.Time `json:"at"`
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
