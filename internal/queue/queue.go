package queue

import (
	"context"
	"time"
)

// RegistrationEvent is published after a registration commits, so downstream
// consumers (indexers, site sync) learn about new or re-observed documents.
type RegistrationEvent struct {
	Outcome  string    `json:"outcome"` // "created" or "found"
	V2       string    `json:"v2"`
	V3       string    `json:"v3"`
	V3Origin string    `json:"v3_origin"`
	AOP      string    `json:"aop,omitempty"`
	DOI      string    `json:"doi,omitempty"`
	At       time.Time `json:"at"`
}

type EventQueue interface {
	// PublishRegistration appends a registration outcome to the queue.
	// Publishing is best-effort; a failure never rolls back the
	// registration itself.
	PublishRegistration(ctx context.Context, ev *RegistrationEvent) error
	Close()
}

// Nop discards events; used when no brokers are configured.
type Nop struct{}

func NewNop() *Nop {
	return &Nop{}
}

func (*Nop) PublishRegistration(context.Context, *RegistrationEvent) error {
	return nil
}

func (*Nop) Close() {}
