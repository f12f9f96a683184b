// Package audit records who did what to which registration record. Events
// are emitted from domain logic onto a channel and persisted by a background
// worker so the request path never blocks on the trail.
package audit

import (
	"context"
	"time"
)

// Action names an auditable operation.
type Action string

const (
	ActionUserRegistered       Action = "user_registered"
	ActionUserLoggedIn         Action = "user_logged_in"
	ActionUserLoggedOut        Action = "user_logged_out"
	ActionEmailVerified        Action = "email_verified"
	ActionPasswordReset        Action = "password_reset"
	ActionApplicationSubmitted Action = "application_submitted"
	ActionApplicationApproved  Action = "application_approved"
	ActionApplicationRejected  Action = "application_rejected"
	ActionCertificateVerified  Action = "certificate_verified"
	ActionDocumentUploaded     Action = "document_uploaded"
)

// Event captures a single auditable action.
type Event struct {
	Timestamp time.Time
	ActorID   string
	Action    Action
	// Subject identifies the record acted on, usually an application ID or
	// certificate number.
	Subject   string
	Detail    string
	RequestID string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actorID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher hands events to the background worker. Publishing never blocks:
// when the inbox is full the event is dropped and counted, the request path
// carries on.
type Publisher struct {
	inbox   chan Event
	dropped func()
}

// NewPublisher creates a publisher with the given buffer size. onDrop is
// invoked for every event discarded due to a full inbox; nil is allowed.
func NewPublisher(buffer int, onDrop func()) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:   make(chan Event, buffer),
		dropped: onDrop,
	}
}

// Publish enqueues the event, stamping the timestamp if unset.
func (p *Publisher) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		if p.dropped != nil {
			p.dropped()
		}
	}
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
