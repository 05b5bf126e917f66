package telemetry

import (
	"context"
	"log"
	"time"
)

// EventEnvelope wraps domain events published for downstream consumers such as
// the notification service.
type EventEnvelope struct {
	SchemaVersion int    `json:"schema_version"`
	EventType     string `json:"event_type"`
	OccurredAt    string `json:"occurred_at"`
	Service       string `json:"service"`
	RequestID     string `json:"request_id,omitempty"`
	Payload       any    `json:"payload"`
}

// MessageSentPayload describes a stored message. ConversationID is the peer id
// for direct messages and the group id for group messages.
type MessageSentPayload struct {
	Kind           string `json:"kind"`
	ConversationID int    `json:"conversation_id"`
	MessageID      int    `json:"message_id"`
	SenderID       int    `json:"sender_id"`
}

// EventEmitter publishes message lifecycle events.
type EventEmitter struct {
	publisher Publisher
	service   string
}

func NewEventEmitter(publisher Publisher, service string) *EventEmitter {
	return &EventEmitter{publisher: publisher, service: service}
}

// EmitMessageSent publishes a messaging.<kind>.sent event. Publish failures are
// logged, not surfaced; message delivery does not depend on the broker.
func (e *EventEmitter) EmitMessageSent(ctx context.Context, kind string, conversationID, messageID, senderID int, requestID string) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := EventEnvelope{
		SchemaVersion: 1,
		EventType:     "message_sent",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		RequestID:     requestID,
		Payload: MessageSentPayload{
			Kind:           kind,
			ConversationID: conversationID,
			MessageID:      messageID,
			SenderID:       senderID,
		},
	}

	if err := e.publisher.Publish(ctx, "messaging."+kind+".sent", envelope); err != nil {
		log.Printf("event publish failed: %v", err)
	}
}
