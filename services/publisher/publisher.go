package publisher

import "time"

// Event actions published on card writes
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// CardEvent is the message published whenever the importer creates or
// updates a card. Consumers (feed builders, cache invalidators) live outside
// this repository.
type CardEvent struct {
	Action    string    `json:"action"`
	CardID    string    `json:"card_id"`
	Slug      string    `json:"slug"`
	Source    string    `json:"source"`
	Changed   []string  `json:"changed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message to a stream
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
