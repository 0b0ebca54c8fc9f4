// Package msg defines the interface for different message brokers.
package msg

import (
	"sync"
	"time"
)

// Types of payment events.
const (
	AccountRegistered   = "account.registered"
	PaymentCompleted    = "payment.completed"
	PaymentFailed       = "payment.failed"
	RecurringRegistered = "recurring.registered"
)

// Broker types.
const (
	AMQP  = "amqp"
	KAFKA = "kafka"
)

// Event defines the message published every time the payment system changes state.
type Event struct {
	Type    string    `json:"type"`
	ID      string    `json:"id"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
	Amount  string    `json:"amount,omitempty"`
	Message string    `json:"message,omitempty"`
	Hash    string    `json:"hash,omitempty"`
	Error   string    `json:"error,omitempty"`
	TS      time.Time `json:"ts"`
}

// Key returns the routing key of the event for network net.
func (e Event) Key(net string) string {
	return net + "." + e.Type + "." + e.ID
}

// Broker publishes and consumes payment events.
//
// Events consumes the events of network net. The mutex is locked by the broker after handing over an event and the
// event is only acknowledged once the consumer unlocks it.
type Broker interface {
	Setup(interface{}) error
	Close() error

	Publish(net string, e Event) error
	Events(net string, mut *sync.Mutex) (<-chan Event, <-chan error, error)
}
