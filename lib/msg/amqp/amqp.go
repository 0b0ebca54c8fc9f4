// Package amqp implements the message broker interface for AMQP compliant brokers (ie RabbitMQ)
package amqp

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/streadway/amqp"

	"github.com/tarancss/rpay/lib/msg"
)

// Exchange is the topic exchange where payment events are published.
const Exchange = "pe"

// Amqp implements a connection to a broker and a channel for reuse.
type Amqp struct {
	conn *amqp.Connection
	mu   sync.Mutex
	ch   *amqp.Channel
}

// New instantiates a new amqp broker.
func New(uri string) (*Amqp, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, err
	}

	log.Printf("Connected to %s", uri)

	return &Amqp{conn: conn}, nil
}

// Setup declares the payment events exchange.
func (r *Amqp) Setup(_ interface{}) error {
	// obtain a one-use channel
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()

	return channel.ExchangeDeclare(Exchange, amqp.ExchangeTopic, true, false, false, false, nil)
}

// Close terminates gracefully the connection to the AMQP message broker.
func (r *Amqp) Close() error {
	r.mu.Lock()
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			log.Printf("Error closing amqp.Channel:%v", err)
		}

		r.ch = nil
	}
	r.mu.Unlock()

	return r.conn.Close()
}

// channel returns the reusable channel, opening it if not present.
func (r *Amqp) channel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch == nil {
		ch, err := r.conn.Channel()
		if err != nil {
			return nil, err
		}

		r.ch = ch
	}

	return r.ch, nil
}

// Publish sends the event to the "pe" exchange with routing key <net>.<type>.<id>.
func (r *Amqp) Publish(net string, e msg.Event) error {
	jsonDoc, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ch, err := r.channel()
	if err != nil {
		return err
	}

	m := amqp.Publishing{
		Headers:     amqp.Table{"x-event-name": net + "." + e.ID},
		Body:        jsonDoc,
		ContentType: "application/json",
		Timestamp:   e.TS,
	}

	if err = ch.Publish(Exchange, e.Key(net), false, false, m); err != nil {
		log.Printf("[%s] Error sending event to message broker %v", net, err)
	}

	return err
}

// Events consumes the "pe" exchange for the specified network pushing events to the returned channel. The message
// consumed is only acknowledged when the mutex is unlocked by the consumer.
func (r *Amqp) Events(net string, mut *sync.Mutex) (<-chan msg.Event, <-chan error, error) {
	ch, err := r.channel()
	if err != nil {
		return nil, nil, err
	}

	queue := Exchange + net

	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, nil, err
	}

	if err = ch.QueueBind(queue, net+".#", Exchange, false, nil); err != nil {
		return nil, nil, err
	}

	msgs, err := ch.Consume(queue, "rpay-"+net, false, false, false, false, nil)
	if err != nil {
		return nil, nil, err
	}

	eves := make(chan msg.Event)
	errs := make(chan error)

	go func() {
		defer close(eves)
		defer close(errs)

		for m := range msgs {
			var e msg.Event
			if err := json.Unmarshal(m.Body, &e); err != nil {
				errs <- err

				_ = m.Nack(false, false)

				continue
			}

			eves <- e

			mut.Lock() // wait for the consumer to finish processing the event

			_ = m.Ack(false)
		}
	}()

	return eves, errs, nil
}

// Compile-time check: ensure Amqp implements msg.Broker.
var _ msg.Broker = (*Amqp)(nil)
