// Package kafka implements the message broker interface for Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tarancss/rpay/lib/msg"
)

// TopicPrefix is prepended to the network name to get the topic of its events.
const TopicPrefix = "rpay."

// Kafka publishes events with a single writer and consumes them with one reader per network.
type Kafka struct {
	brokers []string
	w       *kafka.Writer

	mu      sync.Mutex
	readers []*kafka.Reader
	cancel  context.CancelFunc
	ctx     context.Context
}

// New returns a Kafka broker for the comma separated list of broker addresses.
func New(brokers string) (*Kafka, error) {
	bs := strings.Split(brokers, ",")
	if len(bs) == 0 || bs[0] == "" {
		return nil, fmt.Errorf("no kafka brokers in %q", brokers)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Kafka{
		brokers: bs,
		w: &kafka.Writer{
			Addr:                   kafka.TCP(bs...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Setup checks the first broker is reachable.
func (k *Kafka) Setup(_ interface{}) error {
	conn, err := kafka.Dial("tcp", k.brokers[0])
	if err != nil {
		return fmt.Errorf("cannot reach kafka broker %s: %w", k.brokers[0], err)
	}

	log.Printf("Connected to %s", k.brokers[0])

	return conn.Close()
}

// Close stops all readers and flushes the writer.
func (k *Kafka) Close() error {
	k.cancel()

	k.mu.Lock()
	for _, r := range k.readers {
		if err := r.Close(); err != nil {
			log.Printf("Error closing kafka reader:%v", err)
		}
	}
	k.readers = nil
	k.mu.Unlock()

	return k.w.Close()
}

// Publish writes the event to the topic of network net, keyed by event id so events of a payment keep their order.
func (k *Kafka) Publish(net string, e msg.Event) error {
	m, err := encode(net, e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(k.ctx, 10*time.Second) //nolint:gomnd // 10 seconds timeout
	defer cancel()

	if err = k.w.WriteMessages(ctx, m); err != nil {
		log.Printf("[%s] Error sending event to message broker %v", net, err)
	}

	return err
}

// Events consumes the topic of network net. Offsets are committed once the consumer unlocks the mutex.
func (k *Kafka) Events(net string, mut *sync.Mutex) (<-chan msg.Event, <-chan error, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: k.brokers,
		GroupID: "rpay-" + net,
		Topic:   TopicPrefix + net,
	})

	k.mu.Lock()
	k.readers = append(k.readers, r)
	k.mu.Unlock()

	eves := make(chan msg.Event)
	errs := make(chan error)

	go func() {
		defer close(eves)
		defer close(errs)

		for {
			m, err := r.FetchMessage(k.ctx)
			if err != nil {
				if k.ctx.Err() == nil {
					log.Printf("[%s] Error fetching kafka message:%v", net, err)
				}

				return
			}

			e, err := decode(m)
			if err != nil {
				errs <- err
			} else {
				eves <- e

				mut.Lock() // wait for the consumer to finish processing the event
			}

			if err = r.CommitMessages(k.ctx, m); err != nil {
				errs <- err
			}
		}
	}()

	return eves, errs, nil
}

func encode(net string, e msg.Event) (kafka.Message, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Topic: TopicPrefix + net,
		Key:   []byte(e.ID),
		Value: b,
		Time:  e.TS,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(e.Type)},
		},
	}, nil
}

func decode(m kafka.Message) (e msg.Event, err error) {
	if err = json.Unmarshal(m.Value, &e); err != nil {
		return e, fmt.Errorf("cannot decode event at offset %d: %w", m.Offset, err)
	}

	return e, nil
}

// Compile-time check: ensure Kafka implements msg.Broker.
var _ msg.Broker = (*Kafka)(nil)
