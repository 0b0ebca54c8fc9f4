// Package broker opens the message broker configured for the service.
package broker

import (
	"fmt"
	"log"
	"time"

	"github.com/tarancss/rpay/lib/msg"
	"github.com/tarancss/rpay/lib/msg/amqp"
	"github.com/tarancss/rpay/lib/msg/kafka"
)

// Retry is the time waited before a second connection attempt, brokers started alongside the service are often not
// ready yet.
var Retry = 10 * time.Second

// New connects to and sets up a broker of type mbType. An empty type means no broker and returns nil.
func New(mbType, conn string) (mb msg.Broker, err error) {
	switch mbType {
	case "":
		return nil, nil
	case msg.AMQP:
		var a *amqp.Amqp
		if a, err = amqp.New(conn); err != nil {
			log.Printf("Broker not ready, retrying in %v: %v", Retry, err)
			time.Sleep(Retry)

			if a, err = amqp.New(conn); err != nil {
				return nil, err
			}
		}

		mb = a
	case msg.KAFKA:
		if mb, err = kafka.New(conn); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown message broker type %q", mbType)
	}

	if err = mb.Setup(nil); err != nil {
		mb.Close()

		return nil, err
	}

	return mb, nil
}
