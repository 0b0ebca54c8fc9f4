// Package wallet implements the wallet microservice.
//
// This microservice implements a RESTful API for clients to register accounts, send one-off payments, schedule
// recurring payments and sweep the due ones on the network the payment core is connected to.
package wallet

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tarancss/rpay/lib/msg"
	"github.com/tarancss/rpay/payment"
)

// Wallet contains the data necessary to deliver the service.
type Wallet struct {
	sys      *payment.System
	nets     []string // networks configured, sys is connected to one of them
	mb       msg.Broker
	rate     int // requests per minute and client, no limit if zero
	validate *validator.Validate
	s        *http.Server  // http server
	ss       *http.Server  // https server
	sc       chan struct{} // http server channel used for graceful shutdowns
}

// New returns a pointer to a new Wallet service serving sys. mb may be nil.
func New(sys *payment.System, nets []string, mb msg.Broker, rate int) *Wallet {
	return &Wallet{
		sys:      sys,
		nets:     nets,
		mb:       mb,
		rate:     rate,
		validate: validator.New(),
		sc:       make(chan struct{}),
	}
}

// Stop shuts down the http servers implementing the RESTful API. Closing the broker, the store and the network
// clients is left to the owner of them.
func (w *Wallet) Stop(ctx context.Context) {
	if w.s != nil {
		if err := w.s.Shutdown(ctx); err != nil {
			log.Printf("Error in http server shutdown:%v", err)
		}
	}

	if w.ss != nil {
		if err := w.ss.Shutdown(ctx); err != nil {
			log.Printf("Error in https server shutdown:%v", err)
		}
	}

	close(w.sc) // close server channels to indicate shutdowns have finished
}

// ManageEvents consumes the payment events of the network of the service, published by this or any other instance,
// and logs them. It returns once the broker stops delivering events.
func (w *Wallet) ManageEvents() error {
	if w.mb == nil {
		return nil
	}

	net := w.sys.Network()
	mut := new(sync.Mutex)
	mut.Lock()

	eveCh, errCh, err := w.mb.Events(net, mut)
	if err != nil {
		return err
	}

	// launch error channel reader
	go func() {
		for e := range errCh {
			log.Printf("[%s] Received error %+v", net, e)
		}
	}()

	log.Printf("[%s] Start listening to payment event channel", net)

	for eve := range eveCh {
		log.Printf("[%s] Received event %+v", net, eve)
		mut.Unlock()
	}

	log.Printf("[%s] Stop listening to payment event channel", net)

	return nil
}
