package wallet

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
	"github.com/unrolled/secure"
)

const timeout = 15

// Router returns the handler of the RESTful API.
func (w *Wallet) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", w.homeHandler)
	r.HandleFunc("/networks", w.networksHandler).Methods("GET")              // available networks
	r.HandleFunc("/accounts", w.registerHandler).Methods("POST")             // register an account
	r.HandleFunc("/accounts", w.accountsHandler).Methods("GET")              // list accounts
	r.HandleFunc("/accounts/{id}", w.balanceHandler).Methods("GET")          // account balance
	r.HandleFunc("/accounts/{id}/deposit", w.depositHandler).Methods("POST") // local top-up
	r.HandleFunc("/accounts/{id}/sync", w.syncHandler).Methods("POST")       // balance from the network
	r.HandleFunc("/accounts/{id}/history", w.historyHandler).Methods("GET")  // payments of the account
	r.HandleFunc("/payments", w.payHandler).Methods("POST")                  // one-off payment
	r.HandleFunc("/recurring", w.addRecurringHandler).Methods("POST")        // schedule a recurring payment
	r.HandleFunc("/recurring", w.recurringHandler).Methods("GET")            // list recurring payments
	r.HandleFunc("/sweep", w.sweepHandler).Methods("POST")                   // execute due payments
	r.MethodNotAllowedHandler = http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		reply(rw, r, nil, ErrBadMethod, http.StatusOK)
	})

	h := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
	}).Handler(r)

	if w.rate > 0 {
		h = httprate.Limit(w.rate, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(rw http.ResponseWriter, r *http.Request) {
				reply(rw, r, nil, ErrTooManyRequests, http.StatusOK)
			}),
		)(h)
	}

	return h
}

// Init sets up and starts the http/https server to service the RESTful API for a wallet service. If sslPort, ssCert
// and sslKey are informed, it will start an https (TLS) server on the specified endpoint. It returns once the servers
// are stopped.
func (w *Wallet) Init(endpoint, port, sslPort, sslCert, sslKey string) string {
	var err, errTLS error

	h := w.Router()

	// start http server
	if port != "" {
		w.s = &http.Server{
			Handler:      h,
			Addr:         endpoint + ":" + port,
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func() {
			if e := w.s.ListenAndServe(); !errors.Is(e, http.ErrServerClosed) {
				err = e
			}
		}()

		log.Printf("Listening to API http requests on %s:%s", endpoint, port)
	}
	// start https server
	if sslPort != "" && sslCert != "" && sslKey != "" {
		w.ss = &http.Server{
			Handler:      h,
			Addr:         endpoint + ":" + sslPort,
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func() {
			if e := w.ss.ListenAndServeTLS(sslCert, sslKey); !errors.Is(e, http.ErrServerClosed) {
				errTLS = e
			}
		}()

		log.Printf("Listening to API https requests on %s:%s", endpoint, sslPort)
	}
	// wait for servers to be shutdown
	<-w.sc

	return fmt.Sprintf("shutdown http server:%v, https server:%v", err, errTLS)
}
