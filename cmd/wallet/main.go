// Package main: wallet service.
//
// The wallet serves the RESTful API of the payment core connected to the configured network and sweeps the due
// recurring payments on the configured schedule. Several instances can share the same database and sweep safely if a
// redis server is configured.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tarancss/rpay/lib/block"
	"github.com/tarancss/rpay/lib/config"
	"github.com/tarancss/rpay/lib/keys"
	"github.com/tarancss/rpay/lib/lock"
	lockmem "github.com/tarancss/rpay/lib/lock/memory"
	lockredis "github.com/tarancss/rpay/lib/lock/redis"
	"github.com/tarancss/rpay/lib/metrics"
	"github.com/tarancss/rpay/lib/msg/broker"
	"github.com/tarancss/rpay/lib/store/db"
	"github.com/tarancss/rpay/payment"
	"github.com/tarancss/rpay/wallet"
)

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json file")
	monitor := flag.Bool("m", false, "flag to monitor the server with Prometheus at http://localhost:9090")
	flag.Parse()

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	log.Printf("Configuration: db %s, broker %s, network %s, sweeps %q", conf.DBType, conf.MbType, conf.Network,
		conf.SweepSchedule)

	// connect to database
	dbConn, err := db.New(conf.DBType, conf.DBConn)
	if err != nil {
		panic(err)
	}

	defer func() {
		if err := db.Close(dbConn); err != nil {
			log.Printf("Closing database: %v", err)
		}
	}()

	// load all blockchains
	blocks, err := block.Init(conf.Bc)
	if err != nil {
		panic(err)
	}
	defer block.End(blocks)

	chain, ok := blocks[conf.Network]
	if !ok {
		log.Fatalf("Network %s not configured", conf.Network)
	}

	log.Print("Blockchain clients loaded")

	// load Prometheus monitor
	m := metrics.New(nil)

	if *monitor {
		go func() {
			log.Println("Serving metrics API")

			h := http.NewServeMux()
			h.Handle("/metrics", promhttp.Handler())

			if err := http.ListenAndServe(":9100", h); err != nil { //nolint:gosec // metrics only
				log.Printf("Metrics API: %v", err)
			}
		}()
	}

	// load message broker
	mb, err := broker.New(conf.MbType, conf.MbConn)
	if err != nil {
		panic(err)
	}

	// load sweep lock
	var locker lock.Locker = lockmem.New()

	if conf.Redis != "" {
		r, err := lockredis.New(context.Background(), conf.Redis)
		if err != nil {
			panic(err)
		}
		defer r.Close()

		locker = r
	}

	// load HD wallet
	parser, err := keys.NewParserFromSeed(conf.Seed)
	if err != nil {
		panic(err)
	}

	// create and restore the payment core
	sys := payment.New(chain, parser, payment.Options{
		Network:        conf.Network,
		Timeout:        time.Duration(conf.Timeout),
		AllowOverwrite: conf.OverwriteAccounts,
		SweepFailFast:  conf.SweepFailFast,
		SweepLease:     time.Duration(conf.SweepLease),
		Store:          dbConn,
		Broker:         mb,
		Locker:         locker,
		Metrics:        m,
	})

	if err = sys.Restore(context.Background()); err != nil {
		panic(err)
	}

	// schedule sweeps
	c := cron.New()

	if _, err = c.AddFunc(conf.SweepSchedule, func() {
		if _, err := sys.Sweep(context.Background(), time.Now()); err != nil {
			log.Printf("[%s] Sweep: %v", conf.Network, err)
		}
	}); err != nil {
		panic(err)
	}

	c.Start()

	// create wallet service
	names := make([]string, 0, len(conf.Bc))
	for _, b := range conf.Bc {
		names = append(names, b.Name)
	}

	w := wallet.New(sys, names, mb, conf.RateLimit)

	g := new(errgroup.Group)

	// capture CTRL+C or docker's SIGTERM for gracious exit
	g.Go(func() error {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
		<-sigchan
		log.Println("Program killed !")
		// wait for a running sweep and then for the requests being served
		<-c.Stop().Done()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second) //nolint:gomnd // 15 seconds
		defer cancel()

		w.Stop(ctx)

		// closing the broker ends the event readers
		if mb != nil {
			errClose := mb.Close()
			log.Printf("Closing messageBroker: %v", errClose)
		}

		return nil
	})

	// manage payment events
	if mb != nil {
		g.Go(func() error {
			if err := w.ManageEvents(); err != nil {
				log.Printf("Error setting up broker readers for events:%v", err)
			}

			return nil
		})
	}

	// init RESTful API, wait for its return and log response
	g.Go(func() error {
		log.Printf("Wallet: %s\n", w.Init(conf.RestfulEndpoint, conf.Port, conf.SSLPort, conf.SSLCert, conf.SSLKey))

		return nil
	})

	_ = g.Wait()
}
