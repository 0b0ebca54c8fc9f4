// Package main: reconciler service.
//
// The reconciler periodically checks the payments recorded in the database of the wallet service against the
// configured network and reports the ones that may have diverged. It shares the sweep schedule of the wallet.
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

	"github.com/tarancss/rpay/lib/block"
	"github.com/tarancss/rpay/lib/config"
	"github.com/tarancss/rpay/lib/metrics"
	"github.com/tarancss/rpay/lib/store/db"
	"github.com/tarancss/rpay/reconcile"
)

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json file")
	monitor := flag.Bool("m", false, "flag to monitor the server with Prometheus at http://localhost:9090")
	once := flag.Bool("once", false, "flag to run a single reconciliation and exit")
	flag.Parse()

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	log.Printf("Configuration: db %s, network %s, grace %v", conf.DBType, conf.Network, time.Duration(conf.Grace))

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

	// load Prometheus monitor
	m := metrics.New(nil)

	if *monitor {
		go func() {
			log.Println("Serving metrics API")

			h := http.NewServeMux()
			h.Handle("/metrics", promhttp.Handler())

			if err := http.ListenAndServe(":9101", h); err != nil { //nolint:gosec // metrics only
				log.Printf("Metrics API: %v", err)
			}
		}()
	}

	r := reconcile.New(conf.Network, dbConn, chain, time.Duration(conf.Grace), time.Duration(conf.Timeout), m)

	run := func() {
		if _, err := r.Run(context.Background()); err != nil {
			log.Printf("[%s] Reconcile: %v", conf.Network, err)
		}
	}

	if *once {
		run()

		return
	}

	c := cron.New()
	if _, err = c.AddFunc(conf.SweepSchedule, run); err != nil {
		panic(err)
	}

	c.Start()

	// capture CTRL+C or docker's SIGTERM for gracious exit
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
	<-sigchan
	log.Println("Program killed !")

	// wait for a running reconciliation
	<-c.Stop().Done()
}
