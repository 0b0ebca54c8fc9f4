// Package main: demo of the payment core on a simulated network.
//
// It registers two accounts, funds one of them, makes a payment, schedules a recurring payment, sweeps it once and
// prints the resulting balances and history.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tarancss/rpay/lib/block/sim"
	"github.com/tarancss/rpay/lib/config"
	"github.com/tarancss/rpay/lib/keys"
	"github.com/tarancss/rpay/payment"
)

func main() {
	ctx := context.Background()

	net := sim.New(18) //nolint:gomnd // ether decimals

	parser, err := keys.NewParserFromSeed(config.SeedDefault)
	if err != nil {
		log.Fatal(err)
	}

	sys := payment.New(net, parser, payment.Options{Network: "sim"})

	for id, cred := range map[string]string{"alice": "hd:0/0/1", "bob": "hd:0/0/2"} {
		if err = sys.Register(ctx, id, cred); err != nil {
			log.Fatal(err)
		}
	}

	alice, err := sys.Ledger.Address("alice")
	if err != nil {
		log.Fatal(err)
	}

	net.Fund(alice, decimal.NewFromInt(100).Shift(net.Decimals()).BigInt()) //nolint:gomnd // demo funds

	if _, err = sys.SyncBalance(ctx, "alice"); err != nil {
		log.Fatal(err)
	}

	p, err := sys.Pay(ctx, "alice", "bob", decimal.RequireFromString("12.5"), "lunch")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("paid %s from %s to %s in %s\n", p.Amount, p.From, p.To, p.Hash)

	now := time.Now()

	r, err := sys.AddRecurring("alice", "bob", decimal.NewFromInt(10), "rent", 24*time.Hour) //nolint:gomnd // demo
	if err != nil {
		log.Fatal(err)
	}

	rep, err := sys.Sweep(ctx, now.Add(25*time.Hour)) //nolint:gomnd // a day later
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("swept %d recurring payments, %d failed, %s next due %s\n", len(rep.Executed), len(rep.Failures), r.ID,
		sys.Recurring()[0].NextDue.Format(time.RFC3339))

	for _, id := range sys.Accounts() {
		bal, _ := sys.BalanceOf(id)
		fmt.Printf("%s balance %s\n", id, bal)
	}

	for _, h := range sys.History("alice") {
		fmt.Printf("%s %s -> %s %s %q\n", h.Timestamp.Format(time.RFC3339), h.From, h.To, h.Amount, h.Message)
	}
}
