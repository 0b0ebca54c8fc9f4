//go:build integration

package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tarancss/rpay/lib/store"
)

// This test requires an available MongoDB server at localhost:27017.
var uri string = "mongodb://localhost:27017"

func TestMongo(t *testing.T) {
	ctx := context.Background()

	m, err := New(uri)
	if err != nil {
		t.Fatalf("err:%v", err)
	}

	m.db = "rpay_test"

	defer m.Close()
	defer m.Drop(ctx)

	now := time.Now().UTC().Truncate(time.Millisecond)

	if err = m.SaveAccount(ctx, store.Account{ID: "alice", Address: "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		Balance: decimal.RequireFromString("12.5"), UpdatedAt: now}); err != nil {
		t.Errorf("SaveAccount err:%v", err)
	}

	if err = m.SavePayment(ctx, store.Payment{ID: "p1", Seq: 1, From: "alice", To: "bob",
		Amount: decimal.RequireFromString("2.5"), Hash: "0x01", Timestamp: now}); err != nil {
		t.Errorf("SavePayment err:%v", err)
	}

	if err = m.SaveRecurring(ctx, store.Recurring{ID: "r1", Seq: 1, From: "alice", To: "bob",
		Amount: decimal.NewFromInt(5), Interval: 24 * time.Hour, NextDue: now}); err != nil {
		t.Errorf("SaveRecurring err:%v", err)
	}

	if err = m.SaveAttempt(ctx, store.Attempt{ID: "p1", From: "alice", To: "bob",
		Amount: decimal.RequireFromString("2.5"), State: store.CONFIRMED, CreatedAt: now}); err != nil {
		t.Errorf("SaveAttempt err:%v", err)
	}

	s, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load err:%v", err)
	}

	if len(s.Accounts) != 1 || !s.Accounts[0].Balance.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("unexpected accounts %+v", s.Accounts)
	}

	if len(s.Payments) != 1 || s.Payments[0].Hash != "0x01" {
		t.Errorf("unexpected payments %+v", s.Payments)
	}

	if len(s.Recurring) != 1 || s.Recurring[0].Interval != 24*time.Hour || !s.Recurring[0].NextDue.Equal(now) {
		t.Errorf("unexpected recurring %+v", s.Recurring)
	}

	if a, err := m.Attempts(ctx, store.PENDING); err != nil || len(a) != 0 {
		t.Errorf("unexpected pending attempts %+v err:%v", a, err)
	}
}
