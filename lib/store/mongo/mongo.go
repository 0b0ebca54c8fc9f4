// Package mongo implements the store interface for MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarancss/rpay/lib/store"
)

// Database and collection names.
const (
	Database   = "rpay"
	Accounts   = "accounts"
	Payments   = "payments"
	Recurrings = "recurring"
	Attempts   = "attempts"
)

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c  *mgo.Client
	db string
}

// MongoAccount implements a store account to MongoDB. Decimals are kept as strings to avoid losing precision.
type MongoAccount struct {
	ID         string    `bson:"_id"`
	Address    string    `bson:"address"`
	Credential string    `bson:"credential"`
	Balance    string    `bson:"balance"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

// MongoPayment implements a store payment to MongoDB.
type MongoPayment struct {
	ID        string    `bson:"_id"`
	Seq       int64     `bson:"seq"`
	From      string    `bson:"from"`
	To        string    `bson:"to"`
	Amount    string    `bson:"amount"`
	Message   string    `bson:"message,omitempty"`
	Hash      string    `bson:"hash"`
	Timestamp time.Time `bson:"ts"`
}

// MongoRecurring implements a store recurring payment to MongoDB. Interval is kept in nanoseconds.
type MongoRecurring struct {
	ID       string    `bson:"_id"`
	Seq      int64     `bson:"seq"`
	From     string    `bson:"from"`
	To       string    `bson:"to"`
	Amount   string    `bson:"amount"`
	Message  string    `bson:"message,omitempty"`
	Interval int64     `bson:"interval"`
	NextDue  time.Time `bson:"nextDue"`
}

// MongoAttempt implements a store attempt to MongoDB.
type MongoAttempt struct {
	ID        string    `bson:"_id"`
	From      string    `bson:"from"`
	To        string    `bson:"to"`
	Amount    string    `bson:"amount"`
	Message   string    `bson:"message,omitempty"`
	State     string    `bson:"state"`
	Hash      string    `bson:"hash,omitempty"`
	Error     string    `bson:"error,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// New returns a Mongo client connection to the specified MongoDB database uri.
func New(uri string) (*Mongo, error) {
	// get a client
	c, err := mgo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}
	// connect client
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	if err = c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	return &Mongo{c: c, db: Database}, nil
}

// Close will close a database connection. Must be called at termination time.
func (m *Mongo) Close() error {
	return m.c.Disconnect(context.Background())
}

// Drop deletes the database, used to clean up tests.
func (m *Mongo) Drop(ctx context.Context) error {
	return m.c.Database(m.db).Drop(ctx)
}

// upsert replaces the document with the given id or inserts it.
func (m *Mongo) upsert(ctx context.Context, col, id string, doc interface{}) error {
	if id == "" {
		return store.ErrNoID
	}

	_, err := m.c.Database(m.db).Collection(col).ReplaceOne(ctx, bson.M{"_id": id}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("could not save %s %s in db: %w", col, id, err)
	}

	return nil
}

// SaveAccount inserts or replaces an account.
func (m *Mongo) SaveAccount(ctx context.Context, a store.Account) error {
	return m.upsert(ctx, Accounts, a.ID, MongoAccount{
		ID: a.ID, Address: a.Address, Credential: a.Credential, Balance: a.Balance.String(), UpdatedAt: a.UpdatedAt,
	})
}

// SavePayment inserts or replaces a payment.
func (m *Mongo) SavePayment(ctx context.Context, p store.Payment) error {
	return m.upsert(ctx, Payments, p.ID, MongoPayment{
		ID: p.ID, Seq: p.Seq, From: p.From, To: p.To, Amount: p.Amount.String(), Message: p.Message, Hash: p.Hash,
		Timestamp: p.Timestamp,
	})
}

// SaveRecurring inserts or replaces a recurring payment.
func (m *Mongo) SaveRecurring(ctx context.Context, r store.Recurring) error {
	return m.upsert(ctx, Recurrings, r.ID, MongoRecurring{
		ID: r.ID, Seq: r.Seq, From: r.From, To: r.To, Amount: r.Amount.String(), Message: r.Message,
		Interval: int64(r.Interval), NextDue: r.NextDue,
	})
}

// SaveAttempt inserts or replaces an attempt.
func (m *Mongo) SaveAttempt(ctx context.Context, a store.Attempt) error {
	return m.upsert(ctx, Attempts, a.ID, MongoAttempt{
		ID: a.ID, From: a.From, To: a.To, Amount: a.Amount.String(), Message: a.Message, State: a.State,
		Hash: a.Hash, Error: a.Error, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	})
}

// Attempts returns the attempts in state, oldest first.
func (m *Mongo) Attempts(ctx context.Context, state string) ([]store.Attempt, error) {
	filter := bson.M{}
	if state != "" {
		filter["state"] = state
	}

	var docs []MongoAttempt
	if err := m.find(ctx, Attempts, filter, "createdAt", &docs); err != nil {
		return nil, err
	}

	r := make([]store.Attempt, 0, len(docs))

	for _, d := range docs {
		amt, err := decimal.NewFromString(d.Amount)
		if err != nil {
			return nil, fmt.Errorf("attempt %s: %w", d.ID, err)
		}

		r = append(r, store.Attempt{
			ID: d.ID, From: d.From, To: d.To, Amount: amt, Message: d.Message, State: d.State, Hash: d.Hash,
			Error: d.Error, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
		})
	}

	return r, nil
}

// Load returns everything saved.
func (m *Mongo) Load(ctx context.Context) (s store.Snapshot, err error) {
	var accs []MongoAccount
	if err = m.find(ctx, Accounts, bson.M{}, "_id", &accs); err != nil {
		return
	}

	for _, d := range accs {
		var bal decimal.Decimal
		if bal, err = decimal.NewFromString(d.Balance); err != nil {
			return s, fmt.Errorf("account %s: %w", d.ID, err)
		}

		s.Accounts = append(s.Accounts, store.Account{
			ID: d.ID, Address: d.Address, Credential: d.Credential, Balance: bal, UpdatedAt: d.UpdatedAt,
		})
	}

	var pays []MongoPayment
	if err = m.find(ctx, Payments, bson.M{}, "seq", &pays); err != nil {
		return
	}

	for _, d := range pays {
		var amt decimal.Decimal
		if amt, err = decimal.NewFromString(d.Amount); err != nil {
			return s, fmt.Errorf("payment %s: %w", d.ID, err)
		}

		s.Payments = append(s.Payments, store.Payment{
			ID: d.ID, Seq: d.Seq, From: d.From, To: d.To, Amount: amt, Message: d.Message, Hash: d.Hash,
			Timestamp: d.Timestamp,
		})
	}

	var recs []MongoRecurring
	if err = m.find(ctx, Recurrings, bson.M{}, "seq", &recs); err != nil {
		return
	}

	for _, d := range recs {
		var amt decimal.Decimal
		if amt, err = decimal.NewFromString(d.Amount); err != nil {
			return s, fmt.Errorf("recurring %s: %w", d.ID, err)
		}

		s.Recurring = append(s.Recurring, store.Recurring{
			ID: d.ID, Seq: d.Seq, From: d.From, To: d.To, Amount: amt, Message: d.Message,
			Interval: time.Duration(d.Interval), NextDue: d.NextDue,
		})
	}

	s.Attempts, err = m.Attempts(ctx, "")

	return s, err
}

// find decodes all the documents of col matching filter, sorted ascending by the sort key, into results.
func (m *Mongo) find(ctx context.Context, col string, filter bson.M, sort string, results interface{}) error {
	cur, err := m.c.Database(m.db).Collection(col).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: sort, Value: 1}}))
	if err != nil {
		return fmt.Errorf("error getting mongo DB %s: %w", col, err)
	}

	if err = cur.All(ctx, results); err != nil {
		return fmt.Errorf("error decoding mongo DB %s: %w", col, err)
	}

	return nil
}

// Compile-time check: ensure Mongo implements store.DB.
var _ store.DB = (*Mongo)(nil)
