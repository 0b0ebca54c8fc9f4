package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/tarancss/rpay/payment"
)

// AccountReq registers an account. Credential is a hex encoded private key or an HD path "hd:<wallet>/<change>/<id>".
type AccountReq struct {
	ID         string `json:"id" validate:"required,max=64"`
	Credential string `json:"credential" validate:"required"`
}

// AmountReq deposits an amount to an account.
type AmountReq struct {
	Amount string `json:"amount" validate:"required,numeric"`
}

// PaymentReq sends a one-off payment. To is a registered account or a public address.
type PaymentReq struct {
	From    string `json:"from" validate:"required"`
	To      string `json:"to" validate:"required"`
	Amount  string `json:"amount" validate:"required,numeric"`
	Message string `json:"message" validate:"max=256"`
}

// RecurringReq schedules a recurring payment. Interval is a Go duration (ie. "24h").
type RecurringReq struct {
	PaymentReq
	Interval string `json:"interval" validate:"required"`
}

// Account is the view of an account replied to clients.
type Account struct {
	ID      string          `json:"id"`
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}

// Errors returned to client requests.
var (
	ErrBadMethod       = errors.New("bad method in request")
	ErrBadRequest      = errors.New("bad request")
	ErrTooManyRequests = errors.New("too many requests")
)

// Response defines the data structure returned to the client making the http request.
type Response struct {
	Body  string `json:"body"`
	Error string `json:"error,omitempty"`
}

// status returns the http status code of an error.
func status(err error) int {
	switch {
	case errors.Is(err, ErrBadMethod):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrBadRequest), errors.Is(err, payment.ErrInvalidID),
		errors.Is(err, payment.ErrInvalidCredential), errors.Is(err, payment.ErrInvalidKey),
		errors.Is(err, payment.ErrInvalidAmount), errors.Is(err, payment.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, payment.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, payment.ErrAlreadyExists), errors.Is(err, payment.ErrSweepInProgress):
		return http.StatusConflict
	case errors.Is(err, payment.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, payment.ErrTransactionFailed):
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// reply writes the response to the client: body marshalled into the response body on success, the error otherwise.
// Strings are replied as they are.
func reply(rw http.ResponseWriter, r *http.Request, body interface{}, err error, okStatus int) {
	var res Response

	code := okStatus

	if err != nil {
		res.Error = err.Error()
		code = status(err)
	}

	if err == nil && body != nil {
		if s, ok := body.(string); ok {
			res.Body = s
		} else {
			tmp, _ := json.Marshal(body)
			res.Body = string(tmp)
		}
	}
	// log request
	log.Printf("httpreq from %v %s %s status:%d err:%v\n", r.RemoteAddr, r.Method, r.RequestURI, code, err)
	// reply
	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	rw.WriteHeader(code)
	_ = json.NewEncoder(rw).Encode(&res)
}

// decode reads the JSON request body into req and validates it.
func (w *Wallet) decode(r *http.Request, req interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}

	if err := w.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed on %s", ErrBadRequest, verrs[0].Field(), verrs[0].Tag())
		}

		return fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}

	return nil
}

func amount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return d, fmt.Errorf("%w: amount %q", ErrBadRequest, s)
	}

	return d, nil
}

func (w *Wallet) account(id string) (acc Account, err error) {
	acc.ID = id

	if acc.Address, err = w.sys.Ledger.Address(id); err != nil {
		return
	}

	acc.Balance, err = w.sys.BalanceOf(id)

	return
}

// homeHandler just replies a welcome message to the client.
func (w *Wallet) homeHandler(rw http.ResponseWriter, r *http.Request) {
	reply(rw, r, "Hello, this is your recurring payments wallet!", nil, http.StatusOK)
}

// networksHandler replies the networks available to the wallet, the one payments are sent to first. The networks
// can be filtered with ?net=<network>.
func (w *Wallet) networksHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	pl := []string{}

	defer func() { reply(rw, r, pl, err, http.StatusOK) }()

	if err = r.ParseForm(); err != nil {
		err = fmt.Errorf("%w: %s", ErrBadRequest, err.Error())

		return
	}

	nets := r.Form["net"]
	active := w.sys.Network()

	if len(nets) == 0 || slices.Contains(nets, active) {
		pl = append(pl, active)
	}

	for _, net := range w.nets {
		if net != active && (len(nets) == 0 || slices.Contains(nets, net)) {
			pl = append(pl, net)
		}
	}
}

// registerHandler registers an account.
func (w *Wallet) registerHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var req AccountReq

	var acc Account

	defer func() { reply(rw, r, acc, err, http.StatusCreated) }()

	if err = w.decode(r, &req); err != nil {
		return
	}

	if err = w.sys.Register(r.Context(), req.ID, req.Credential); err != nil {
		return
	}

	acc, err = w.account(req.ID)
}

// accountsHandler replies the identifiers of the registered accounts.
func (w *Wallet) accountsHandler(rw http.ResponseWriter, r *http.Request) {
	reply(rw, r, w.sys.Accounts(), nil, http.StatusOK)
}

// balanceHandler replies an account with its cached balance.
func (w *Wallet) balanceHandler(rw http.ResponseWriter, r *http.Request) {
	acc, err := w.account(mux.Vars(r)["id"])
	reply(rw, r, acc, err, http.StatusOK)
}

// depositHandler credits an amount to an account.
func (w *Wallet) depositHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var req AmountReq

	var acc Account

	defer func() { reply(rw, r, acc, err, http.StatusOK) }()

	if err = w.decode(r, &req); err != nil {
		return
	}

	var amt decimal.Decimal
	if amt, err = amount(req.Amount); err != nil {
		return
	}

	id := mux.Vars(r)["id"]
	if _, err = w.sys.Deposit(r.Context(), id, amt); err != nil {
		return
	}

	acc, err = w.account(id)
}

// syncHandler replaces the balance of an account with its balance on the network.
func (w *Wallet) syncHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var acc Account

	defer func() { reply(rw, r, acc, err, http.StatusOK) }()

	id := mux.Vars(r)["id"]
	if _, err = w.sys.SyncBalance(r.Context(), id); err != nil {
		return
	}

	acc, err = w.account(id)
}

// historyHandler replies the payments sent or received by an account or address, oldest first.
func (w *Wallet) historyHandler(rw http.ResponseWriter, r *http.Request) {
	reply(rw, r, w.sys.History(mux.Vars(r)["id"]), nil, http.StatusOK)
}

// payHandler sends a one-off payment and replies it once confirmed by the network.
func (w *Wallet) payHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var req PaymentReq

	var p *payment.Payment

	defer func() { reply(rw, r, p, err, http.StatusCreated) }()

	if err = w.decode(r, &req); err != nil {
		return
	}

	var amt decimal.Decimal
	if amt, err = amount(req.Amount); err != nil {
		return
	}

	var done payment.Payment
	if done, err = w.sys.Pay(r.Context(), req.From, req.To, amt, req.Message); err == nil {
		p = &done
	}
}

// addRecurringHandler schedules a recurring payment.
func (w *Wallet) addRecurringHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var req RecurringReq

	var rec *payment.Recurring

	defer func() { reply(rw, r, rec, err, http.StatusCreated) }()

	if err = w.decode(r, &req); err != nil {
		return
	}

	var amt decimal.Decimal
	if amt, err = amount(req.Amount); err != nil {
		return
	}

	var interval time.Duration
	if interval, err = time.ParseDuration(req.Interval); err != nil {
		err = fmt.Errorf("%w: interval %q", ErrBadRequest, req.Interval)

		return
	}

	var added payment.Recurring
	if added, err = w.sys.AddRecurring(req.From, req.To, amt, req.Message, interval); err == nil {
		rec = &added
	}
}

// recurringHandler replies the recurring payments in registration order.
func (w *Wallet) recurringHandler(rw http.ResponseWriter, r *http.Request) {
	reply(rw, r, w.sys.Recurring(), nil, http.StatusOK)
}

// sweepHandler executes the recurring payments due now, or at the RFC3339 time given in ?at=. Failed payments do
// not fail the request: they are listed in the report and their errors joined in the response error.
func (w *Wallet) sweepHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var rep *payment.SweepReport

	defer func() {
		if rep != nil && err != nil {
			var res Response

			tmp, _ := json.Marshal(rep)
			res.Body, res.Error = string(tmp), err.Error()

			log.Printf("httpreq from %v %s %s report:%+v err:%v\n", r.RemoteAddr, r.Method, r.RequestURI, rep, err)
			rw.Header().Set("Content-Type", "application/json;charset=utf8")
			rw.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(rw).Encode(&res)

			return
		}

		reply(rw, r, rep, err, http.StatusOK)
	}()

	now := time.Now()

	if at := r.URL.Query().Get("at"); at != "" {
		if now, err = time.Parse(time.RFC3339, at); err != nil {
			err = fmt.Errorf("%w: at %q", ErrBadRequest, at)

			return
		}
	}

	var done payment.SweepReport
	if done, err = w.sys.Sweep(r.Context(), now); errors.Is(err, payment.ErrSweepInProgress) {
		return
	} else if err != nil && len(done.Failures) == 0 {
		return
	}

	rep = &done
}
