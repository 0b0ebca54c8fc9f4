// Package rpay and its sub-packages implement a payments client on top of a blockchain or similar network.
/*
rpay keeps a local bookkeeping of registered accounts, records every payment it makes and executes recurring payments
when they are due. The network is the source of truth: a payment is recorded locally only once the network accepted
its transfer.

Payment core

The payment core (package payment) holds the account ledger, the payment log, the recurring scheduler and the executor
that submits transfers to a network (package lib/block). Credentials are raw secret keys or HD wallet paths derived from
a configured seed (package lib/keys). Everything the core records can be written through to a database (package
lib/store) and announced to a message broker (package lib/msg).

rpay provides you with two microservices and a demo:

1) a wallet microservice (package wallet, cmd/wallet) that implements a RESTful API to register accounts, send
 payments, schedule recurring payments and sweep the due ones. It also sweeps them on a cron schedule. Several
 instances can share a database, a redis lock (package lib/lock) keeps them from sweeping at the same time.

2) a reconciler microservice (package reconcile, cmd/reconciler) that periodically checks the recorded payments against
 the network and reports the ones missing or reverted there and the submissions whose outcome was never recorded.

3) a demo (cmd/demo) running the payment core on a simulated network.

The microservices can also be monitored via a Prometheus API by setting the flag "-m" at startup.
*/
package rpay
