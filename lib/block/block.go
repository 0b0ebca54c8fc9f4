// Package block defines the interface required for all blockchain or network connections.
package block

import (
	"context"
	"log"

	"github.com/tarancss/rpay/lib/block/ethereum"
	"github.com/tarancss/rpay/lib/block/sim"
	"github.com/tarancss/rpay/lib/block/types"
	"github.com/tarancss/rpay/lib/config"
)

// Network drivers.
const (
	ETHEREUM string = "ethereum"
	SIM      string = "sim"
)

// Chain is the network collaborator used by the payment core. It has been designed to be as much standard as
// possible, however, there may be specific blockchains or networks that would require different types or more
// methods. All the blocking calls honour the context deadline.
type Chain interface {
	// member-type methods
	Decimals() int32 // number of decimals of the native asset (18 for ether)
	// methods
	Close()
	LoadAccount(ctx context.Context, address string) (types.AccountState, error)
	Submit(ctx context.Context, t types.Transfer) (types.Receipt, error)
	Get(ctx context.Context, hash string) (types.Trans, error)
}

// Init loads all the clients read from the config to blockchains into a map.
func Init(bc []config.BlockConfig) (m map[string]Chain, err error) {
	m = make(map[string]Chain)

	for _, block := range bc {
		switch block.Driver {
		case ETHEREUM, "":
			var e *ethereum.Ethereum

			if e, err = ethereum.Init(block.Node, block.Secret, block.Decimals); err != nil {
				return
			}

			m[block.Name] = e
		case SIM:
			m[block.Name] = sim.New(block.Decimals)
		default:
			log.Printf("Blockchain driver %q not defined for %s. Ignoring...\n", block.Driver, block.Name)
		}
	}

	return
}

// End closes gracefully all the blockchain clients opened.
func End(bc map[string]Chain) {
	for _, block := range bc {
		block.Close()
	}
}
