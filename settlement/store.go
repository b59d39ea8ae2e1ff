package settlement

import (
	"context"

	"github.com/warp/slot-engine/ledger"
	"github.com/warp/slot-engine/policy"
	"github.com/warp/slot-engine/slots"
)

// Tx is every store the engine touches, scoped to one transaction.
type Tx interface {
	ledger.Store
	slots.Store
	policy.Store
}

// TxStore runs fn inside a transaction.
// fn returning an error rolls back everything fn wrote; nil commits.
//
// Implementations: store/memory (snapshot + restore), store/sqlite (SQL transaction).
type TxStore interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}
