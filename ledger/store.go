package ledger

import "context"

// Store persists accounts and the two append-only logs.
//
// A Store handed to a Ledger is expected to be scoped to one transaction
// (see settlement.TxStore). The Ledger does read-modify-write on Account rows
// and relies on that transaction for isolation.
type Store interface {
	// GetAccount returns ErrAccountNotFound for unknown users.
	GetAccount(ctx context.Context, userID UserID) (Account, error)

	// SaveAccount upserts the account row.
	SaveAccount(ctx context.Context, account Account) error

	AppendEntry(ctx context.Context, entry Entry) error
	AppendPointTransaction(ctx context.Context, tx PointTransaction) error

	// ListEntries returns entries for a user, oldest first.
	ListEntries(ctx context.Context, userID UserID) ([]Entry, error)

	// ListPointTransactions returns point transactions for a user, oldest first.
	ListPointTransactions(ctx context.Context, userID UserID) ([]PointTransaction, error)
}
