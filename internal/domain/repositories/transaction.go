package repositories

import "context"

// TxFn runs inside a transaction. Returning an error rolls it back.
type TxFn func(ctx context.Context) error

// TransactionManager scopes repository calls to a single transaction.
type TransactionManager interface {
	// ExecTx runs fn in a transaction, committing when fn returns nil.
	ExecTx(ctx context.Context, fn TxFn) error
}
