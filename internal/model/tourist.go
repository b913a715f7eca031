package model

import "time"

// Tourist represents a traveller account as stored in the `tourists`
// table.  Account creation and profile management belong to an external
// user service; this service only reads tourists to resolve booking
// ownership and to reach the embedded wallet.  The json tags are omitted
// because these structs are used internally by the repository layer;
// handlers define separate response types with appropriate JSON tags.
//
// Fields:
//
//	ID        – primary key identifier of the tourist.
//	Email     – unique email address (receipt recipient).
//	Username  – display name used in notifications.
//	IsActive  – whether the account is active.
//	CreatedAt – timestamp of creation.
//	UpdatedAt – timestamp of last update.
type Tourist struct {
	ID        uint64    // tourists.id
	Email     string    // tourists.email
	Username  string    // tourists.username
	IsActive  bool      // tourists.is_active
	CreatedAt time.Time // tourists.created_at
	UpdatedAt time.Time // tourists.updated_at
}

// Wallet is the spendable balance attached to a tourist.  Balances are
// stored in integer cents and are mutated exclusively by the wallet
// repository's conditional debit and credit operations; no other code
// path writes this row.  Invariant: BalanceCents >= 0 after any
// committed operation.
//
// Fields:
//
//	ID           – primary key identifier.
//	TouristID    – owner of the wallet (unique).
//	BalanceCents – current balance in cents.
//	UpdatedAt    – timestamp of last balance change.
type Wallet struct {
	ID           uint64    // wallets.id
	TouristID    uint64    // wallets.tourist_id
	BalanceCents int64     // wallets.balance_cents
	UpdatedAt    time.Time // wallets.updated_at
}

// Transaction type tags recorded with every wallet mutation.
const (
	WalletTxDebit  = "debit"
	WalletTxCredit = "credit"
)

// WalletTransaction is an append-only audit row written alongside each
// balance change.  Rows are never updated or deleted; a mistaken entry
// is corrected by a compensating entry of the opposite type.
//
// Fields:
//
//	ID          – primary key identifier.
//	TouristID   – wallet owner.
//	AmountCents – absolute amount moved, in cents.
//	Type        – "debit" or "credit".
//	Reference   – human-readable cause ("booking 42", "refund booking 42").
//	CreatedAt   – timestamp of the mutation.
type WalletTransaction struct {
	ID          uint64    // wallet_transactions.id
	TouristID   uint64    // wallet_transactions.tourist_id
	AmountCents int64     // wallet_transactions.amount_cents
	Type        string    // wallet_transactions.type
	Reference   string    // wallet_transactions.reference
	CreatedAt   time.Time // wallet_transactions.created_at
}
