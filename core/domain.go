package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidTransactionKind = errors.New("core: invalid transaction kind")
	ErrInvalidAccount         = errors.New("core: invalid account")
	ErrTransactionExists      = errors.New("core: transaction already recorded")
	ErrTransactionNotFound    = errors.New("core: transaction not found")
	ErrEndpointNotFound       = errors.New("core: endpoint not found")
)

type TransactionKind string

const (
	TransactionKindTransfer TransactionKind = "transfer"
	TransactionKindMint     TransactionKind = "mint"
	TransactionKindBurn     TransactionKind = "burn"
)

func ParseTransactionKind(value string) (TransactionKind, error) {
	kind := TransactionKind(strings.TrimSpace(strings.ToLower(value)))
	switch kind {
	case TransactionKindTransfer, TransactionKindMint, TransactionKindBurn:
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTransactionKind, value)
}

// Transaction is one observed or issued token movement. Records are
// append-only: once an id is written it is never mutated or deleted.
type Transaction struct {
	ID        uint64
	Kind      TransactionKind
	From      string
	To        string
	Amount    uint64
	Timestamp uint64
	CreatedAt time.Time
}

func (t Transaction) Validate() error {
	if _, err := ParseTransactionKind(string(t.Kind)); err != nil {
		return err
	}
	switch t.Kind {
	case TransactionKindMint:
		if strings.TrimSpace(t.To) == "" {
			return fmt.Errorf("%w: mint requires a destination account", ErrInvalidAccount)
		}
	case TransactionKindBurn:
		if strings.TrimSpace(t.From) == "" {
			return fmt.Errorf("%w: burn requires a source account", ErrInvalidAccount)
		}
	default:
		if strings.TrimSpace(t.From) == "" || strings.TrimSpace(t.To) == "" {
			return fmt.Errorf("%w: transfer requires source and destination accounts", ErrInvalidAccount)
		}
	}
	return nil
}

// Touches reports whether the given account appears on either side.
func (t Transaction) Touches(account string) bool {
	account = strings.TrimSpace(account)
	if account == "" {
		return false
	}
	return t.From == account || t.To == account
}

// Balance is the vault's net exposure to one counterparty: deposits
// received from it minus withdrawals sent to it, in the token's smallest
// unit. It is bookkeeping, not the counterparty's own ledger balance.
type Balance struct {
	Account   string
	Amount    int64
	UpdatedAt time.Time
}

// SyncState is the singleton pagination boundary for one custodial
// account's feed. Mutated only by the reconciliation engine.
type SyncState struct {
	Account        string
	ScanStartTxID  uint64
	ScanEndTxID    uint64
	ScanOldestTxID uint64

	// FeedBalance is the custodial account balance as last reported by the
	// feed. It is informational; reconciled balances live in the balance
	// store.
	FeedBalance uint64

	LastSyncedAt *time.Time
	UpdatedAt    time.Time
}

// SyncSummary reports the outcome of a single reconciliation pass.
type SyncSummary struct {
	NewTransactions int    `json:"new_txs_count"`
	Anomalies       int    `json:"anomalies"`
	Status          string `json:"sync_status"`
	ScanEndTxID     uint64 `json:"scan_end_tx_id"`
}

const SyncStatusSynced = "Synced"

// FeedTransaction is one entry of a feed page, already flattened from the
// indexer's kind-discriminated payload.
type FeedTransaction struct {
	ID        uint64
	Kind      TransactionKind
	From      string
	To        string
	Amount    uint64
	Timestamp uint64
}

// FeedPage is the decoded result of one indexer query. A failed or
// unreachable fetch yields the zero page, never an error that could be
// confused with observed data.
type FeedPage struct {
	Balance      uint64
	Transactions []FeedTransaction
	OldestTxID   *uint64
}

// Endpoint names one external collaborator (token ledger, indexer) and
// where to reach it.
type Endpoint struct {
	Name      string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	EndpointLedger  = "ledger"
	EndpointIndexer = "indexer"
)

type TransferRequest struct {
	Caller      string
	Destination string
	Amount      uint64
}

func (r TransferRequest) Validate() error {
	if strings.TrimSpace(r.Destination) == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidAccount)
	}
	if r.Amount == 0 {
		return errors.New("core: transfer amount must be positive")
	}
	if r.Amount > math.MaxInt64 {
		return errors.New("core: transfer amount exceeds the signed balance range")
	}
	return nil
}

// VaultStatus is the aggregate snapshot exposed to dashboards.
type VaultStatus struct {
	Config    Config
	SyncState SyncState
	Balances  []Balance
	Endpoints []Endpoint
}
