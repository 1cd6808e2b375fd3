package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-treasury/core"
)

func newTransactionRecord(tx core.Transaction, now time.Time) *transactionRecord {
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return &transactionRecord{
		TxID:        tx.ID,
		Kind:        string(tx.Kind),
		FromAccount: strings.TrimSpace(tx.From),
		ToAccount:   strings.TrimSpace(tx.To),
		Amount:      tx.Amount,
		Timestamp:   tx.Timestamp,
		CreatedAt:   createdAt,
	}
}

func (r *transactionRecord) toDomain() core.Transaction {
	if r == nil {
		return core.Transaction{}
	}
	return core.Transaction{
		ID:        r.TxID,
		Kind:      core.TransactionKind(r.Kind),
		From:      r.FromAccount,
		To:        r.ToAccount,
		Amount:    r.Amount,
		Timestamp: r.Timestamp,
		CreatedAt: r.CreatedAt,
	}
}

func (r *balanceRecord) toDomain() core.Balance {
	if r == nil {
		return core.Balance{}
	}
	return core.Balance{
		Account:   r.Account,
		Amount:    r.Amount,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *syncStateRecord) toDomain() core.SyncState {
	if r == nil {
		return core.SyncState{}
	}
	state := core.SyncState{
		Account:        r.Account,
		ScanStartTxID:  r.ScanStartTxID,
		ScanEndTxID:    r.ScanEndTxID,
		ScanOldestTxID: r.ScanOldestTxID,
		FeedBalance:    r.FeedBalance,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.LastSyncedAt != nil {
		value := r.LastSyncedAt.UTC()
		state.LastSyncedAt = &value
	}
	return state
}

func (r *endpointRecord) toDomain() core.Endpoint {
	if r == nil {
		return core.Endpoint{}
	}
	return core.Endpoint{
		Name:      r.Name,
		URL:       r.URL,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
