package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type transactionRecord struct {
	bun.BaseModel `bun:"table:treasury_transactions,alias:tt"`

	ID          string    `bun:"id,pk"`
	TxID        uint64    `bun:"tx_id,notnull,unique"`
	Kind        string    `bun:"kind,notnull"`
	FromAccount string    `bun:"from_account"`
	ToAccount   string    `bun:"to_account"`
	Amount      uint64    `bun:"amount,notnull"`
	Timestamp   uint64    `bun:"ledger_timestamp,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type balanceRecord struct {
	bun.BaseModel `bun:"table:treasury_balances,alias:tb"`

	ID        string    `bun:"id,pk"`
	Account   string    `bun:"account,notnull,unique"`
	Amount    int64     `bun:"amount,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type syncStateRecord struct {
	bun.BaseModel `bun:"table:treasury_sync_state,alias:tss"`

	ID             string     `bun:"id,pk"`
	Account        string     `bun:"account,notnull,unique"`
	ScanStartTxID  uint64     `bun:"scan_start_tx_id,notnull"`
	ScanEndTxID    uint64     `bun:"scan_end_tx_id,notnull"`
	ScanOldestTxID uint64     `bun:"scan_oldest_tx_id,notnull"`
	FeedBalance    uint64     `bun:"feed_balance,notnull"`
	LastSyncedAt   *time.Time `bun:"last_synced_at,nullzero"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type endpointRecord struct {
	bun.BaseModel `bun:"table:treasury_endpoints,alias:te"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull,unique"`
	URL       string    `bun:"url,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
