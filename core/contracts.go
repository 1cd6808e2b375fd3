package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// TransactionStore is the append-only record of every token movement the
// vault has observed or issued, keyed by the feed-assigned transaction id.
type TransactionStore interface {
	Exists(ctx context.Context, id uint64) (bool, error)
	Insert(ctx context.Context, tx Transaction) error
	Get(ctx context.Context, id uint64) (Transaction, error)
	ListByAccount(ctx context.Context, account string) ([]Transaction, error)
}

// BalanceStore maps counterparty accounts to signed net balances. Get on an
// unknown account returns the zero balance, not an error.
type BalanceStore interface {
	Get(ctx context.Context, account string) (Balance, error)
	Apply(ctx context.Context, account string, delta int64) (Balance, error)
	List(ctx context.Context) ([]Balance, error)
}

// TransactionApplier records one transaction and its balance effect as a
// single unit. Applying an id that is already recorded is a no-op returning
// applied=false; this is the engine's idempotence contract.
type TransactionApplier interface {
	ApplyTransaction(ctx context.Context, tx Transaction, counterparty string, delta int64) (bool, error)
}

// SyncStateStore persists the feed pagination boundary per custodial
// account.
type SyncStateStore interface {
	Get(ctx context.Context, account string) (SyncState, error)
	Upsert(ctx context.Context, state SyncState) (SyncState, error)
}

// EndpointStore holds the configured external collaborators.
type EndpointStore interface {
	Get(ctx context.Context, name string) (Endpoint, error)
	Upsert(ctx context.Context, endpoint Endpoint) (Endpoint, error)
	List(ctx context.Context) ([]Endpoint, error)
}

// FeedClient queries the external indexer for one page of the custodial
// account's transaction history. startTxID == nil requests the most recent
// page; a non-nil value requests the descending page ending at that id.
// FeedClient reads pages of the custodial account's transaction feed,
// newest first. A fetch error never carries partial data: the engine
// treats it as an unavailable feed and leaves all state untouched.
type FeedClient interface {
	Fetch(ctx context.Context, account string, maxResults int, startTxID *uint64) (FeedPage, error)
}

// LedgerClient issues one outbound token transfer and returns the
// ledger-assigned transaction id.
type LedgerClient interface {
	Transfer(ctx context.Context, to string, amount uint64) (uint64, error)
}

// StoreProvider exposes the durable stores a repository factory builds.
type StoreProvider interface {
	TransactionStore() TransactionStore
	BalanceStore() BalanceStore
	SyncStateStore() SyncStateStore
	EndpointStore() EndpointStore
}

// RepositoryStoreFactory builds stores from a persistence client.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// AccountLocker serializes reconciliation and transfer passes per custodial
// account. The source host processed one call to completion at a time; a
// concurrent port has to provide that exclusion explicitly.
type AccountLocker interface {
	Lock(account string) func()
}

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
