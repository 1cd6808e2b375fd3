package treasury

import "github.com/goliatone/go-treasury/core"

type Config = core.Config

type FeedConfig = core.FeedConfig

type LedgerConfig = core.LedgerConfig

type Option = core.Option

type Service = core.Service

type Transaction = core.Transaction
type TransactionKind = core.TransactionKind
type Balance = core.Balance
type SyncState = core.SyncState
type SyncSummary = core.SyncSummary
type Endpoint = core.Endpoint
type VaultStatus = core.VaultStatus
type TransferRequest = core.TransferRequest

type FeedClient = core.FeedClient
type LedgerClient = core.LedgerClient
type TransactionStore = core.TransactionStore
type BalanceStore = core.BalanceStore
type TransactionApplier = core.TransactionApplier
type SyncStateStore = core.SyncStateStore
type EndpointStore = core.EndpointStore

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorFactory       = core.WithErrorFactory
	WithErrorMapper        = core.WithErrorMapper
	WithPersistenceClient  = core.WithPersistenceClient
	WithRepositoryFactory  = core.WithRepositoryFactory
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithAccountLocker      = core.WithAccountLocker
	WithClock              = core.WithClock
	WithFeedClient         = core.WithFeedClient
	WithLedgerClient       = core.WithLedgerClient
	WithTransactionStore   = core.WithTransactionStore
	WithBalanceStore       = core.WithBalanceStore
	WithTransactionApplier = core.WithTransactionApplier
	WithSyncStateStore     = core.WithSyncStateStore
	WithEndpointStore      = core.WithEndpointStore
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
