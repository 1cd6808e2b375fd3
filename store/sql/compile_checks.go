package sqlstore

import "github.com/goliatone/go-treasury/core"

var (
	_ core.TransactionStore       = (*TransactionStore)(nil)
	_ core.BalanceStore           = (*BalanceStore)(nil)
	_ core.SyncStateStore         = (*SyncStateStore)(nil)
	_ core.EndpointStore          = (*EndpointStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
	_ core.TransactionApplier     = (*RepositoryFactory)(nil)
)
