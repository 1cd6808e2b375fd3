package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-treasury/core"
)

// RepositoryFactory builds the vault stores on top of one bun.DB and
// doubles as the transactional applier used by the reconciliation engine.
type RepositoryFactory struct {
	db *bun.DB

	transactionStore *TransactionStore
	balanceStore     *BalanceStore
	syncStateStore   *SyncStateStore
	endpointStore    *EndpointStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.transactionStore != nil && f.balanceStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) TransactionStore() core.TransactionStore {
	if f == nil {
		return nil
	}
	return f.transactionStore
}

func (f *RepositoryFactory) BalanceStore() core.BalanceStore {
	if f == nil {
		return nil
	}
	return f.balanceStore
}

func (f *RepositoryFactory) SyncStateStore() core.SyncStateStore {
	if f == nil {
		return nil
	}
	return f.syncStateStore
}

func (f *RepositoryFactory) EndpointStore() core.EndpointStore {
	if f == nil {
		return nil
	}
	return f.endpointStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

// ApplyTransaction records one transaction and its balance effect in a
// single database transaction. Already recorded ids return applied=false
// with nothing written, which is what makes re-syncing the same feed
// window safe.
func (f *RepositoryFactory) ApplyTransaction(
	ctx context.Context,
	tx core.Transaction,
	counterparty string,
	delta int64,
) (bool, error) {
	if f == nil || f.db == nil {
		return false, fmt.Errorf("sqlstore: repository factory is not configured")
	}
	if err := tx.Validate(); err != nil {
		return false, err
	}
	counterparty = strings.TrimSpace(counterparty)

	applied := false
	err := f.db.RunInTx(ctx, nil, func(ctx context.Context, dbTx bun.Tx) error {
		count, err := dbTx.NewSelect().
			Model((*transactionRecord)(nil)).
			Where("?TableAlias.tx_id = ?", tx.ID).
			Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		record := newTransactionRecord(tx, time.Now().UTC())
		record.ID = uuid.NewString()
		if _, insertErr := dbTx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
			// A concurrent pass recorded the same id first.
			if isUniqueViolation(insertErr) {
				return nil
			}
			return insertErr
		}

		if counterparty != "" && delta != 0 {
			if _, err := applyBalanceDeltaTx(ctx, dbTx, counterparty, delta); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (f *RepositoryFactory) initStores() error {
	transactionStore, err := NewTransactionStore(f.db)
	if err != nil {
		return err
	}
	f.transactionStore = transactionStore

	balanceStore, err := NewBalanceStore(f.db)
	if err != nil {
		return err
	}
	f.balanceStore = balanceStore

	syncStateStore, err := NewSyncStateStore(f.db)
	if err != nil {
		return err
	}
	f.syncStateStore = syncStateStore

	endpointStore, err := NewEndpointStore(f.db)
	if err != nil {
		return err
	}
	f.endpointStore = endpointStore

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
