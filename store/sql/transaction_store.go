package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-treasury/core"
)

// TransactionStore persists the append-only transaction record table.
type TransactionStore struct {
	db   *bun.DB
	repo repository.Repository[*transactionRecord]
}

func NewTransactionStore(db *bun.DB) (*TransactionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*transactionRecord](db, transactionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid transaction repository wiring: %w", err)
		}
	}
	return &TransactionStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *TransactionStore) Exists(ctx context.Context, id uint64) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	count, err := s.db.NewSelect().
		Model((*transactionRecord)(nil)).
		Where("?TableAlias.tx_id = ?", id).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *TransactionStore) Insert(ctx context.Context, tx core.Transaction) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: transaction store is not configured")
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	record := newTransactionRecord(tx, time.Now().UTC())
	record.ID = uuid.NewString()
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: id %d", core.ErrTransactionExists, tx.ID)
		}
		return err
	}
	return nil
}

func (s *TransactionStore) Get(ctx context.Context, id uint64) (core.Transaction, error) {
	if s == nil || s.db == nil {
		return core.Transaction{}, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	record := &transactionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.tx_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Transaction{}, fmt.Errorf("%w: id %d", core.ErrTransactionNotFound, id)
		}
		return core.Transaction{}, err
	}
	return record.toDomain(), nil
}

func (s *TransactionStore) ListByAccount(ctx context.Context, account string) ([]core.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, fmt.Errorf("%w: account is required", core.ErrInvalidAccount)
	}

	records := []*transactionRecord{}
	err := s.db.NewSelect().
		Model(&records).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.from_account = ?", account).
				WhereOr("?TableAlias.to_account = ?", account)
		}).
		OrderExpr("?TableAlias.tx_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.Transaction, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
