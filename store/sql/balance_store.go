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

// BalanceStore keeps one row per counterparty with the vault's net
// exposure. Rows are created lazily on the first applied delta.
type BalanceStore struct {
	db   *bun.DB
	repo repository.Repository[*balanceRecord]
}

func NewBalanceStore(db *bun.DB) (*BalanceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*balanceRecord](db, balanceHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid balance repository wiring: %w", err)
		}
	}
	return &BalanceStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *BalanceStore) Get(ctx context.Context, account string) (core.Balance, error) {
	if s == nil || s.db == nil {
		return core.Balance{}, fmt.Errorf("sqlstore: balance store is not configured")
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return core.Balance{}, fmt.Errorf("%w: account is required", core.ErrInvalidAccount)
	}

	record := &balanceRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.account = ?", account).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Balance{Account: account}, nil
		}
		return core.Balance{}, err
	}
	return record.toDomain(), nil
}

func (s *BalanceStore) Apply(ctx context.Context, account string, delta int64) (core.Balance, error) {
	if s == nil || s.db == nil {
		return core.Balance{}, fmt.Errorf("sqlstore: balance store is not configured")
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return core.Balance{}, fmt.Errorf("%w: account is required", core.ErrInvalidAccount)
	}

	var out core.Balance
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		balance, err := applyBalanceDeltaTx(ctx, tx, account, delta)
		if err != nil {
			return err
		}
		out = balance
		return nil
	})
	if err != nil {
		return core.Balance{}, err
	}
	return out, nil
}

func (s *BalanceStore) List(ctx context.Context) ([]core.Balance, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: balance store is not configured")
	}
	records := []*balanceRecord{}
	err := s.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.account ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Balance, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// applyBalanceDeltaTx adds delta to the account row inside the caller's
// transaction, creating the row if needed. Insert races on the unique
// account column fall back to an update.
func applyBalanceDeltaTx(ctx context.Context, tx bun.Tx, account string, delta int64) (core.Balance, error) {
	now := time.Now().UTC()
	record, err := findBalanceTx(ctx, tx, account)
	if err != nil {
		return core.Balance{}, err
	}
	if record == nil {
		record = &balanceRecord{
			ID:        uuid.NewString(),
			Account:   account,
			Amount:    delta,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
			if !isUniqueViolation(insertErr) {
				return core.Balance{}, insertErr
			}
			record, err = findBalanceTx(ctx, tx, account)
			if err != nil {
				return core.Balance{}, err
			}
			if record == nil {
				return core.Balance{}, insertErr
			}
			record.Amount += delta
			record.UpdatedAt = now
			if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); updateErr != nil {
				return core.Balance{}, updateErr
			}
		}
		return record.toDomain(), nil
	}

	record.Amount += delta
	record.UpdatedAt = now
	if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); updateErr != nil {
		return core.Balance{}, updateErr
	}
	return record.toDomain(), nil
}

func findBalanceTx(ctx context.Context, tx bun.Tx, account string) (*balanceRecord, error) {
	record := &balanceRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.account = ?", strings.TrimSpace(account)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
