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

// SyncStateStore persists the per-account scan boundary row.
type SyncStateStore struct {
	db   *bun.DB
	repo repository.Repository[*syncStateRecord]
}

func NewSyncStateStore(db *bun.DB) (*SyncStateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*syncStateRecord](db, syncStateHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid sync state repository wiring: %w", err)
		}
	}
	return &SyncStateStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *SyncStateStore) Get(ctx context.Context, account string) (core.SyncState, error) {
	if s == nil || s.db == nil {
		return core.SyncState{}, fmt.Errorf("sqlstore: sync state store is not configured")
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return core.SyncState{}, fmt.Errorf("%w: account is required", core.ErrInvalidAccount)
	}

	record := &syncStateRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.account = ?", account).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.SyncState{Account: account}, nil
		}
		return core.SyncState{}, err
	}
	return record.toDomain(), nil
}

func (s *SyncStateStore) Upsert(ctx context.Context, state core.SyncState) (core.SyncState, error) {
	if s == nil || s.db == nil {
		return core.SyncState{}, fmt.Errorf("sqlstore: sync state store is not configured")
	}
	state.Account = strings.TrimSpace(state.Account)
	if state.Account == "" {
		return core.SyncState{}, fmt.Errorf("%w: account is required", core.ErrInvalidAccount)
	}
	now := time.Now().UTC()

	var out core.SyncState
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findSyncStateTx(ctx, tx, state.Account)
		if err != nil {
			return err
		}
		if record == nil {
			record = &syncStateRecord{
				ID:             uuid.NewString(),
				Account:        state.Account,
				ScanStartTxID:  state.ScanStartTxID,
				ScanEndTxID:    state.ScanEndTxID,
				ScanOldestTxID: state.ScanOldestTxID,
				FeedBalance:    state.FeedBalance,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if state.LastSyncedAt != nil {
				value := state.LastSyncedAt.UTC()
				record.LastSyncedAt = &value
			}
			if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
				if !isUniqueViolation(insertErr) {
					return insertErr
				}
				record, err = findSyncStateTx(ctx, tx, state.Account)
				if err != nil {
					return err
				}
				if record == nil {
					return insertErr
				}
			} else {
				out = record.toDomain()
				return nil
			}
		}

		record.ScanStartTxID = state.ScanStartTxID
		record.ScanEndTxID = state.ScanEndTxID
		record.ScanOldestTxID = state.ScanOldestTxID
		record.FeedBalance = state.FeedBalance
		record.UpdatedAt = now
		if state.LastSyncedAt != nil {
			value := state.LastSyncedAt.UTC()
			record.LastSyncedAt = &value
		}
		if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); updateErr != nil {
			return updateErr
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.SyncState{}, err
	}
	return out, nil
}

func findSyncStateTx(ctx context.Context, tx bun.Tx, account string) (*syncStateRecord, error) {
	record := &syncStateRecord{}
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
