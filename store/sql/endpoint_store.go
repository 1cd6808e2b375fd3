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

// EndpointStore persists named collaborator endpoints.
type EndpointStore struct {
	db   *bun.DB
	repo repository.Repository[*endpointRecord]
}

func NewEndpointStore(db *bun.DB) (*EndpointStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*endpointRecord](db, endpointHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid endpoint repository wiring: %w", err)
		}
	}
	return &EndpointStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *EndpointStore) Get(ctx context.Context, name string) (core.Endpoint, error) {
	if s == nil || s.db == nil {
		return core.Endpoint{}, fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Endpoint{}, fmt.Errorf("sqlstore: endpoint name is required")
	}

	record := &endpointRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Endpoint{}, fmt.Errorf("%w: %q", core.ErrEndpointNotFound, name)
		}
		return core.Endpoint{}, err
	}
	return record.toDomain(), nil
}

func (s *EndpointStore) Upsert(ctx context.Context, endpoint core.Endpoint) (core.Endpoint, error) {
	if s == nil || s.db == nil {
		return core.Endpoint{}, fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	endpoint.Name = strings.TrimSpace(endpoint.Name)
	endpoint.URL = strings.TrimSpace(endpoint.URL)
	if endpoint.Name == "" || endpoint.URL == "" {
		return core.Endpoint{}, fmt.Errorf("sqlstore: endpoint name and url are required")
	}
	now := time.Now().UTC()

	var out core.Endpoint
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findEndpointTx(ctx, tx, endpoint.Name)
		if err != nil {
			return err
		}
		if record == nil {
			record = &endpointRecord{
				ID:        uuid.NewString(),
				Name:      endpoint.Name,
				URL:       endpoint.URL,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
				if !isUniqueViolation(insertErr) {
					return insertErr
				}
				record, err = findEndpointTx(ctx, tx, endpoint.Name)
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

		record.URL = endpoint.URL
		record.UpdatedAt = now
		if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); updateErr != nil {
			return updateErr
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.Endpoint{}, err
	}
	return out, nil
}

func (s *EndpointStore) List(ctx context.Context) ([]core.Endpoint, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	records := []*endpointRecord{}
	err := s.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Endpoint, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func findEndpointTx(ctx context.Context, tx bun.Tx, name string) (*endpointRecord, error) {
	record := &endpointRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", strings.TrimSpace(name)).
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
