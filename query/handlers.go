package query

import (
	"context"

	"github.com/goliatone/go-treasury/core"
)

type BalanceReader interface {
	GetBalance(ctx context.Context, counterparty string) (int64, error)
}

type TransactionReader interface {
	GetTransactions(ctx context.Context, counterparty string) ([]core.Transaction, error)
}

type StatusReader interface {
	GetStatus(ctx context.Context) (core.VaultStatus, error)
}

type GetBalanceQuery struct {
	reader BalanceReader
}

func NewGetBalanceQuery(reader BalanceReader) *GetBalanceQuery {
	return &GetBalanceQuery{reader: reader}
}

func (q *GetBalanceQuery) Query(ctx context.Context, msg GetBalanceMessage) (int64, error) {
	if q == nil || q.reader == nil {
		return 0, queryDependencyError("query: balance reader is required")
	}
	return q.reader.GetBalance(ctx, msg.Counterparty)
}

type ListTransactionsQuery struct {
	reader TransactionReader
}

func NewListTransactionsQuery(reader TransactionReader) *ListTransactionsQuery {
	return &ListTransactionsQuery{reader: reader}
}

func (q *ListTransactionsQuery) Query(ctx context.Context, msg ListTransactionsMessage) ([]core.Transaction, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: transaction reader is required")
	}
	return q.reader.GetTransactions(ctx, msg.Counterparty)
}

type GetStatusQuery struct {
	reader StatusReader
}

func NewGetStatusQuery(reader StatusReader) *GetStatusQuery {
	return &GetStatusQuery{reader: reader}
}

func (q *GetStatusQuery) Query(ctx context.Context, _ GetStatusMessage) (core.VaultStatus, error) {
	if q == nil || q.reader == nil {
		return core.VaultStatus{}, queryDependencyError("query: status reader is required")
	}
	return q.reader.GetStatus(ctx)
}
