package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-treasury/core"
)

var (
	_ gocmd.Querier[GetBalanceMessage, int64]                    = (*GetBalanceQuery)(nil)
	_ gocmd.Querier[ListTransactionsMessage, []core.Transaction] = (*ListTransactionsQuery)(nil)
	_ gocmd.Querier[GetStatusMessage, core.VaultStatus]          = (*GetStatusQuery)(nil)
)
