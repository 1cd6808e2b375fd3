package query

import (
	"fmt"
	"strings"
)

const (
	TypeGetBalance       = "treasury.query.balance.get"
	TypeListTransactions = "treasury.query.transactions.list"
	TypeGetStatus        = "treasury.query.status.get"
)

type GetBalanceMessage struct {
	Counterparty string
}

func (GetBalanceMessage) Type() string { return TypeGetBalance }

func (m GetBalanceMessage) Validate() error {
	if strings.TrimSpace(m.Counterparty) == "" {
		return fmt.Errorf("query: counterparty is required")
	}
	return nil
}

type ListTransactionsMessage struct {
	Counterparty string
}

func (ListTransactionsMessage) Type() string { return TypeListTransactions }

func (m ListTransactionsMessage) Validate() error {
	if strings.TrimSpace(m.Counterparty) == "" {
		return fmt.Errorf("query: counterparty is required")
	}
	return nil
}

type GetStatusMessage struct{}

func (GetStatusMessage) Type() string { return TypeGetStatus }

func (GetStatusMessage) Validate() error { return nil }
