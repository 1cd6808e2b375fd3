package core

import (
	"context"
	"fmt"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

// stubFeedClient replays a fixed sequence of pages, one per Fetch call,
// and records the arguments it was called with.
type stubFeedClient struct {
	mu    sync.Mutex
	pages []FeedPage
	err   error
	calls []stubFeedCall
}

type stubFeedCall struct {
	Account    string
	MaxResults int
	StartTxID  *uint64
}

func (c *stubFeedClient) Fetch(_ context.Context, account string, maxResults int, startTxID *uint64) (FeedPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, stubFeedCall{Account: account, MaxResults: maxResults, StartTxID: startTxID})
	if c.err != nil {
		return FeedPage{}, c.err
	}
	index := len(c.calls) - 1
	if index >= len(c.pages) {
		return FeedPage{}, nil
	}
	return c.pages[index], nil
}

func (c *stubFeedClient) fetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type stubLedgerClient struct {
	nextID uint64
	err    error
	calls  int
}

func (c *stubLedgerClient) Transfer(_ context.Context, _ string, _ uint64) (uint64, error) {
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	return c.nextID, nil
}

// recordingApplier wraps another applier and captures the order in which
// transaction ids are applied.
type recordingApplier struct {
	inner   TransactionApplier
	applied []uint64
}

func (a *recordingApplier) ApplyTransaction(ctx context.Context, tx Transaction, counterparty string, delta int64) (bool, error) {
	applied, err := a.inner.ApplyTransaction(ctx, tx, counterparty, delta)
	if err != nil {
		return applied, err
	}
	if applied {
		a.applied = append(a.applied, tx.ID)
	}
	return applied, nil
}

func newVaultService(t *testing.T, cfg Config, options ...Option) (*Service, *MemoryVaultStores) {
	t.Helper()
	stores := NewMemoryVaultStores()
	base := []Option{
		WithLogger(stubLogger{}),
		WithTransactionStore(stores.Transactions),
		WithBalanceStore(stores.Balances),
		WithTransactionApplier(stores),
	}
	svc, err := NewService(cfg, append(base, options...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, stores
}

func mustBalance(t *testing.T, svc *Service, account string) int64 {
	t.Helper()
	amount, err := svc.GetBalance(context.Background(), account)
	if err != nil {
		t.Fatalf("get balance %q: %v", account, err)
	}
	return amount
}

func assertVaultTextCode(t *testing.T, err error, textCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with text code %s, got nil", textCode)
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected mapped error envelope, got %T: %v", err, err)
	}
	if richErr.TextCode != textCode {
		t.Fatalf("expected text code %s, got %s (%v)", textCode, richErr.TextCode, err)
	}
}

func uint64Ptr(value uint64) *uint64 {
	return &value
}

func feedTransfer(id uint64, from, to string, amount uint64) FeedTransaction {
	return FeedTransaction{
		ID:        id,
		Kind:      TransactionKindTransfer,
		From:      from,
		To:        to,
		Amount:    amount,
		Timestamp: id * 1_000,
	}
}

var errStubFeedDown = fmt.Errorf("stub feed: connection refused")
