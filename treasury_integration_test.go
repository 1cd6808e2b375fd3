package treasury_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"
	persistence "github.com/goliatone/go-persistence-bun"
	treasury "github.com/goliatone/go-treasury"
	treasurycommand "github.com/goliatone/go-treasury/command"
	"github.com/goliatone/go-treasury/core"
	"github.com/goliatone/go-treasury/feed"
	"github.com/goliatone/go-treasury/ledger"
	treasurymigrations "github.com/goliatone/go-treasury/migrations"
	treasuryquery "github.com/goliatone/go-treasury/query"
	sqlstore "github.com/goliatone/go-treasury/store/sql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestComposition_SyncTransferAndQueryOverSQLite(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	indexer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"balance": 15,
			"transactions": []map[string]any{
				{
					"id": 2,
					"transaction": map[string]any{
						"kind":      "transfer",
						"timestamp": 2000,
						"transfer":  map[string]any{"from": "vault-1", "to": "bob", "amount": 10},
					},
				},
				{
					"id": 1,
					"transaction": map[string]any{
						"kind":      "transfer",
						"timestamp": 1000,
						"transfer":  map[string]any{"from": "alice", "to": "vault-1", "amount": 25},
					},
				},
			},
			"oldest_tx_id": 1,
		})
	}))
	defer indexer.Close()

	ledgerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"tx_id": 77})
	}))
	defer ledgerServer.Close()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}

	svc, err := treasury.NewService(
		treasury.Config{
			CustodialAccount: "vault-1",
			AdminAccount:     "admin-1",
		},
		treasury.WithRepositoryFactory(factory),
		treasury.WithFeedClient(feed.NewIndexerClient(feed.IndexerClientConfig{BaseURL: indexer.URL})),
		treasury.WithLedgerClient(ledger.NewClient(ledger.ClientConfig{BaseURL: ledgerServer.URL})),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	facade, err := treasury.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	summaryCollector := gocmd.NewResult[core.SyncSummary]()
	refreshCtx := gocmd.ContextWithResult(ctx, summaryCollector)
	if err := facade.Commands().Refresh.Execute(refreshCtx, treasurycommand.RefreshMessage{}); err != nil {
		t.Fatalf("execute refresh: %v", err)
	}
	summary, ok := summaryCollector.Load()
	if !ok {
		t.Fatalf("expected collected refresh summary")
	}
	if summary.NewTransactions != 2 || summary.Status != core.SyncStatusSynced {
		t.Fatalf("unexpected refresh summary: %+v", summary)
	}
	if summary.ScanEndTxID != 1 {
		t.Fatalf("expected scan end tx id 1, got %d", summary.ScanEndTxID)
	}

	aliceBalance, err := facade.Queries().GetBalance.Query(ctx, treasuryquery.GetBalanceMessage{Counterparty: "alice"})
	if err != nil {
		t.Fatalf("query alice balance: %v", err)
	}
	if aliceBalance != 25 {
		t.Fatalf("expected alice balance 25, got %d", aliceBalance)
	}
	bobBalance, err := facade.Queries().GetBalance.Query(ctx, treasuryquery.GetBalanceMessage{Counterparty: "bob"})
	if err != nil {
		t.Fatalf("query bob balance: %v", err)
	}
	if bobBalance != -10 {
		t.Fatalf("expected bob balance -10, got %d", bobBalance)
	}

	transferCollector := gocmd.NewResult[uint64]()
	transferCtx := gocmd.ContextWithResult(ctx, transferCollector)
	if err := facade.Commands().Transfer.Execute(transferCtx, treasurycommand.TransferMessage{
		Request: core.TransferRequest{Caller: "admin-1", Destination: "carol", Amount: 5},
	}); err != nil {
		t.Fatalf("execute transfer: %v", err)
	}
	txID, ok := transferCollector.Load()
	if !ok || txID != 77 {
		t.Fatalf("expected ledger tx id 77, got %d (ok=%v)", txID, ok)
	}

	carolHistory, err := facade.Queries().ListTransactions.Query(ctx, treasuryquery.ListTransactionsMessage{Counterparty: "carol"})
	if err != nil {
		t.Fatalf("query carol transactions: %v", err)
	}
	if len(carolHistory) != 1 || carolHistory[0].ID != 77 {
		t.Fatalf("expected carol history [77], got %+v", carolHistory)
	}

	status, err := facade.Queries().GetStatus.Query(ctx, treasuryquery.GetStatusMessage{})
	if err != nil {
		t.Fatalf("query status: %v", err)
	}
	if status.SyncState.ScanStartTxID != 2 {
		t.Fatalf("expected scan start 2 after sync, got %d", status.SyncState.ScanStartTxID)
	}
	if status.SyncState.FeedBalance != 15 {
		t.Fatalf("expected feed-reported balance 15, got %d", status.SyncState.FeedBalance)
	}
	if len(status.Balances) != 3 {
		t.Fatalf("expected balances for alice, bob and carol, got %d", len(status.Balances))
	}

	// A second pass over the same feed window applies nothing.
	secondCollector := gocmd.NewResult[core.SyncSummary]()
	secondCtx := gocmd.ContextWithResult(ctx, secondCollector)
	if err := facade.Commands().Refresh.Execute(secondCtx, treasurycommand.RefreshMessage{}); err != nil {
		t.Fatalf("execute second refresh: %v", err)
	}
	second, _ := secondCollector.Load()
	if second.NewTransactions != 0 {
		t.Fatalf("expected idempotent second refresh, got %d new", second.NewTransactions)
	}
}

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-treasury-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:treasury-composition-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = treasurymigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != treasurymigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, treasurymigrations.WithValidationTargets(treasurymigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
