package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-treasury/core"
	treasurymigrations "github.com/goliatone/go-treasury/migrations"
	sqlstore "github.com/goliatone/go-treasury/store/sql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

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

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"treasury_transactions",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "treasury_transactions" {
		t.Fatalf("expected treasury_transactions table, got %q", tableName)
	}
}

func TestTransactionStore_InsertExistsAndListOrdering(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.TransactionStore()

	transactions := []core.Transaction{
		{ID: 30, Kind: core.TransactionKindTransfer, From: "alice", To: "vault-1", Amount: 25, Timestamp: 30_000},
		{ID: 10, Kind: core.TransactionKindTransfer, From: "vault-1", To: "alice", Amount: 5, Timestamp: 10_000},
		{ID: 20, Kind: core.TransactionKindMint, To: "vault-1", Amount: 100, Timestamp: 20_000},
	}
	for _, tx := range transactions {
		if err := store.Insert(ctx, tx); err != nil {
			t.Fatalf("insert transaction %d: %v", tx.ID, err)
		}
	}

	exists, err := store.Exists(ctx, 10)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected transaction 10 to exist")
	}
	exists, err = store.Exists(ctx, 99)
	if err != nil {
		t.Fatalf("exists unknown: %v", err)
	}
	if exists {
		t.Fatalf("expected transaction 99 to be absent")
	}

	if err := store.Insert(ctx, core.Transaction{
		ID: 10, Kind: core.TransactionKindTransfer, From: "bob", To: "vault-1", Amount: 1, Timestamp: 11_000,
	}); !errors.Is(err, core.ErrTransactionExists) {
		t.Fatalf("expected duplicate insert to return ErrTransactionExists, got %v", err)
	}

	fetched, err := store.Get(ctx, 30)
	if err != nil {
		t.Fatalf("get transaction 30: %v", err)
	}
	if fetched.From != "alice" || fetched.Amount != 25 || fetched.Timestamp != 30_000 {
		t.Fatalf("unexpected transaction 30: %+v", fetched)
	}
	if _, err := store.Get(ctx, 99); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound for id 99, got %v", err)
	}

	history, err := store.ListByAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("list by account: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 alice transactions, got %d", len(history))
	}
	if history[0].ID != 10 || history[1].ID != 30 {
		t.Fatalf("expected ascending id order [10 30], got [%d %d]", history[0].ID, history[1].ID)
	}
}

func TestBalanceStore_ApplyAccumulatesAndZeroDefaults(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.BalanceStore()

	balance, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get unknown balance: %v", err)
	}
	if balance.Account != "alice" || balance.Amount != 0 {
		t.Fatalf("expected zero balance for unknown account, got %+v", balance)
	}

	if _, err := store.Apply(ctx, "alice", 25); err != nil {
		t.Fatalf("apply credit: %v", err)
	}
	balance, err = store.Apply(ctx, "alice", -10)
	if err != nil {
		t.Fatalf("apply debit: %v", err)
	}
	if balance.Amount != 15 {
		t.Fatalf("expected accumulated balance 15, got %d", balance.Amount)
	}

	if _, err := store.Apply(ctx, "bob", -40); err != nil {
		t.Fatalf("apply bob debit: %v", err)
	}
	balances, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list balances: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	if balances[0].Account != "alice" || balances[1].Account != "bob" {
		t.Fatalf("expected account ordering [alice bob], got [%s %s]", balances[0].Account, balances[1].Account)
	}
	if balances[1].Amount != -40 {
		t.Fatalf("expected bob balance -40, got %d", balances[1].Amount)
	}
}

func TestRepositoryFactory_ApplyTransactionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}

	tx := core.Transaction{
		ID:        7,
		Kind:      core.TransactionKindTransfer,
		From:      "alice",
		To:        "vault-1",
		Amount:    25,
		Timestamp: 7_000,
	}

	applied, err := factory.ApplyTransaction(ctx, tx, "alice", 25)
	if err != nil {
		t.Fatalf("apply transaction: %v", err)
	}
	if !applied {
		t.Fatalf("expected first apply to report applied=true")
	}

	applied, err = factory.ApplyTransaction(ctx, tx, "alice", 25)
	if err != nil {
		t.Fatalf("re-apply transaction: %v", err)
	}
	if applied {
		t.Fatalf("expected duplicate apply to report applied=false")
	}

	balance, err := factory.BalanceStore().Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Amount != 25 {
		t.Fatalf("expected balance applied exactly once (25), got %d", balance.Amount)
	}

	exists, err := factory.TransactionStore().Exists(ctx, 7)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected transaction 7 to be recorded")
	}
}

func TestSyncStateStore_UpsertCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.SyncStateStore()

	state, err := store.Get(ctx, "vault-1")
	if err != nil {
		t.Fatalf("get default sync state: %v", err)
	}
	if state.ScanStartTxID != 0 || state.LastSyncedAt != nil {
		t.Fatalf("expected zero default sync state, got %+v", state)
	}

	syncedAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	saved, err := store.Upsert(ctx, core.SyncState{
		Account:        "vault-1",
		ScanStartTxID:  90,
		ScanEndTxID:    10,
		ScanOldestTxID: 10,
		LastSyncedAt:   &syncedAt,
	})
	if err != nil {
		t.Fatalf("upsert sync state: %v", err)
	}
	if saved.ScanStartTxID != 90 {
		t.Fatalf("expected scan start 90, got %d", saved.ScanStartTxID)
	}

	later := syncedAt.Add(time.Hour)
	updated, err := store.Upsert(ctx, core.SyncState{
		Account:        "vault-1",
		ScanStartTxID:  120,
		ScanEndTxID:    10,
		ScanOldestTxID: 10,
		FeedBalance:    500,
		LastSyncedAt:   &later,
	})
	if err != nil {
		t.Fatalf("upsert sync state again: %v", err)
	}
	if updated.ScanStartTxID != 120 {
		t.Fatalf("expected scan start 120 after update, got %d", updated.ScanStartTxID)
	}
	if updated.FeedBalance != 500 {
		t.Fatalf("expected feed balance 500 after update, got %d", updated.FeedBalance)
	}
	if updated.LastSyncedAt == nil || !updated.LastSyncedAt.Equal(later) {
		t.Fatalf("expected last synced %v, got %v", later, updated.LastSyncedAt)
	}

	var rowCount int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM treasury_sync_state WHERE account = ?",
		"vault-1",
	).Scan(ctx, &rowCount); err != nil {
		t.Fatalf("count sync state rows: %v", err)
	}
	if rowCount != 1 {
		t.Fatalf("expected one sync state row per account, got %d", rowCount)
	}
}

func TestEndpointStore_UpsertPreservesCreation(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.EndpointStore()

	if _, err := store.Get(ctx, core.EndpointLedger); !errors.Is(err, core.ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound before upsert, got %v", err)
	}

	created, err := store.Upsert(ctx, core.Endpoint{
		Name: core.EndpointLedger,
		URL:  "https://ledger.internal",
	})
	if err != nil {
		t.Fatalf("upsert endpoint: %v", err)
	}

	updated, err := store.Upsert(ctx, core.Endpoint{
		Name: core.EndpointLedger,
		URL:  "https://ledger-v2.internal",
	})
	if err != nil {
		t.Fatalf("update endpoint: %v", err)
	}
	if updated.URL != "https://ledger-v2.internal" {
		t.Fatalf("expected updated url, got %q", updated.URL)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected created_at to survive update: %v vs %v", updated.CreatedAt, created.CreatedAt)
	}

	endpoints, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list endpoints: %v", err)
	}
	if len(endpoints) != 1 {
		t.Fatalf("expected one endpoint row, got %d", len(endpoints))
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:treasury-test-%d?mode=memory&cache=shared&_foreign_keys=on",
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
