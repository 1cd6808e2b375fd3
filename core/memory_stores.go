package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryTransactionStore is the in-process TransactionStore used by tests
// and by embedders that do not wire a persistence client.
type MemoryTransactionStore struct {
	mu  sync.Mutex
	txs map[uint64]Transaction
}

func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{
		txs: make(map[uint64]Transaction),
	}
}

func (s *MemoryTransactionStore) Exists(_ context.Context, id uint64) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("core: transaction store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.txs[id]
	return ok, nil
}

func (s *MemoryTransactionStore) Insert(_ context.Context, tx Transaction) error {
	if s == nil {
		return fmt.Errorf("core: transaction store is not configured")
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[tx.ID]; ok {
		return fmt.Errorf("%w: id %d", ErrTransactionExists, tx.ID)
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	s.txs[tx.ID] = tx
	return nil
}

func (s *MemoryTransactionStore) Get(_ context.Context, id uint64) (Transaction, error) {
	if s == nil {
		return Transaction{}, fmt.Errorf("core: transaction store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return Transaction{}, fmt.Errorf("%w: id %d", ErrTransactionNotFound, id)
	}
	return tx, nil
}

func (s *MemoryTransactionStore) ListByAccount(_ context.Context, account string) ([]Transaction, error) {
	if s == nil {
		return nil, fmt.Errorf("core: transaction store is not configured")
	}
	account = strings.TrimSpace(account)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transaction, 0)
	for _, tx := range s.txs {
		if tx.Touches(account) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryBalanceStore keeps counterparty balances in a map. Entries are
// created lazily on first Apply and never deleted.
type MemoryBalanceStore struct {
	mu       sync.Mutex
	balances map[string]Balance
}

func NewMemoryBalanceStore() *MemoryBalanceStore {
	return &MemoryBalanceStore{
		balances: make(map[string]Balance),
	}
}

func (s *MemoryBalanceStore) Get(_ context.Context, account string) (Balance, error) {
	if s == nil {
		return Balance{}, fmt.Errorf("core: balance store is not configured")
	}
	account = strings.TrimSpace(account)
	s.mu.Lock()
	defer s.mu.Unlock()
	if balance, ok := s.balances[account]; ok {
		return balance, nil
	}
	return Balance{Account: account}, nil
}

func (s *MemoryBalanceStore) Apply(_ context.Context, account string, delta int64) (Balance, error) {
	if s == nil {
		return Balance{}, fmt.Errorf("core: balance store is not configured")
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return Balance{}, fmt.Errorf("%w: empty account", ErrInvalidAccount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balance := s.balances[account]
	balance.Account = account
	balance.Amount += delta
	balance.UpdatedAt = time.Now().UTC()
	s.balances[account] = balance
	return balance, nil
}

func (s *MemoryBalanceStore) List(_ context.Context) ([]Balance, error) {
	if s == nil {
		return nil, fmt.Errorf("core: balance store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Balance, 0, len(s.balances))
	for _, balance := range s.balances {
		out = append(out, balance)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out, nil
}

// MemoryVaultStores bundles the in-process stores and implements the
// atomic apply used by the reconciliation engine.
type MemoryVaultStores struct {
	mu           sync.Mutex
	Transactions *MemoryTransactionStore
	Balances     *MemoryBalanceStore
}

func NewMemoryVaultStores() *MemoryVaultStores {
	return &MemoryVaultStores{
		Transactions: NewMemoryTransactionStore(),
		Balances:     NewMemoryBalanceStore(),
	}
}

func (s *MemoryVaultStores) ApplyTransaction(
	ctx context.Context,
	tx Transaction,
	counterparty string,
	delta int64,
) (bool, error) {
	if s == nil || s.Transactions == nil || s.Balances == nil {
		return false, fmt.Errorf("core: vault stores are not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.Transactions.Exists(ctx, tx.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.Transactions.Insert(ctx, tx); err != nil {
		return false, err
	}
	if counterparty != "" && delta != 0 {
		if _, err := s.Balances.Apply(ctx, counterparty, delta); err != nil {
			return false, err
		}
	}
	return true, nil
}

// MemorySyncStateStore keeps the per-account scan boundary in memory.
type MemorySyncStateStore struct {
	mu     sync.Mutex
	states map[string]SyncState
}

func NewMemorySyncStateStore() *MemorySyncStateStore {
	return &MemorySyncStateStore{
		states: make(map[string]SyncState),
	}
}

func (s *MemorySyncStateStore) Get(_ context.Context, account string) (SyncState, error) {
	if s == nil {
		return SyncState{}, fmt.Errorf("core: sync state store is not configured")
	}
	account = strings.TrimSpace(account)
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[account]; ok {
		return state, nil
	}
	return SyncState{Account: account}, nil
}

func (s *MemorySyncStateStore) Upsert(_ context.Context, state SyncState) (SyncState, error) {
	if s == nil {
		return SyncState{}, fmt.Errorf("core: sync state store is not configured")
	}
	state.Account = strings.TrimSpace(state.Account)
	if state.Account == "" {
		return SyncState{}, fmt.Errorf("%w: empty account", ErrInvalidAccount)
	}
	state.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Account] = state
	return state, nil
}

// MemoryEndpointStore keeps configured collaborator endpoints in memory.
type MemoryEndpointStore struct {
	mu        sync.Mutex
	endpoints map[string]Endpoint
}

func NewMemoryEndpointStore() *MemoryEndpointStore {
	return &MemoryEndpointStore{
		endpoints: make(map[string]Endpoint),
	}
}

func (s *MemoryEndpointStore) Get(_ context.Context, name string) (Endpoint, error) {
	if s == nil {
		return Endpoint{}, fmt.Errorf("core: endpoint store is not configured")
	}
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint, ok := s.endpoints[name]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrEndpointNotFound, name)
	}
	return endpoint, nil
}

func (s *MemoryEndpointStore) Upsert(_ context.Context, endpoint Endpoint) (Endpoint, error) {
	if s == nil {
		return Endpoint{}, fmt.Errorf("core: endpoint store is not configured")
	}
	endpoint.Name = strings.TrimSpace(endpoint.Name)
	endpoint.URL = strings.TrimSpace(endpoint.URL)
	if endpoint.Name == "" || endpoint.URL == "" {
		return Endpoint{}, fmt.Errorf("core: endpoint name and url are required")
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.endpoints[endpoint.Name]; ok {
		endpoint.CreatedAt = existing.CreatedAt
	} else {
		endpoint.CreatedAt = now
	}
	endpoint.UpdatedAt = now
	s.endpoints[endpoint.Name] = endpoint
	return endpoint, nil
}

func (s *MemoryEndpointStore) List(_ context.Context) ([]Endpoint, error) {
	if s == nil {
		return nil, fmt.Errorf("core: endpoint store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Endpoint, 0, len(s.endpoints))
	for _, endpoint := range s.endpoints {
		out = append(out, endpoint)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var (
	_ TransactionStore   = (*MemoryTransactionStore)(nil)
	_ BalanceStore       = (*MemoryBalanceStore)(nil)
	_ TransactionApplier = (*MemoryVaultStores)(nil)
	_ SyncStateStore     = (*MemorySyncStateStore)(nil)
	_ EndpointStore      = (*MemoryEndpointStore)(nil)
)
