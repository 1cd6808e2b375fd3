package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service is the vault facade: reconciliation, outbound transfers, and the
// read surface consumed by dashboards and sibling extensions.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	accountLocker     AccountLocker
	nowFn             func() time.Time
	feedClient        FeedClient
	ledgerClient      LedgerClient
	transactionStore  TransactionStore
	balanceStore      BalanceStore
	applier           TransactionApplier
	syncStateStore    SyncStateStore
	endpointStore     EndpointStore
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("treasury", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("treasury"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.accountLocker == nil {
		builder.accountLocker = NewMemoryAccountLocker()
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.repositoryFactory != nil &&
		(builder.transactionStore == nil || builder.balanceStore == nil ||
			builder.syncStateStore == nil || builder.endpointStore == nil) {
		provider, buildErr := resolveStoreProvider(builder.repositoryFactory, builder.persistenceClient)
		if buildErr != nil {
			return nil, mapBuildError(builder.errorMapper, buildErr)
		}
		if provider != nil {
			if builder.transactionStore == nil {
				builder.transactionStore = provider.TransactionStore()
			}
			if builder.balanceStore == nil {
				builder.balanceStore = provider.BalanceStore()
			}
			if builder.syncStateStore == nil {
				builder.syncStateStore = provider.SyncStateStore()
			}
			if builder.endpointStore == nil {
				builder.endpointStore = provider.EndpointStore()
			}
			if builder.applier == nil {
				if applier, ok := provider.(TransactionApplier); ok {
					builder.applier = applier
				}
			}
		}
	}

	if builder.transactionStore == nil || builder.balanceStore == nil || builder.applier == nil {
		stores := NewMemoryVaultStores()
		if builder.transactionStore == nil {
			builder.transactionStore = stores.Transactions
		}
		if builder.balanceStore == nil {
			builder.balanceStore = stores.Balances
		}
		if builder.applier == nil {
			builder.applier = stores
		}
	}
	if builder.syncStateStore == nil {
		builder.syncStateStore = NewMemorySyncStateStore()
	}
	if builder.endpointStore == nil {
		builder.endpointStore = NewMemoryEndpointStore()
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		accountLocker:     builder.accountLocker,
		nowFn:             builder.now,
		feedClient:        builder.feedClient,
		ledgerClient:      builder.ledgerClient,
		transactionStore:  builder.transactionStore,
		balanceStore:      builder.balanceStore,
		applier:           builder.applier,
		syncStateStore:    builder.syncStateStore,
		endpointStore:     builder.endpointStore,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func resolveStoreProvider(factory any, persistenceClient any) (StoreProvider, error) {
	switch typed := factory.(type) {
	case RepositoryStoreFactory:
		return typed.BuildStores(persistenceClient)
	case StoreProvider:
		return typed, nil
	default:
		return nil, fmt.Errorf("core: unsupported repository factory type %T", factory)
	}
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// notConfigured reports a missing collaborator through the injected error
// factory, so embedders can decorate dependency errors the same way they
// decorate everything else.
func (s *Service) notConfigured(collaborator string) error {
	factory := goerrors.New
	if s != nil && s.errorFactory != nil {
		factory = s.errorFactory
	}
	message := fmt.Sprintf("%s: %s", ErrNotConfigured.Error(), collaborator)
	built := factory(message, goerrors.CategoryOperation)
	if built == nil {
		return newVaultError(message, goerrors.CategoryOperation, VaultErrorNotConfigured)
	}
	return ensureVaultErrorEnvelope(built.WithTextCode(VaultErrorNotConfigured))
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) now() time.Time {
	if s != nil && s.nowFn != nil {
		return s.nowFn().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// GetBalance returns the vault's net exposure to one counterparty. Unknown
// counterparties read as zero.
func (s *Service) GetBalance(ctx context.Context, counterparty string) (int64, error) {
	if s == nil || s.balanceStore == nil {
		return 0, fmt.Errorf("core: balance store is required")
	}
	counterparty = strings.TrimSpace(counterparty)
	if counterparty == "" {
		return 0, s.mapError(fmt.Errorf("%w: counterparty is required", ErrInvalidAccount))
	}
	balance, err := s.balanceStore.Get(ctx, counterparty)
	if err != nil {
		return 0, s.mapError(err)
	}
	return balance.Amount, nil
}

// GetTransactions lists every recorded transaction touching the given
// counterparty, ascending by id.
func (s *Service) GetTransactions(ctx context.Context, counterparty string) ([]Transaction, error) {
	if s == nil || s.transactionStore == nil {
		return nil, fmt.Errorf("core: transaction store is required")
	}
	counterparty = strings.TrimSpace(counterparty)
	if counterparty == "" {
		return nil, s.mapError(fmt.Errorf("%w: counterparty is required", ErrInvalidAccount))
	}
	txs, err := s.transactionStore.ListByAccount(ctx, counterparty)
	if err != nil {
		return nil, s.mapError(err)
	}
	return txs, nil
}

// GetStatus returns the aggregate vault snapshot: resolved config, scan
// boundaries, all balances, and configured collaborator endpoints.
func (s *Service) GetStatus(ctx context.Context) (VaultStatus, error) {
	if s == nil {
		return VaultStatus{}, fmt.Errorf("core: service is not configured")
	}
	status := VaultStatus{Config: s.config}

	if s.syncStateStore != nil {
		state, err := s.syncStateStore.Get(ctx, s.config.CustodialAccount)
		if err != nil {
			return VaultStatus{}, s.mapError(err)
		}
		status.SyncState = state
	}
	if s.balanceStore != nil {
		balances, err := s.balanceStore.List(ctx)
		if err != nil {
			return VaultStatus{}, s.mapError(err)
		}
		status.Balances = balances
	}
	if s.endpointStore != nil {
		endpoints, err := s.endpointStore.List(ctx)
		if err != nil {
			return VaultStatus{}, s.mapError(err)
		}
		status.Endpoints = endpoints
	}
	return status, nil
}

// SetEndpoint creates or updates a named collaborator endpoint.
func (s *Service) SetEndpoint(ctx context.Context, endpoint Endpoint) (out Endpoint, err error) {
	startedAt := s.now()
	defer func() {
		s.observeOperation(ctx, startedAt, "set_endpoint", err, map[string]any{
			"endpoint": endpoint.Name,
		})
	}()

	if s == nil || s.endpointStore == nil {
		err = fmt.Errorf("core: endpoint store is required")
		return Endpoint{}, err
	}
	out, storeErr := s.endpointStore.Upsert(ctx, endpoint)
	if storeErr != nil {
		err = s.mapError(storeErr)
		return Endpoint{}, err
	}
	return out, nil
}
