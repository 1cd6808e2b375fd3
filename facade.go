package treasury

import (
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	gocommandadapter "github.com/goliatone/go-treasury/adapters/gocommand"
	treasurycommand "github.com/goliatone/go-treasury/command"
	treasuryquery "github.com/goliatone/go-treasury/query"
)

// CommandQueryService is the surface the facade wires handlers against. The
// core Service satisfies it.
type CommandQueryService interface {
	treasurycommand.MutatingService
	treasuryquery.BalanceReader
	treasuryquery.TransactionReader
	treasuryquery.StatusReader
}

type Commands struct {
	Refresh     *treasurycommand.RefreshCommand
	Transfer    *treasurycommand.TransferCommand
	SetEndpoint *treasurycommand.SetEndpointCommand
}

type Queries struct {
	GetBalance       *treasuryquery.GetBalanceQuery
	ListTransactions *treasuryquery.ListTransactionsQuery
	GetStatus        *treasuryquery.GetStatusQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	balanceReader treasuryquery.BalanceReader
}

// WithBalanceReader overrides where balance queries read from, e.g. a cached
// read path layered over the service.
func WithBalanceReader(reader treasuryquery.BalanceReader) FacadeOption {
	return func(options *facadeOptions) {
		options.balanceReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("treasury: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	balanceReader := cfg.balanceReader
	if balanceReader == nil {
		balanceReader = service
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Refresh:     treasurycommand.NewRefreshCommand(service),
		Transfer:    treasurycommand.NewTransferCommand(service),
		SetEndpoint: treasurycommand.NewSetEndpointCommand(service),
	}
	facade.queries = Queries{
		GetBalance:       treasuryquery.NewGetBalanceQuery(balanceReader),
		ListTransactions: treasuryquery.NewListTransactionsQuery(service),
		GetStatus:        treasuryquery.NewGetStatusQuery(service),
	}

	return facade, nil
}

// RegisterHandlers subscribes the facade's command and query handlers on the
// process dispatcher and records them in the registry. On any failure every
// subscription made so far is undone.
func (f *Facade) RegisterHandlers(registry *gocommandadapter.RegistryAdapter) ([]commanddispatcher.Subscription, error) {
	if f == nil {
		return nil, fmt.Errorf("treasury: facade is required")
	}
	if registry == nil {
		registry = gocommandadapter.NewRegistryAdapter(nil)
	}

	subscriptions := make([]commanddispatcher.Subscription, 0, 6)
	unsubscribeAll := func() {
		for _, sub := range subscriptions {
			if sub != nil {
				sub.Unsubscribe()
			}
		}
	}

	refreshSub, err := gocommandadapter.RegisterAndSubscribe(registry, f.commands.Refresh)
	if err != nil {
		unsubscribeAll()
		return nil, err
	}
	subscriptions = append(subscriptions, refreshSub)

	transferSub, err := gocommandadapter.RegisterAndSubscribe(registry, f.commands.Transfer)
	if err != nil {
		unsubscribeAll()
		return nil, err
	}
	subscriptions = append(subscriptions, transferSub)

	endpointSub, err := gocommandadapter.RegisterAndSubscribe(registry, f.commands.SetEndpoint)
	if err != nil {
		unsubscribeAll()
		return nil, err
	}
	subscriptions = append(subscriptions, endpointSub)

	balanceSub, err := gocommandadapter.RegisterAndSubscribeQuery(registry, f.queries.GetBalance)
	if err != nil {
		unsubscribeAll()
		return nil, err
	}
	subscriptions = append(subscriptions, balanceSub)

	transactionsSub, err := gocommandadapter.RegisterAndSubscribeQuery(registry, f.queries.ListTransactions)
	if err != nil {
		unsubscribeAll()
		return nil, err
	}
	subscriptions = append(subscriptions, transactionsSub)

	statusSub, err := gocommandadapter.RegisterAndSubscribeQuery(registry, f.queries.GetStatus)
	if err != nil {
		unsubscribeAll()
		return nil, err
	}
	subscriptions = append(subscriptions, statusSub)

	return subscriptions, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
