package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-treasury/core"
)

type MutatingService interface {
	Refresh(ctx context.Context) (core.SyncSummary, error)
	Transfer(ctx context.Context, req core.TransferRequest) (uint64, error)
	SetEndpoint(ctx context.Context, endpoint core.Endpoint) (core.Endpoint, error)
}

type RefreshCommand struct {
	service MutatingService
}

func NewRefreshCommand(service MutatingService) *RefreshCommand {
	return &RefreshCommand{service: service}
}

func (c *RefreshCommand) Execute(ctx context.Context, _ RefreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh service is required")
	}
	out, err := c.service.Refresh(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type TransferCommand struct {
	service MutatingService
}

func NewTransferCommand(service MutatingService) *TransferCommand {
	return &TransferCommand{service: service}
}

func (c *TransferCommand) Execute(ctx context.Context, msg TransferMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: transfer service is required")
	}
	out, err := c.service.Transfer(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SetEndpointCommand struct {
	service MutatingService
}

func NewSetEndpointCommand(service MutatingService) *SetEndpointCommand {
	return &SetEndpointCommand{service: service}
}

func (c *SetEndpointCommand) Execute(ctx context.Context, msg SetEndpointMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: endpoint service is required")
	}
	out, err := c.service.SetEndpoint(ctx, msg.Endpoint)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
