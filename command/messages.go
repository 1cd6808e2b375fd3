package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-treasury/core"
)

const (
	TypeRefresh     = "treasury.command.refresh"
	TypeTransfer    = "treasury.command.transfer"
	TypeSetEndpoint = "treasury.command.endpoint.set"
)

// RefreshMessage triggers one reconciliation pass over the custodial
// account's feed. It carries no payload; the pass is driven by service
// configuration.
type RefreshMessage struct{}

func (RefreshMessage) Type() string { return TypeRefresh }

func (RefreshMessage) Validate() error { return nil }

type TransferMessage struct {
	Request core.TransferRequest
}

func (TransferMessage) Type() string { return TypeTransfer }

func (m TransferMessage) Validate() error {
	if strings.TrimSpace(m.Request.Destination) == "" {
		return fmt.Errorf("command: destination is required")
	}
	if m.Request.Amount == 0 {
		return fmt.Errorf("command: amount must be positive")
	}
	return nil
}

type SetEndpointMessage struct {
	Endpoint core.Endpoint
}

func (SetEndpointMessage) Type() string { return TypeSetEndpoint }

func (m SetEndpointMessage) Validate() error {
	if strings.TrimSpace(m.Endpoint.Name) == "" {
		return fmt.Errorf("command: endpoint name is required")
	}
	if strings.TrimSpace(m.Endpoint.URL) == "" {
		return fmt.Errorf("command: endpoint url is required")
	}
	return nil
}
