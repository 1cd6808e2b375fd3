package command

import (
	"context"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-treasury/core"
)

type stubMutatingService struct {
	refreshFn     func(ctx context.Context) (core.SyncSummary, error)
	transferFn    func(ctx context.Context, req core.TransferRequest) (uint64, error)
	setEndpointFn func(ctx context.Context, endpoint core.Endpoint) (core.Endpoint, error)
}

func (s stubMutatingService) Refresh(ctx context.Context) (core.SyncSummary, error) {
	if s.refreshFn == nil {
		return core.SyncSummary{}, fmt.Errorf("refresh not stubbed")
	}
	return s.refreshFn(ctx)
}

func (s stubMutatingService) Transfer(ctx context.Context, req core.TransferRequest) (uint64, error) {
	if s.transferFn == nil {
		return 0, fmt.Errorf("transfer not stubbed")
	}
	return s.transferFn(ctx, req)
}

func (s stubMutatingService) SetEndpoint(ctx context.Context, endpoint core.Endpoint) (core.Endpoint, error) {
	if s.setEndpointFn == nil {
		return core.Endpoint{}, fmt.Errorf("set endpoint not stubbed")
	}
	return s.setEndpointFn(ctx, endpoint)
}

func TestRefreshCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := core.SyncSummary{NewTransactions: 3, Status: core.SyncStatusSynced, ScanEndTxID: 12}
	called := false

	svc := stubMutatingService{
		refreshFn: func(context.Context) (core.SyncSummary, error) {
			called = true
			return expected, nil
		},
	}

	cmd := NewRefreshCommand(svc)
	collector := gocmd.NewResult[core.SyncSummary]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, RefreshMessage{}); err != nil {
		t.Fatalf("execute refresh: %v", err)
	}
	if !called {
		t.Fatalf("expected refresh invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.NewTransactions != expected.NewTransactions || result.ScanEndTxID != expected.ScanEndTxID {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestTransferCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	svc := stubMutatingService{
		transferFn: func(_ context.Context, req core.TransferRequest) (uint64, error) {
			called = true
			if req.Destination != "grace" || req.Amount != 100 {
				t.Fatalf("unexpected transfer request: %#v", req)
			}
			return 42, nil
		},
	}

	cmd := NewTransferCommand(svc)
	collector := gocmd.NewResult[uint64]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, TransferMessage{Request: core.TransferRequest{
		Caller:      "admin-1",
		Destination: "grace",
		Amount:      100,
	}})
	if err != nil {
		t.Fatalf("execute transfer: %v", err)
	}
	if !called {
		t.Fatalf("expected transfer invocation")
	}
	stored, ok := collector.Load()
	if !ok {
		t.Fatalf("expected tx id result")
	}
	if stored != 42 {
		t.Fatalf("expected tx id 42, got %d", stored)
	}
}

func TestTransferCommand_PropagatesServiceError(t *testing.T) {
	svc := stubMutatingService{
		transferFn: func(context.Context, core.TransferRequest) (uint64, error) {
			return 0, fmt.Errorf("ledger rejected transfer: insufficient funds")
		},
	}

	cmd := NewTransferCommand(svc)
	err := cmd.Execute(context.Background(), TransferMessage{Request: core.TransferRequest{
		Destination: "grace",
		Amount:      1,
	}})
	if err == nil {
		t.Fatalf("expected service error to propagate")
	}
}

func TestSetEndpointCommand_ExecuteDelegates(t *testing.T) {
	called := false
	svc := stubMutatingService{
		setEndpointFn: func(_ context.Context, endpoint core.Endpoint) (core.Endpoint, error) {
			called = true
			if endpoint.Name != core.EndpointLedger {
				t.Fatalf("unexpected endpoint: %#v", endpoint)
			}
			return endpoint, nil
		},
	}

	cmd := NewSetEndpointCommand(svc)
	err := cmd.Execute(context.Background(), SetEndpointMessage{Endpoint: core.Endpoint{
		Name: core.EndpointLedger,
		URL:  "https://ledger.internal",
	}})
	if err != nil {
		t.Fatalf("execute set endpoint: %v", err)
	}
	if !called {
		t.Fatalf("expected set endpoint invocation")
	}
}

func TestMessages_Validate(t *testing.T) {
	if err := (RefreshMessage{}).Validate(); err != nil {
		t.Fatalf("refresh message should validate: %v", err)
	}
	if err := (TransferMessage{}).Validate(); err == nil {
		t.Fatalf("expected empty transfer message to fail validation")
	}
	if err := (SetEndpointMessage{}).Validate(); err == nil {
		t.Fatalf("expected empty endpoint message to fail validation")
	}
	msg := TransferMessage{Request: core.TransferRequest{Destination: "grace", Amount: 1}}
	if err := msg.Validate(); err != nil {
		t.Fatalf("transfer message should validate: %v", err)
	}
}

func TestCommands_RequireService(t *testing.T) {
	if err := (&RefreshCommand{}).Execute(context.Background(), RefreshMessage{}); err == nil {
		t.Fatalf("expected dependency error without service")
	}
	if err := (&TransferCommand{}).Execute(context.Background(), TransferMessage{}); err == nil {
		t.Fatalf("expected dependency error without service")
	}
	if err := (&SetEndpointCommand{}).Execute(context.Background(), SetEndpointMessage{}); err == nil {
		t.Fatalf("expected dependency error without service")
	}
}
