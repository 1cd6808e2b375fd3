// Package sync drives scheduled reconciliation passes through the job queue
// contracts: a ticker enqueues one refresh message per interval and the
// processing loop dequeues and executes them against the vault service.
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-treasury/adapters/gojob"
	"github.com/goliatone/go-treasury/core"
)

const (
	defaultInterval    = time.Minute
	defaultRetryDelay  = 10 * time.Second
	defaultMaxAttempts = 3
)

// RefreshService is the slice of the vault service the worker needs.
type RefreshService interface {
	Refresh(ctx context.Context) (core.SyncSummary, error)
}

type Worker struct {
	Service  RefreshService
	Enqueuer core.JobEnqueuer
	Dequeuer core.JobDequeuer
	Hook     core.JobWorkerHook
	Logger   core.Logger

	// Account is the custodial account the refresh messages are keyed by.
	Account string

	Interval    time.Duration
	RetryDelay  time.Duration
	MaxAttempts int

	Now func() time.Time
}

func NewWorker(service RefreshService, enqueuer core.JobEnqueuer, dequeuer core.JobDequeuer, account string) *Worker {
	return &Worker{
		Service:     service,
		Enqueuer:    enqueuer,
		Dequeuer:    dequeuer,
		Account:     strings.TrimSpace(account),
		Interval:    defaultInterval,
		RetryDelay:  defaultRetryDelay,
		MaxAttempts: defaultMaxAttempts,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// EnqueueRefresh schedules one reconciliation pass for the worker's account.
func (w *Worker) EnqueueRefresh(ctx context.Context) error {
	if w == nil || w.Enqueuer == nil {
		return fmt.Errorf("sync: worker requires an enqueuer")
	}
	account := strings.TrimSpace(w.Account)
	if account == "" {
		return fmt.Errorf("sync: custodial account is required")
	}
	return w.Enqueuer.Enqueue(ctx, gojob.NewRefreshMessage(account))
}

// ProcessOne dequeues one delivery and runs a refresh pass against it. A
// failed pass is requeued with the retry delay until MaxAttempts, then dead
// lettered. A nil delivery means the queue is drained.
func (w *Worker) ProcessOne(ctx context.Context) error {
	if w == nil || w.Service == nil || w.Dequeuer == nil {
		return fmt.Errorf("sync: worker requires a service and a dequeuer")
	}
	delivery, err := w.Dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}

	msg := delivery.Message()
	event := core.JobWorkerEvent{
		Message:   msg,
		Attempt:   attemptFrom(msg),
		StartedAt: w.now(),
	}
	w.notify(func(hook core.JobWorkerHook) { hook.OnStart(ctx, event) })

	summary, refreshErr := w.Service.Refresh(ctx)
	if refreshErr != nil {
		event.Err = refreshErr
		if event.Attempt >= w.maxAttempts() {
			w.notify(func(hook core.JobWorkerHook) { hook.OnFailure(ctx, event) })
			w.logger().Error("refresh job dead lettered",
				"attempt", event.Attempt,
				"error", refreshErr,
			)
			return delivery.Nack(ctx, core.JobNackOptions{
				DeadLetter: true,
				Reason:     refreshErr.Error(),
			})
		}
		event.Delay = w.retryDelay()
		w.notify(func(hook core.JobWorkerHook) { hook.OnRetry(ctx, event) })
		w.logger().Warn("refresh job requeued",
			"attempt", event.Attempt,
			"delay", event.Delay,
			"error", refreshErr,
		)
		return delivery.Nack(ctx, core.JobNackOptions{
			Requeue: true,
			Delay:   event.Delay,
			Reason:  refreshErr.Error(),
		})
	}

	w.notify(func(hook core.JobWorkerHook) { hook.OnSuccess(ctx, event) })
	w.logger().Debug("refresh job completed",
		"new_txs_count", summary.NewTransactions,
		"anomalies", summary.Anomalies,
	)
	return delivery.Ack(ctx)
}

// Run enqueues and processes a refresh pass every interval until the context
// is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.Service == nil || w.Enqueuer == nil || w.Dequeuer == nil {
		return fmt.Errorf("sync: worker requires a service, enqueuer and dequeuer")
	}

	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.EnqueueRefresh(ctx); err != nil {
				w.logger().Error("enqueue refresh failed", "error", err)
				continue
			}
			if err := w.ProcessOne(ctx); err != nil {
				w.logger().Error("process refresh failed", "error", err)
			}
		}
	}
}

func (w *Worker) interval() time.Duration {
	if w != nil && w.Interval > 0 {
		return w.Interval
	}
	return defaultInterval
}

func (w *Worker) retryDelay() time.Duration {
	if w != nil && w.RetryDelay > 0 {
		return w.RetryDelay
	}
	return defaultRetryDelay
}

func (w *Worker) maxAttempts() int {
	if w != nil && w.MaxAttempts > 0 {
		return w.MaxAttempts
	}
	return defaultMaxAttempts
}

func (w *Worker) now() time.Time {
	if w != nil && w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func (w *Worker) logger() core.Logger {
	if w != nil && w.Logger != nil {
		return w.Logger
	}
	return glog.Nop()
}

func (w *Worker) notify(fn func(core.JobWorkerHook)) {
	if w == nil || w.Hook == nil {
		return
	}
	fn(w.Hook)
}

func attemptFrom(msg *core.JobExecutionMessage) int {
	if msg == nil || len(msg.Parameters) == 0 {
		return 1
	}
	switch value := msg.Parameters["attempt"].(type) {
	case int:
		if value > 0 {
			return value
		}
	case float64:
		if value > 0 {
			return int(value)
		}
	}
	return 1
}
