package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Refresh runs one reconciliation pass: it walks the custodial account's
// feed from the most recent page backwards, applies every transaction it
// has not seen before in ascending id order, and reports how many were new.
//
// The pass commits per transaction. A failure mid-page leaves a correctly
// applied prefix behind; the next pass skips that prefix through the
// recorded-id check, so retrying is always safe.
func (s *Service) Refresh(ctx context.Context) (summary SyncSummary, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"custodial_account": s.Config().CustodialAccount,
	}
	defer func() {
		fields["new_txs_count"] = summary.NewTransactions
		fields["anomalies"] = summary.Anomalies
		s.observeOperation(ctx, startedAt, "refresh", err, fields)
	}()

	if s == nil || s.applier == nil || s.syncStateStore == nil {
		err = fmt.Errorf("core: vault stores are required")
		return SyncSummary{}, err
	}
	if s.feedClient == nil {
		err = s.notConfigured("feed client")
		return SyncSummary{}, err
	}
	account := strings.TrimSpace(s.config.CustodialAccount)
	if account == "" {
		err = s.notConfigured("custodial account")
		return SyncSummary{}, err
	}

	unlock := s.lockAccount(account)
	defer unlock()

	summary.Status = SyncStatusSynced

	var (
		startTxID   *uint64
		scanStart   uint64
		scanOldest  *uint64
		feedBalance *uint64
		sawAnyPage  bool
	)
	pageSize := s.config.pageSize()
	iterations := s.config.iterationBudget()

	for iteration := 0; iteration < iterations; iteration++ {
		page, fetchErr := s.feedClient.Fetch(ctx, account, pageSize, startTxID)
		if fetchErr != nil {
			// Feed failures never mutate state: the pass degrades to
			// whatever prefix was already applied and retries later.
			s.logWarn(ctx, "feed unavailable, aborting sync pass", map[string]any{
				"custodial_account": account,
				"error":             fetchErr.Error(),
			})
			break
		}
		if startTxID == nil {
			// The first page carries the feed's view of the custodial
			// balance; later pages repeat stale snapshots.
			balance := page.Balance
			feedBalance = &balance
		}
		if page.OldestTxID != nil {
			scanOldest = page.OldestTxID
		}
		if len(page.Transactions) == 0 {
			break
		}
		sawAnyPage = true

		txs := append([]FeedTransaction(nil), page.Transactions...)
		sort.Slice(txs, func(i, j int) bool { return txs[i].ID < txs[j].ID })

		pageLow := txs[0].ID
		pageHigh := txs[len(txs)-1].ID
		if pageHigh > scanStart {
			scanStart = pageHigh
		}

		for _, feedTx := range txs {
			applied, applyErr := s.applyFeedTransaction(ctx, account, feedTx)
			if applyErr != nil {
				err = s.mapError(applyErr)
				return summary, err
			}
			switch applied {
			case applyOutcomeNew:
				summary.NewTransactions++
			case applyOutcomeAnomaly:
				summary.Anomalies++
			}
		}

		if len(page.Transactions) < pageSize {
			break
		}
		if page.OldestTxID != nil && pageLow <= *page.OldestTxID {
			break
		}
		if startTxID != nil && pageLow >= *startTxID {
			break
		}
		next := pageLow
		startTxID = &next
	}

	if scanOldest != nil {
		summary.ScanEndTxID = *scanOldest
	}

	if sawAnyPage || scanOldest != nil {
		state, stateErr := s.syncStateStore.Get(ctx, account)
		if stateErr != nil {
			err = s.mapError(stateErr)
			return summary, err
		}
		if scanStart > state.ScanStartTxID {
			state.ScanStartTxID = scanStart
		}
		if scanOldest != nil {
			state.ScanOldestTxID = *scanOldest
			state.ScanEndTxID = *scanOldest
		}
		if feedBalance != nil {
			state.FeedBalance = *feedBalance
		}
		now := s.now()
		state.Account = account
		state.LastSyncedAt = &now
		if _, stateErr := s.syncStateStore.Upsert(ctx, state); stateErr != nil {
			err = s.mapError(stateErr)
			return summary, err
		}
	}

	return summary, nil
}

type applyOutcome int

const (
	applyOutcomeSkipped applyOutcome = iota
	applyOutcomeNew
	applyOutcomeAnomaly
)

// applyFeedTransaction classifies one feed entry against the custodial
// account and records it together with its balance effect. Already
// recorded ids are skipped; transactions touching neither side of the
// custodial account are logged and dropped.
func (s *Service) applyFeedTransaction(
	ctx context.Context,
	account string,
	feedTx FeedTransaction,
) (applyOutcome, error) {
	// Deltas are signed; an amount past MaxInt64 would wrap negative.
	if feedTx.Amount > math.MaxInt64 {
		s.logWarn(ctx, "transaction amount exceeds the signed balance range", map[string]any{
			"tx_id":             feedTx.ID,
			"amount":            feedTx.Amount,
			"custodial_account": account,
		})
		return applyOutcomeAnomaly, nil
	}

	counterparty, delta, ok := classifyDirection(account, feedTx)
	if !ok {
		s.logWarn(ctx, "transaction touches neither side of the custodial account", map[string]any{
			"tx_id":             feedTx.ID,
			"kind":              string(feedTx.Kind),
			"from":              feedTx.From,
			"to":                feedTx.To,
			"custodial_account": account,
		})
		return applyOutcomeAnomaly, nil
	}

	tx := Transaction{
		ID:        feedTx.ID,
		Kind:      feedTx.Kind,
		From:      feedTx.From,
		To:        feedTx.To,
		Amount:    feedTx.Amount,
		Timestamp: feedTx.Timestamp,
		CreatedAt: s.now(),
	}
	applied, err := s.applier.ApplyTransaction(ctx, tx, counterparty, delta)
	if err != nil {
		return applyOutcomeSkipped, err
	}
	if !applied {
		return applyOutcomeSkipped, nil
	}
	return applyOutcomeNew, nil
}

// classifyDirection resolves which counterparty a transaction affects and
// by how much, from the vault's point of view:
//
//	counterparty -> vault   deposit     credit the counterparty
//	vault -> counterparty   withdrawal  debit the counterparty
//	mint to / burn from     test-shape  credit receiver / debit sender
//
// ok=false means the transaction belongs to neither side and is feed
// noise for this account.
func classifyDirection(account string, feedTx FeedTransaction) (counterparty string, delta int64, ok bool) {
	amount := int64(feedTx.Amount)
	switch feedTx.Kind {
	case TransactionKindMint:
		if feedTx.To == account {
			return "", 0, true
		}
		if feedTx.To != "" {
			return feedTx.To, amount, true
		}
		return "", 0, false
	case TransactionKindBurn:
		if feedTx.From == account {
			return "", 0, true
		}
		if feedTx.From != "" {
			return feedTx.From, -amount, true
		}
		return "", 0, false
	default:
		if feedTx.To == account {
			return feedTx.From, amount, true
		}
		if feedTx.From == account {
			return feedTx.To, -amount, true
		}
		return "", 0, false
	}
}

func (s *Service) lockAccount(account string) func() {
	if s == nil || s.accountLocker == nil {
		return func() {}
	}
	return s.accountLocker.Lock(account)
}
