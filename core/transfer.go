package core

import (
	"context"
	"fmt"
	"strings"
)

// Transfer moves funds out of the custodial account through the ledger and
// records the resulting transaction together with the counterparty debit.
//
// The ledger call happens first. If it is rejected nothing is recorded and
// no balance moves; the rejection reason is surfaced verbatim. Once the
// ledger accepts, the returned id is recorded even if the caller retries,
// since recorded ids are skipped on re-apply.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (txID uint64, err error) {
	startedAt := s.now()
	defer func() {
		s.observeOperation(ctx, startedAt, "transfer", err, map[string]any{
			"destination": req.Destination,
			"amount":      req.Amount,
			"tx_id":       txID,
		})
	}()

	if s == nil || s.applier == nil {
		err = fmt.Errorf("core: vault stores are required")
		return 0, err
	}
	if validateErr := req.Validate(); validateErr != nil {
		err = s.mapError(validateErr)
		return 0, err
	}
	if authErr := s.authorizeAdmin(req.Caller); authErr != nil {
		err = s.mapError(authErr)
		return 0, err
	}
	if s.ledgerClient == nil {
		err = s.notConfigured("ledger client")
		return 0, err
	}
	account := strings.TrimSpace(s.config.CustodialAccount)
	if account == "" {
		err = s.notConfigured("custodial account")
		return 0, err
	}

	unlock := s.lockAccount(account)
	defer unlock()

	txID, ledgerErr := s.ledgerClient.Transfer(ctx, req.Destination, req.Amount)
	if ledgerErr != nil {
		err = s.mapError(ledgerErr)
		return 0, err
	}

	now := s.now()
	tx := Transaction{
		ID:        txID,
		Kind:      TransactionKindTransfer,
		From:      account,
		To:        req.Destination,
		Amount:    req.Amount,
		Timestamp: uint64(now.UnixNano()),
		CreatedAt: now,
	}
	if _, applyErr := s.applier.ApplyTransaction(ctx, tx, req.Destination, -int64(req.Amount)); applyErr != nil {
		// The ledger already moved the funds. Surface the record failure
		// with the accepted id so the caller can reconcile on the next
		// sync pass rather than retry the ledger call.
		s.logError(ctx, "transfer recorded on ledger but local apply failed", map[string]any{
			"tx_id":       txID,
			"destination": req.Destination,
			"amount":      req.Amount,
			"error":       applyErr.Error(),
		})
		err = s.mapError(applyErr)
		return txID, err
	}

	return txID, nil
}

// authorizeAdmin enforces the admin gate on privileged operations. An
// unset admin account leaves the gate open, matching a vault that has not
// been claimed yet.
func (s *Service) authorizeAdmin(caller string) error {
	admin := strings.TrimSpace(s.config.AdminAccount)
	if admin == "" {
		return nil
	}
	if strings.TrimSpace(caller) == admin {
		return nil
	}
	return fmt.Errorf("%w: caller is not the vault admin", ErrUnauthorized)
}
