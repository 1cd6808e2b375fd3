package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	VaultErrorBadInput        = "TREASURY_BAD_INPUT"
	VaultErrorUnauthorized    = "TREASURY_UNAUTHORIZED"
	VaultErrorNotConfigured   = "TREASURY_NOT_CONFIGURED"
	VaultErrorFeedUnavailable = "TREASURY_FEED_UNAVAILABLE"
	VaultErrorLedgerRejected  = "TREASURY_LEDGER_REJECTED"
	VaultErrorInternal        = "TREASURY_INTERNAL_ERROR"
)

var (
	ErrUnauthorized  = errors.New("core: caller is not the configured administrator")
	ErrNotConfigured = errors.New("core: required collaborator is not configured")
)

func vaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureVaultErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return newVaultError(err.Error(), goerrors.CategoryAuthz, VaultErrorUnauthorized)
	case errors.Is(err, ErrNotConfigured):
		return newVaultError(err.Error(), goerrors.CategoryOperation, VaultErrorNotConfigured)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "ledger") && strings.Contains(msg, "rejected"):
		return newVaultError(err.Error(), goerrors.CategoryConflict, VaultErrorLedgerRejected)
	case strings.Contains(msg, "feed") && strings.Contains(msg, "unavailable"):
		return newVaultError(err.Error(), goerrors.CategoryOperation, VaultErrorFeedUnavailable)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must"):
		return newVaultError(err.Error(), goerrors.CategoryBadInput, VaultErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureVaultErrorEnvelope(mapped)
}

func newVaultError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureVaultErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureVaultErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = vaultHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultVaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultVaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return VaultErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return VaultErrorUnauthorized
	case goerrors.CategoryConflict:
		return VaultErrorLedgerRejected
	case goerrors.CategoryOperation:
		return VaultErrorNotConfigured
	default:
		return VaultErrorInternal
	}
}

func vaultHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
