// Package ledger issues outbound transfers against the token ledger.
// Unlike the feed, ledger calls are never fail-safe: a rejection must
// reach the caller with the ledger's own reason attached.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-treasury/core"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxResponseBodyBytes  = 1 << 20
	transferPathSuffix    = "/transfer"
)

var ErrLedgerUnavailable = errors.New("ledger: request failed")

// Rejection codes the ledger is known to return. Anything else surfaces
// with the raw code string.
const (
	RejectionInsufficientFunds      = "insufficient_funds"
	RejectionBadFee                 = "bad_fee"
	RejectionDuplicate              = "duplicate"
	RejectionTemporarilyUnavailable = "temporarily_unavailable"
)

// RejectionError is a transfer the ledger refused. Message carries the
// ledger's reason verbatim.
type RejectionError struct {
	Code    string
	Message string
	Detail  uint64
}

func (e *RejectionError) Error() string {
	message := strings.TrimSpace(e.Message)
	if message == "" {
		message = e.Code
	}
	return fmt.Sprintf("ledger rejected transfer: %s", message)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
	Logger         core.Logger
}

// Client executes transfers against the ledger endpoint.
type Client struct {
	config     ClientConfig
	httpClient HTTPDoer
	logger     core.Logger
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		config: ClientConfig{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			RequestTimeout: timeout,
		},
		httpClient: httpClient,
		logger:     glog.Ensure(cfg.Logger),
	}
}

// Transfer submits one transfer and returns the ledger-assigned
// transaction id. A *RejectionError means the ledger refused the
// transfer; every other error means the outcome is unknown.
func (c *Client) Transfer(ctx context.Context, to string, amount uint64) (uint64, error) {
	if c == nil || c.httpClient == nil {
		return 0, fmt.Errorf("%w: http client is not configured", ErrLedgerUnavailable)
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return 0, fmt.Errorf("ledger: destination is required")
	}
	if amount == 0 {
		return 0, fmt.Errorf("ledger: amount must be positive")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return 0, fmt.Errorf("%w: base url is not configured", ErrLedgerUnavailable)
	}

	payload, err := json.Marshal(transferRequest{To: to, Amount: amount})
	if err != nil {
		return 0, fmt.Errorf("%w: encode request: %v", ErrLedgerUnavailable, err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx := ctx
	cancel := func() {}
	if c.config.RequestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		c.config.BaseURL+transferPathSuffix,
		bytes.NewReader(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", ErrLedgerUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return 0, fmt.Errorf("%w: read response: %v", ErrLedgerUnavailable, readErr)
	}
	if int64(len(body)) > maxResponseBodyBytes {
		return 0, fmt.Errorf("%w: response exceeds %d bytes", ErrLedgerUnavailable, maxResponseBodyBytes)
	}

	var envelope transferResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &envelope); err != nil {
			return 0, fmt.Errorf("%w: decode response: %v", ErrLedgerUnavailable, err)
		}
	}

	if envelope.Error != nil {
		rejection := &RejectionError{
			Code:    strings.TrimSpace(envelope.Error.Code),
			Message: strings.TrimSpace(envelope.Error.Message),
			Detail:  envelope.Error.Detail,
		}
		c.logger.Warn("ledger rejected transfer",
			"code", rejection.Code,
			"message", rejection.Message,
		)
		return 0, rejection
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return 0, fmt.Errorf("%w: unexpected status %d", ErrLedgerUnavailable, response.StatusCode)
	}
	if envelope.TxID == nil {
		return 0, fmt.Errorf("%w: response missing tx id", ErrLedgerUnavailable)
	}
	return *envelope.TxID, nil
}

type transferRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type transferResponse struct {
	TxID  *uint64        `json:"tx_id,omitempty"`
	Error *transferError `json:"error,omitempty"`
}

type transferError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  uint64 `json:"detail,omitempty"`
}

var _ core.LedgerClient = (*Client)(nil)
