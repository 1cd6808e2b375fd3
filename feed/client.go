// Package feed talks to the transaction indexer that observes the token
// ledger. The client is deliberately fail-safe: a page that cannot be
// fetched or decoded is reported as empty, never as partial data.
package feed

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
	defaultRequestTimeout  = 30 * time.Second
	maxResponseBodyBytes   = 1 << 20
	transactionsPathSuffix = "/get_account_transactions"
)

var ErrFeedUnavailable = errors.New("feed: indexer unavailable")

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type IndexerClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
	Logger         core.Logger
	Now            func() time.Time
}

// IndexerClient fetches account transaction pages over HTTP.
type IndexerClient struct {
	config     IndexerClientConfig
	httpClient HTTPDoer
	logger     core.Logger
}

func NewIndexerClient(cfg IndexerClientConfig) *IndexerClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &IndexerClient{
		config: IndexerClientConfig{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			RequestTimeout: timeout,
			Now:            now,
		},
		httpClient: httpClient,
		logger:     glog.Ensure(cfg.Logger),
	}
}

// Fetch returns one page of the account's feed, newest first. Transport,
// status, and decode failures all degrade to the empty page with a nil
// error so a broken indexer can never masquerade as observed data.
func (c *IndexerClient) Fetch(
	ctx context.Context,
	account string,
	maxResults int,
	startTxID *uint64,
) (core.FeedPage, error) {
	page, err := c.fetchPage(ctx, account, maxResults, startTxID)
	if err != nil {
		c.logger.Warn("feed fetch degraded to empty page",
			"account", account,
			"error", err.Error(),
		)
		return core.FeedPage{}, nil
	}
	return page, nil
}

func (c *IndexerClient) fetchPage(
	ctx context.Context,
	account string,
	maxResults int,
	startTxID *uint64,
) (core.FeedPage, error) {
	if c == nil || c.httpClient == nil {
		return core.FeedPage{}, fmt.Errorf("%w: http client is not configured", ErrFeedUnavailable)
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return core.FeedPage{}, fmt.Errorf("%w: account is required", ErrFeedUnavailable)
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return core.FeedPage{}, fmt.Errorf("%w: base url is not configured", ErrFeedUnavailable)
	}
	if maxResults <= 0 {
		maxResults = core.DefaultMaxResults
	}

	payload, err := json.Marshal(transactionsRequest{
		Account:    account,
		MaxResults: maxResults,
		Start:      startTxID,
	})
	if err != nil {
		return core.FeedPage{}, fmt.Errorf("%w: encode request: %v", ErrFeedUnavailable, err)
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
		c.config.BaseURL+transactionsPathSuffix,
		bytes.NewReader(payload),
	)
	if err != nil {
		return core.FeedPage{}, fmt.Errorf("%w: build request: %v", ErrFeedUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.FeedPage{}, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return core.FeedPage{}, fmt.Errorf("%w: read response: %v", ErrFeedUnavailable, readErr)
	}
	if int64(len(body)) > maxResponseBodyBytes {
		return core.FeedPage{}, fmt.Errorf("%w: response exceeds %d bytes", ErrFeedUnavailable, maxResponseBodyBytes)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return core.FeedPage{}, fmt.Errorf("%w: unexpected status %d", ErrFeedUnavailable, response.StatusCode)
	}

	var envelope transactionsResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return core.FeedPage{}, fmt.Errorf("%w: decode response: %v", ErrFeedUnavailable, err)
	}

	return c.flattenPage(envelope), nil
}

// flattenPage converts the kind-discriminated wire entries into flat feed
// transactions. Entries with an unknown kind or missing movement are feed
// noise and are dropped with a warning.
func (c *IndexerClient) flattenPage(envelope transactionsResponse) core.FeedPage {
	page := core.FeedPage{
		Balance:    envelope.Balance,
		OldestTxID: envelope.OldestTxID,
	}
	for _, entry := range envelope.Transactions {
		kind, err := core.ParseTransactionKind(entry.Transaction.Kind)
		if err != nil {
			c.logger.Warn("dropping feed entry with unknown kind",
				"tx_id", entry.ID,
				"kind", entry.Transaction.Kind,
			)
			continue
		}
		movement := entry.Transaction.movement(kind)
		if movement == nil {
			c.logger.Warn("dropping feed entry without movement payload",
				"tx_id", entry.ID,
				"kind", string(kind),
			)
			continue
		}
		page.Transactions = append(page.Transactions, core.FeedTransaction{
			ID:        entry.ID,
			Kind:      kind,
			From:      movement.From,
			To:        movement.To,
			Amount:    movement.Amount,
			Timestamp: entry.Transaction.Timestamp,
		})
	}
	return page
}

type transactionsRequest struct {
	Account    string  `json:"account"`
	MaxResults int     `json:"max_results"`
	Start      *uint64 `json:"start,omitempty"`
}

type transactionsResponse struct {
	Balance      uint64             `json:"balance"`
	Transactions []transactionEntry `json:"transactions"`
	OldestTxID   *uint64            `json:"oldest_tx_id,omitempty"`
}

type transactionEntry struct {
	ID          uint64             `json:"id"`
	Transaction transactionPayload `json:"transaction"`
}

type transactionPayload struct {
	Kind      string        `json:"kind"`
	Timestamp uint64        `json:"timestamp"`
	Transfer  *movementBody `json:"transfer,omitempty"`
	Mint      *movementBody `json:"mint,omitempty"`
	Burn      *movementBody `json:"burn,omitempty"`
}

type movementBody struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Amount uint64 `json:"amount"`
}

func (p transactionPayload) movement(kind core.TransactionKind) *movementBody {
	switch kind {
	case core.TransactionKindMint:
		return p.Mint
	case core.TransactionKindBurn:
		return p.Burn
	default:
		return p.Transfer
	}
}

var _ core.FeedClient = (*IndexerClient)(nil)
