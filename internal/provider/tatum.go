package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"holder-rewards/internal/domain"
)

// Tatum is the EVM adapter, backed by the Tatum REST API. One instance
// tracks one ERC-20 style token contract on one chain.
type Tatum struct {
	baseURL  string
	apiKey   string
	chain    string
	token    string
	client   *http.Client
	pageSize int
}

// TatumOptions configures the Tatum adapter.
type TatumOptions struct {
	BaseURL  string // default https://api.tatum.io
	APIKey   string
	Chain    string // e.g. "ETH", "MATIC"
	Token    string // token contract address
	Timeout  time.Duration
	PageSize int
}

// NewTatum creates an EVM adapter for one token contract.
func NewTatum(opts TatumOptions) *Tatum {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.tatum.io"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	return &Tatum{
		baseURL:  opts.BaseURL,
		apiKey:   opts.APIKey,
		chain:    opts.Chain,
		token:    opts.Token,
		client:   &http.Client{Timeout: opts.Timeout},
		pageSize: opts.PageSize,
	}
}

// Compile-time interface check.
var _ Adapter = (*Tatum)(nil)

// Name returns the provider key.
func (t *Tatum) Name() string { return KeyTatum }

// get performs one REST call with exponential backoff on transport and
// rate-limit failures.
func (t *Tatum) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	u := t.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("x-api-key", t.apiKey)

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("retryable status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
		}

		if result != nil {
			if err := json.Unmarshal(body, result); err != nil {
				return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
			}
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(DefaultMaxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// FetchLatestCursor returns the current block number.
func (t *Tatum) FetchLatestCursor(ctx context.Context) (int64, error) {
	var head int64
	q := url.Values{"chain": {t.chain}}
	if err := t.get(ctx, "/v3/blockchain/block/current", q, &head); err != nil {
		return 0, err
	}
	return head, nil
}

// ResolveDecimals returns the token's decimal places from its metadata.
func (t *Tatum) ResolveDecimals(ctx context.Context) (int, error) {
	var meta struct {
		Decimals int `json:"decimals"`
	}
	q := url.Values{"chain": {t.chain}, "tokenAddress": {t.token}}
	if err := t.get(ctx, "/v3/blockchain/token/metadata", q, &meta); err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

// tatumTransfer is one token transfer row from the REST API.
type tatumTransfer struct {
	TxHash      string `json:"txId"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"` // integer base units
	BlockNumber int64  `json:"blockNumber"`
	Timestamp   int64  `json:"timestamp"` // unix milliseconds
}

// FetchTransfersSince returns a pager over token transfers strictly after
// the given block. Each transfer row fans out to an "out" entry for the
// sender and an "in" entry for the receiver.
func (t *Tatum) FetchTransfersSince(ctx context.Context, cursor int64) *TransferPager {
	return NewTransferPager(func(ctx context.Context, token string) ([]domain.RawTransfer, string, bool, error) {
		offset := 0
		if token != "" {
			var err error
			offset, err = strconv.Atoi(token)
			if err != nil {
				return nil, "", false, fmt.Errorf("bad page token %q: %w", token, err)
			}
		}

		q := url.Values{
			"chain":        {t.chain},
			"tokenAddress": {t.token},
			"fromBlock":    {strconv.FormatInt(cursor+1, 10)},
			"pageSize":     {strconv.Itoa(t.pageSize)},
			"offset":       {strconv.Itoa(offset)},
		}

		var rows []tatumTransfer
		if err := t.get(ctx, "/v3/blockchain/token/transaction", q, &rows); err != nil {
			return nil, "", false, err
		}

		var transfers []domain.RawTransfer
		for _, row := range rows {
			ts := time.UnixMilli(row.Timestamp).UTC()
			if row.From != "" {
				transfers = append(transfers, domain.RawTransfer{
					TxHash:    row.TxHash,
					Wallet:    row.From,
					Direction: domain.DirectionOut,
					RawAmount: row.Amount,
					Slot:      row.BlockNumber,
					Timestamp: ts,
				})
			}
			if row.To != "" {
				transfers = append(transfers, domain.RawTransfer{
					TxHash:    row.TxHash,
					Wallet:    row.To,
					Direction: domain.DirectionIn,
					RawAmount: row.Amount,
					Slot:      row.BlockNumber,
					Timestamp: ts,
				})
			}
		}

		more := len(rows) == t.pageSize
		return transfers, strconv.Itoa(offset + len(rows)), more, nil
	}, 0)
}

// FetchAllHolders returns a pager over all current token holders.
func (t *Tatum) FetchAllHolders(ctx context.Context, pageSize int) *HolderPager {
	if pageSize <= 0 {
		pageSize = t.pageSize
	}

	return NewHolderPager(func(ctx context.Context, token string) ([]domain.RawHolder, string, bool, error) {
		offset := 0
		if token != "" {
			var err error
			offset, err = strconv.Atoi(token)
			if err != nil {
				return nil, "", false, fmt.Errorf("bad page token %q: %w", token, err)
			}
		}

		q := url.Values{
			"chain":        {t.chain},
			"tokenAddress": {t.token},
			"pageSize":     {strconv.Itoa(pageSize)},
			"offset":       {strconv.Itoa(offset)},
		}

		var rows []struct {
			Address string `json:"address"`
			Balance string `json:"balance"` // integer base units
		}
		if err := t.get(ctx, "/v3/blockchain/token/holders", q, &rows); err != nil {
			return nil, "", false, err
		}

		holders := make([]domain.RawHolder, 0, len(rows))
		for _, row := range rows {
			if row.Address == "" {
				continue
			}
			holders = append(holders, domain.RawHolder{
				Wallet:    row.Address,
				RawAmount: row.Balance,
			})
		}

		more := len(rows) == pageSize
		return holders, strconv.Itoa(offset + len(rows)), more, nil
	}, 0)
}
