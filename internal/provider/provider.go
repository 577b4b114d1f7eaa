package provider

import (
	"context"
	"errors"

	"holder-rewards/internal/domain"
)

// Provider keys, used for sync cursors and logging.
const (
	KeyHelius = "helius"
	KeyTatum  = "tatum"
)

// Provider errors.
var (
	// ErrProviderUnavailable is returned when the upstream API cannot be
	// reached or keeps failing after retries. Callers back off and retry
	// the whole cycle.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrPaginationExhausted is returned when a pager hits its page cap
	// without reaching the end of the result set.
	ErrPaginationExhausted = errors.New("pagination exhausted: page cap reached")
)

// Adapter is the chain-data access contract. One implementation per
// upstream provider; the rest of the system is provider-agnostic.
type Adapter interface {
	// Name returns the provider key.
	Name() string

	// FetchLatestCursor returns the chain head (slot or block number).
	FetchLatestCursor(ctx context.Context) (int64, error)

	// FetchTransfersSince returns a pager over transfers of the tracked
	// token strictly after the given cursor, oldest first within a page.
	FetchTransfersSince(ctx context.Context, cursor int64) *TransferPager

	// FetchAllHolders returns a pager over the full current holder set.
	FetchAllHolders(ctx context.Context, pageSize int) *HolderPager

	// ResolveDecimals returns the token's decimal places.
	ResolveDecimals(ctx context.Context) (int, error)
}

// HolderHistoryProvider is an optional capability: providers that can
// report aggregated per-wallet history implement it in addition to Adapter.
type HolderHistoryProvider interface {
	// FetchHoldersWithHistory returns up to limit holders with their
	// first/last transfer dates and cumulative amounts.
	FetchHoldersWithHistory(ctx context.Context, limit int) ([]domain.RawHolderHistory, error)
}

// transferFetchFunc fetches one page. Returns the page, whether more pages
// remain, and an opaque continuation token for the next call.
type transferFetchFunc func(ctx context.Context, token string) (batch []domain.RawTransfer, next string, more bool, err error)

// TransferPager is a lazy pull iterator over transfer pages.
type TransferPager struct {
	fetch    transferFetchFunc
	token    string
	pages    int
	maxPages int
	done     bool
}

// NewTransferPager builds a pager around a page fetch function. maxPages
// bounds runaway pagination; <= 0 uses DefaultMaxPages.
func NewTransferPager(fetch transferFetchFunc, maxPages int) *TransferPager {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &TransferPager{fetch: fetch, maxPages: maxPages}
}

// DefaultMaxPages caps pagination loops.
const DefaultMaxPages = 1000

// Next returns the next page. done=true means iteration is complete and the
// returned batch (possibly empty) is the last one.
func (p *TransferPager) Next(ctx context.Context) ([]domain.RawTransfer, bool, error) {
	if p.done {
		return nil, true, nil
	}
	if p.pages >= p.maxPages {
		return nil, false, ErrPaginationExhausted
	}

	batch, next, more, err := p.fetch(ctx, p.token)
	if err != nil {
		return nil, false, err
	}

	p.pages++
	p.token = next
	if !more {
		p.done = true
	}
	return batch, p.done, nil
}

// holderFetchFunc fetches one holder page.
type holderFetchFunc func(ctx context.Context, token string) (batch []domain.RawHolder, next string, more bool, err error)

// HolderPager is a lazy pull iterator over holder pages.
type HolderPager struct {
	fetch    holderFetchFunc
	token    string
	pages    int
	maxPages int
	done     bool
}

// NewHolderPager builds a pager around a page fetch function.
func NewHolderPager(fetch holderFetchFunc, maxPages int) *HolderPager {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &HolderPager{fetch: fetch, maxPages: maxPages}
}

// Next returns the next page. done=true means iteration is complete.
func (p *HolderPager) Next(ctx context.Context) ([]domain.RawHolder, bool, error) {
	if p.done {
		return nil, true, nil
	}
	if p.pages >= p.maxPages {
		return nil, false, ErrPaginationExhausted
	}

	batch, next, more, err := p.fetch(ctx, p.token)
	if err != nil {
		return nil, false, err
	}

	p.pages++
	p.token = next
	if !more {
		p.done = true
	}
	return batch, p.done, nil
}
