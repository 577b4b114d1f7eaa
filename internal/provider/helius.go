package provider

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"holder-rewards/internal/domain"
)

// Helius is the Solana adapter, backed by a Helius JSON-RPC endpoint.
// Transfers are reconstructed from pre/post token balance diffs of the
// transactions touching the mint.
type Helius struct {
	rpc      *rpcClient
	mint     string
	pageSize int
}

// NewHelius creates a Solana adapter for one token mint.
func NewHelius(endpoint, mint string, opts ...ClientOption) *Helius {
	return &Helius{
		rpc:      newRPCClient(endpoint, opts...),
		mint:     mint,
		pageSize: 100,
	}
}

// Compile-time interface check.
var _ Adapter = (*Helius)(nil)

// Name returns the provider key.
func (h *Helius) Name() string { return KeyHelius }

// FetchLatestCursor returns the current slot.
func (h *Helius) FetchLatestCursor(ctx context.Context) (int64, error) {
	var slot int64
	if err := h.rpc.call(ctx, "getSlot", nil, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

// ResolveDecimals returns the mint's decimal places via getTokenSupply.
func (h *Helius) ResolveDecimals(ctx context.Context) (int, error) {
	var result struct {
		Value struct {
			Decimals int `json:"decimals"`
		} `json:"value"`
	}
	if err := h.rpc.call(ctx, "getTokenSupply", []interface{}{h.mint}, &result); err != nil {
		return 0, err
	}
	return result.Value.Decimals, nil
}

// signatureInfo is one getSignaturesForAddress result item.
type signatureInfo struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// tokenBalance is one entry of pre/postTokenBalances.
type tokenBalance struct {
	AccountIndex  int    `json:"accountIndex"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		Amount   string `json:"amount"` // integer base units
		Decimals int    `json:"decimals"`
	} `json:"uiTokenAmount"`
}

// transactionResult is the subset of getTransaction we need.
type transactionResult struct {
	Slot      int64  `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Err               interface{}    `json:"err"`
		PreTokenBalances  []tokenBalance `json:"preTokenBalances"`
		PostTokenBalances []tokenBalance `json:"postTokenBalances"`
	} `json:"meta"`
}

// FetchTransfersSince returns a pager over transfers strictly after cursor.
// Pages walk signatures newest-first; each page's transfers are emitted
// oldest-first so the caller applies them in chain order.
func (h *Helius) FetchTransfersSince(ctx context.Context, cursor int64) *TransferPager {
	return NewTransferPager(func(ctx context.Context, before string) ([]domain.RawTransfer, string, bool, error) {
		config := map[string]interface{}{"limit": h.pageSize}
		if before != "" {
			config["before"] = before
		}

		var sigs []signatureInfo
		if err := h.rpc.call(ctx, "getSignaturesForAddress", []interface{}{h.mint, config}, &sigs); err != nil {
			return nil, "", false, err
		}
		if len(sigs) == 0 {
			return nil, "", false, nil
		}

		var transfers []domain.RawTransfer
		crossedCursor := false
		for _, sig := range sigs {
			if sig.Slot <= cursor {
				crossedCursor = true
				break
			}
			if sig.Err != nil {
				continue
			}
			txTransfers, err := h.transfersFromTransaction(ctx, sig)
			if err != nil {
				return nil, "", false, err
			}
			transfers = append(transfers, txTransfers...)
		}

		// Reverse to oldest-first
		for i, j := 0, len(transfers)-1; i < j; i, j = i+1, j-1 {
			transfers[i], transfers[j] = transfers[j], transfers[i]
		}

		more := !crossedCursor && len(sigs) == h.pageSize
		return transfers, sigs[len(sigs)-1].Signature, more, nil
	}, 0)
}

// transfersFromTransaction diffs pre/post token balances of the tracked
// mint, producing one RawTransfer per wallet whose balance changed.
func (h *Helius) transfersFromTransaction(ctx context.Context, sig signatureInfo) ([]domain.RawTransfer, error) {
	params := []interface{}{
		sig.Signature,
		map[string]interface{}{
			"encoding":                       "json",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var tx transactionResult
	if err := h.rpc.call(ctx, "getTransaction", params, &tx); err != nil {
		return nil, err
	}
	if tx.Meta == nil || tx.Meta.Err != nil {
		return nil, nil
	}

	pre := make(map[string]*big.Int)
	for _, b := range tx.Meta.PreTokenBalances {
		if b.Mint != h.mint || b.Owner == "" {
			continue
		}
		pre[b.Owner] = addRaw(pre[b.Owner], b.UITokenAmount.Amount)
	}

	post := make(map[string]*big.Int)
	for _, b := range tx.Meta.PostTokenBalances {
		if b.Mint != h.mint || b.Owner == "" {
			continue
		}
		post[b.Owner] = addRaw(post[b.Owner], b.UITokenAmount.Amount)
	}

	owners := make(map[string]struct{}, len(pre)+len(post))
	for o := range pre {
		owners[o] = struct{}{}
	}
	for o := range post {
		owners[o] = struct{}{}
	}

	ts := time.Unix(0, 0).UTC()
	if tx.BlockTime != nil {
		ts = time.Unix(*tx.BlockTime, 0).UTC()
	} else if sig.BlockTime != nil {
		ts = time.Unix(*sig.BlockTime, 0).UTC()
	}

	var transfers []domain.RawTransfer
	for owner := range owners {
		delta := new(big.Int)
		if v, ok := post[owner]; ok {
			delta.Set(v)
		}
		if v, ok := pre[owner]; ok {
			delta.Sub(delta, v)
		}
		if delta.Sign() == 0 {
			continue
		}

		direction := domain.DirectionIn
		if delta.Sign() < 0 {
			direction = domain.DirectionOut
			delta.Neg(delta)
		}

		transfers = append(transfers, domain.RawTransfer{
			TxHash:    sig.Signature,
			Wallet:    owner,
			Direction: direction,
			RawAmount: delta.String(),
			Slot:      tx.Slot,
			Timestamp: ts,
		})
	}

	return transfers, nil
}

// addRaw accumulates a base-unit amount string into acc.
func addRaw(acc *big.Int, raw string) *big.Int {
	if acc == nil {
		acc = new(big.Int)
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return acc
	}
	return acc.Add(acc, v)
}

// tokenAccountsResult is the Helius getTokenAccounts response.
type tokenAccountsResult struct {
	TokenAccounts []struct {
		Address string `json:"address"`
		Owner   string `json:"owner"`
		Amount  uint64 `json:"amount"`
	} `json:"token_accounts"`
	Cursor string `json:"cursor"`
}

// FetchAllHolders returns a pager over all current holders of the mint,
// using the Helius getTokenAccounts extension with cursor paging. Token
// accounts of the same owner are summed within a page.
func (h *Helius) FetchAllHolders(ctx context.Context, pageSize int) *HolderPager {
	if pageSize <= 0 {
		pageSize = 1000
	}

	return NewHolderPager(func(ctx context.Context, cursor string) ([]domain.RawHolder, string, bool, error) {
		params := map[string]interface{}{
			"mint":  h.mint,
			"limit": pageSize,
		}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var result tokenAccountsResult
		if err := h.rpc.call(ctx, "getTokenAccounts", []interface{}{params}, &result); err != nil {
			return nil, "", false, err
		}
		if len(result.TokenAccounts) == 0 {
			return nil, "", false, nil
		}

		totals := make(map[string]*big.Int)
		var order []string
		for _, acct := range result.TokenAccounts {
			if acct.Owner == "" {
				continue
			}
			if _, seen := totals[acct.Owner]; !seen {
				order = append(order, acct.Owner)
			}
			totals[acct.Owner] = addRaw(totals[acct.Owner], fmt.Sprintf("%d", acct.Amount))
		}

		holders := make([]domain.RawHolder, 0, len(order))
		for _, owner := range order {
			holders = append(holders, domain.RawHolder{
				Wallet:    owner,
				RawAmount: totals[owner].String(),
			})
		}

		more := result.Cursor != "" && len(result.TokenAccounts) == pageSize
		return holders, result.Cursor, more, nil
	}, 0)
}
