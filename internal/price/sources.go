package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const defaultHTTPTimeout = 10 * time.Second

// httpGet performs a GET and decodes the JSON body into result.
func httpGet(ctx context.Context, client *http.Client, url string, headers map[string]string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// DexScreener reads the token's best pair price from the DexScreener API.
type DexScreener struct {
	baseURL string
	client  *http.Client
}

// NewDexScreener creates a DexScreener source. baseURL "" uses production.
func NewDexScreener(baseURL string) *DexScreener {
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com"
	}
	return &DexScreener{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Name identifies the source in logs.
func (d *DexScreener) Name() string { return "dexscreener" }

// TokenPriceUSD returns the most liquid pair's USD price.
func (d *DexScreener) TokenPriceUSD(ctx context.Context, token string) (decimal.Decimal, error) {
	var result struct {
		Pairs []struct {
			PriceUSD  string `json:"priceUsd"`
			Liquidity struct {
				USD float64 `json:"usd"`
			} `json:"liquidity"`
		} `json:"pairs"`
	}

	url := fmt.Sprintf("%s/latest/dex/tokens/%s", d.baseURL, token)
	if err := httpGet(ctx, d.client, url, nil, &result); err != nil {
		return decimal.Zero, err
	}
	if len(result.Pairs) == 0 {
		return decimal.Zero, nil
	}

	best := result.Pairs[0]
	for _, p := range result.Pairs[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}
	if best.PriceUSD == "" {
		return decimal.Zero, nil
	}

	p, err := decimal.NewFromString(best.PriceUSD)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", best.PriceUSD, err)
	}
	return p, nil
}

// Birdeye reads the token price from the Birdeye public API.
type Birdeye struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewBirdeye creates a Birdeye source. baseURL "" uses production.
func NewBirdeye(baseURL, apiKey string) *Birdeye {
	if baseURL == "" {
		baseURL = "https://public-api.birdeye.so"
	}
	return &Birdeye{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Name identifies the source in logs.
func (b *Birdeye) Name() string { return "birdeye" }

// TokenPriceUSD returns Birdeye's token price.
func (b *Birdeye) TokenPriceUSD(ctx context.Context, token string) (decimal.Decimal, error) {
	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Value float64 `json:"value"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/defi/price?address=%s", b.baseURL, token)
	headers := map[string]string{"X-API-KEY": b.apiKey}
	if err := httpGet(ctx, b.client, url, headers, &result); err != nil {
		return decimal.Zero, err
	}
	if !result.Success || result.Data.Value <= 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(result.Data.Value), nil
}

// Raydium reads the token price from the Raydium price list.
type Raydium struct {
	baseURL string
	client  *http.Client
}

// NewRaydium creates a Raydium source. baseURL "" uses production.
func NewRaydium(baseURL string) *Raydium {
	if baseURL == "" {
		baseURL = "https://api.raydium.io"
	}
	return &Raydium{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Name identifies the source in logs.
func (r *Raydium) Name() string { return "raydium" }

// TokenPriceUSD returns Raydium's token price.
func (r *Raydium) TokenPriceUSD(ctx context.Context, token string) (decimal.Decimal, error) {
	var result map[string]float64

	url := fmt.Sprintf("%s/v2/main/price", r.baseURL)
	if err := httpGet(ctx, r.client, url, nil, &result); err != nil {
		return decimal.Zero, err
	}

	v, ok := result[token]
	if !ok || v <= 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(v), nil
}

// Compile-time interface checks.
var (
	_ Source = (*DexScreener)(nil)
	_ Source = (*Birdeye)(nil)
	_ Source = (*Raydium)(nil)
)
