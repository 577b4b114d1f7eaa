package units

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultDecimals is used when the provider cannot report the token's
// decimals. 9 matches SPL token convention.
const DefaultDecimals = 9

// DecimalsResolver reports the tracked token's decimal places.
// Satisfied by provider adapters.
type DecimalsResolver interface {
	ResolveDecimals(ctx context.Context) (int, error)
}

// Normalizer converts provider base-unit amount strings into token-unit
// decimals. Decimals are resolved once and cached; resolution failure falls
// back to DefaultDecimals and is retried on the next call.
type Normalizer struct {
	resolver DecimalsResolver
	log      *logrus.Logger

	mu       sync.Mutex
	decimals int
	resolved bool
}

// NewNormalizer creates a Normalizer around a resolver.
func NewNormalizer(resolver DecimalsResolver, log *logrus.Logger) *Normalizer {
	if log == nil {
		log = logrus.New()
	}
	return &Normalizer{resolver: resolver, log: log}
}

// Decimals returns the token's decimal places, resolving on first use.
func (n *Normalizer) Decimals(ctx context.Context) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.resolved {
		return n.decimals
	}

	d, err := n.resolver.ResolveDecimals(ctx)
	if err != nil {
		n.log.WithError(err).Warnf("resolve token decimals failed, assuming %d", DefaultDecimals)
		return DefaultDecimals
	}
	if d < 0 {
		n.log.Warnf("provider reported negative decimals %d, assuming %d", d, DefaultDecimals)
		return DefaultDecimals
	}

	n.decimals = d
	n.resolved = true
	return n.decimals
}

// Normalize converts a base-unit integer string into token units:
// raw * 10^-decimals.
func (n *Normalizer) Normalize(ctx context.Context, raw string) (decimal.Decimal, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("unparseable raw amount %q", raw)
	}
	return decimal.NewFromBigInt(v, -int32(n.Decimals(ctx))), nil
}
