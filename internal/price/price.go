// Package price resolves the tracked token's USD price from public market
// data APIs. Price is decorative: a zero price degrades USD fields but never
// blocks a sync cycle.
package price

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrNoPrice is returned when no source could produce a positive price.
var ErrNoPrice = errors.New("no source returned a price")

// Source produces a USD price for a token.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// TokenPriceUSD returns the token's USD price. A zero price with nil
	// error means the source knows nothing about the token.
	TokenPriceUSD(ctx context.Context, token string) (decimal.Decimal, error)
}

// Chain tries sources in order until one returns a positive price.
type Chain struct {
	sources []Source
	log     *logrus.Logger
}

// NewChain creates a price chain. Order matters: earlier sources win.
func NewChain(log *logrus.Logger, sources ...Source) *Chain {
	if log == nil {
		log = logrus.New()
	}
	return &Chain{sources: sources, log: log}
}

// Name identifies the chain in logs.
func (c *Chain) Name() string { return "chain" }

// TokenPriceUSD walks the chain. Source failures are logged and skipped;
// ErrNoPrice is returned only when every source came up empty.
func (c *Chain) TokenPriceUSD(ctx context.Context, token string) (decimal.Decimal, error) {
	for _, s := range c.sources {
		p, err := s.TokenPriceUSD(ctx, token)
		if err != nil {
			c.log.WithError(err).WithField("source", s.Name()).Debug("price source failed")
			continue
		}
		if p.IsPositive() {
			return p, nil
		}
		c.log.WithField("source", s.Name()).WithField("token", token).Debug("price source returned no price")
	}
	return decimal.Zero, ErrNoPrice
}

// Verify interface compliance at compile time.
var _ Source = (*Chain)(nil)
