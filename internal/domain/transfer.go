package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenTransfer represents one on-chain transfer of the tracked token that
// touched a tracked wallet. TxHash is the idempotency boundary: re-ingesting
// the same hash must be a no-op.
// Corresponds to transfers table in PostgreSQL.
type TokenTransfer struct {
	ID            int64           // BIGSERIAL primary key
	TxHash        string          // globally unique transaction hash/signature
	WalletAddress string          // tracked wallet this transfer affects
	Type          string          // "buy" | "sell"
	Amount        decimal.Decimal // positive token amount
	Slot          int64           // block number or Solana slot
	Timestamp     time.Time       // on-chain time
	CreatedAt     time.Time
}

// Transfer type constants
const (
	TransferTypeBuy  = "buy"
	TransferTypeSell = "sell"
)
