package memory

import (
	"context"
	"sort"
	"sync"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenTransfer // keyed by tx_hash
}

// NewTransferStore creates a new in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data: make(map[string]*domain.TokenTransfer),
	}
}

// Insert adds a new transfer. Returns ErrDuplicateKey if tx_hash exists.
func (s *TransferStore) Insert(_ context.Context, t *domain.TokenTransfer) error {
	if t == nil || t.TxHash == "" || t.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TxHash]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	transferCopy := *t
	s.data[t.TxHash] = &transferCopy
	return nil
}

// GetByTxHash retrieves a transfer by hash. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByTxHash(_ context.Context, txHash string) (*domain.TokenTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[txHash]
	if !exists {
		return nil, storage.ErrNotFound
	}

	transferCopy := *t
	return &transferCopy, nil
}

// GetByWallet retrieves all transfers for a wallet, ordered by (slot, tx_hash) ASC.
func (s *TransferStore) GetByWallet(_ context.Context, wallet string) ([]*domain.TokenTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenTransfer
	for _, t := range s.data {
		if t.WalletAddress == wallet {
			transferCopy := *t
			result = append(result, &transferCopy)
		}
	}

	// Deterministic order: (slot, tx_hash) ASC
	sort.Slice(result, func(i, j int) bool {
		if result[i].Slot != result[j].Slot {
			return result[i].Slot < result[j].Slot
		}
		return result[i].TxHash < result[j].TxHash
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TransferStore = (*TransferStore)(nil)
