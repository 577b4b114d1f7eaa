package provider

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holder-rewards/internal/domain"
)

func TestTransferPager_DrainsAllPages(t *testing.T) {
	pages := [][]domain.RawTransfer{
		{{TxHash: "a"}, {TxHash: "b"}},
		{{TxHash: "c"}},
	}

	pager := NewTransferPager(func(_ context.Context, token string) ([]domain.RawTransfer, string, bool, error) {
		i := 0
		if token != "" {
			i, _ = strconv.Atoi(token)
		}
		return pages[i], strconv.Itoa(i + 1), i+1 < len(pages), nil
	}, 0)

	ctx := context.Background()
	var all []domain.RawTransfer
	for {
		batch, done, err := pager.Next(ctx)
		require.NoError(t, err)
		all = append(all, batch...)
		if done {
			break
		}
	}

	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].TxHash)
	assert.Equal(t, "c", all[2].TxHash)

	// Draining past the end stays done
	batch, done, err := pager.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.True(t, done)
}

func TestTransferPager_PageCap(t *testing.T) {
	pager := NewTransferPager(func(_ context.Context, _ string) ([]domain.RawTransfer, string, bool, error) {
		return []domain.RawTransfer{{TxHash: "x"}}, "", true, nil
	}, 2)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, done, err := pager.Next(ctx)
		require.NoError(t, err)
		require.False(t, done)
	}

	_, _, err := pager.Next(ctx)
	assert.ErrorIs(t, err, ErrPaginationExhausted)
}

func TestTransferPager_FetchError(t *testing.T) {
	fetchErr := errors.New("boom")
	pager := NewTransferPager(func(_ context.Context, _ string) ([]domain.RawTransfer, string, bool, error) {
		return nil, "", false, fetchErr
	}, 0)

	_, _, err := pager.Next(context.Background())
	assert.ErrorIs(t, err, fetchErr)
}

func TestHolderPager_DrainsAllPages(t *testing.T) {
	pages := [][]domain.RawHolder{
		{{Wallet: "w1", RawAmount: "100"}},
		{{Wallet: "w2", RawAmount: "200"}},
		nil,
	}

	pager := NewHolderPager(func(_ context.Context, token string) ([]domain.RawHolder, string, bool, error) {
		i := 0
		if token != "" {
			i, _ = strconv.Atoi(token)
		}
		return pages[i], strconv.Itoa(i + 1), i+1 < len(pages), nil
	}, 0)

	ctx := context.Background()
	var all []domain.RawHolder
	for {
		batch, done, err := pager.Next(ctx)
		require.NoError(t, err)
		all = append(all, batch...)
		if done {
			break
		}
	}

	require.Len(t, all, 2)
	assert.Equal(t, "w1", all[0].Wallet)
	assert.Equal(t, "w2", all[1].Wallet)
}
