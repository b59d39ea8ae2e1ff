package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/slot-engine/ledger"
	"github.com/warp/slot-engine/settlement"
	"github.com/warp/slot-engine/store/memory"
	"github.com/warp/slot-engine/store/storetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) settlement.TxStore {
		return memory.New()
	})
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithTx(ctx, func(settlement.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryStore_Reset(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx settlement.Tx) error {
		return tx.SaveAccount(ctx, ledger.NewAccount("alice"))
	}))

	require.NoError(t, s.Reset(ctx))

	require.NoError(t, s.WithTx(ctx, func(tx settlement.Tx) error {
		_, err := tx.GetAccount(ctx, "alice")
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
		return nil
	}))
}
