package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/booking_engine/internal/repository/base"
)

// newTestTxManager подменяет открытие транзакции: fn получает nil pgx.Tx
func newTestTxManager(maxRetries int, begins *int) *TxManager {
	m := NewTxManager(nil, maxRetries, zap.NewNop())
	m.begin = func(ctx context.Context, fn func(tx pgx.Tx) error) error {
		*begins++
		return fn(nil)
	}
	return m
}

func TestSerializableRetries(t *testing.T) {
	ctx := context.Background()
	serialization := &pgconn.PgError{Code: base.CodeSerializationFailure}

	t.Run("Retries exhausted", func(t *testing.T) {
		var begins, calls int
		m := newTestTxManager(3, &begins)

		err := m.Serializable(ctx, func(tx Tx) error {
			calls++
			require.NotNil(t, tx)
			return fmt.Errorf("commit: %w", serialization)
		})

		require.ErrorIs(t, err, ErrSerialization)
		assert.Contains(t, err.Error(), "40001")
		assert.Equal(t, 3, begins)
		assert.Equal(t, 3, calls)
	})

	t.Run("Succeeds after retry", func(t *testing.T) {
		var begins int
		m := newTestTxManager(3, &begins)

		err := m.Serializable(ctx, func(Tx) error {
			if begins == 1 {
				return &pgconn.PgError{Code: base.CodeDeadlockDetected}
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 2, begins)
	})

	t.Run("Non retryable error is returned as is", func(t *testing.T) {
		var begins int
		m := newTestTxManager(3, &begins)

		err := m.Serializable(ctx, func(Tx) error {
			return fmt.Errorf("create slot locks: %w", ErrLockExists)
		})

		require.ErrorIs(t, err, ErrLockExists)
		assert.False(t, errors.Is(err, ErrSerialization))
		assert.Equal(t, 1, begins)
	})

	t.Run("Cancelled context stops retries", func(t *testing.T) {
		var begins int
		m := newTestTxManager(3, &begins)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := m.Serializable(cctx, func(Tx) error {
			return serialization
		})

		assert.Equal(t, serialization, err)
		assert.Equal(t, 1, begins)
	})

	t.Run("At least one attempt", func(t *testing.T) {
		var begins int
		m := newTestTxManager(0, &begins)

		err := m.Serializable(ctx, func(Tx) error { return serialization })

		require.ErrorIs(t, err, ErrSerialization)
		assert.Equal(t, 1, begins)
	})
}
