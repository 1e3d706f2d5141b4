package velograph_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/velograph"
	"github.com/syssam/velograph/record"
)

func TestMissingContextError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := velograph.NewMissingContextError("namespace")
		assert.Equal(t, "velograph: no namespace specified", err.Error())
	})

	t.Run("IsMissingContext", func(t *testing.T) {
		err := velograph.NewMissingContextError("database")
		assert.True(t, errors.Is(err, velograph.ErrMissingContext))
		assert.True(t, velograph.IsMissingContext(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, velograph.IsMissingContext(velograph.ErrMissingContext))
		assert.False(t, velograph.IsMissingContext(errors.New("other error")))
		assert.False(t, velograph.IsMissingContext(nil))
	})
}

func TestEndpointNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := velograph.NewEndpointNotFoundError(record.New("person", record.Int(1)))
		assert.Equal(t, "velograph: expected a record with id person:1 to exist", err.Error())
		assert.Equal(t, "person:1", err.ID)
	})

	t.Run("IsEndpointNotFound", func(t *testing.T) {
		err := velograph.NewEndpointNotFoundError(record.New("person", record.Str("tobie")))
		assert.True(t, errors.Is(err, velograph.ErrEndpointNotFound))
		assert.True(t, velograph.IsEndpointNotFound(fmt.Errorf("relate: %w", err)))
		assert.False(t, velograph.IsEndpointNotFound(velograph.ErrStorage))
		assert.False(t, velograph.IsEndpointNotFound(nil))
	})
}

func TestEndpointTableError(t *testing.T) {
	err := &velograph.EndpointTableError{ID: "pet:rex", Allowed: []string{"person", "robot"}}
	assert.Equal(t, "velograph: record pet:rex is not in one of the tables person, robot", err.Error())
	assert.ErrorIs(t, err, velograph.ErrEndpointTable)
}

func TestStorageError(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, velograph.NewStorageError("set", nil))
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("disk full")
		err := velograph.NewStorageError("set", underlying)
		require.Error(t, err)
		assert.Equal(t, "velograph: storage set: disk full", err.Error())
		assert.ErrorIs(t, err, underlying)
		assert.ErrorIs(t, err, velograph.ErrStorage)
		assert.True(t, velograph.IsStorageError(fmt.Errorf("wrapper: %w", err)))
		assert.False(t, velograph.IsStorageError(underlying))
		assert.False(t, velograph.IsStorageError(nil))
	})
}

func TestTableNotFoundError(t *testing.T) {
	err := velograph.NewTableNotFoundError("likes")
	assert.Equal(t, `velograph: the table "likes" does not exist`, err.Error())
	assert.True(t, velograph.IsTableNotFound(err))
	assert.True(t, velograph.IsTableNotFound(velograph.ErrTableNotFound))
	assert.False(t, velograph.IsTableNotFound(nil))
}

func TestRollbackError(t *testing.T) {
	cause := errors.New("constraint failed")
	rollback := errors.New("connection lost")
	err := &velograph.RollbackError{Err: cause, Rollback: rollback}
	assert.Equal(t, "velograph: constraint failed: rolling back transaction: connection lost", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, rollback)
}

func TestSentinelErrors(t *testing.T) {
	for _, err := range []error{
		velograph.ErrMissingContext,
		velograph.ErrEndpointNotFound,
		velograph.ErrEndpointTable,
		velograph.ErrStorage,
		velograph.ErrTableNotFound,
		velograph.ErrMissingRecordID,
		velograph.ErrTxFinished,
		velograph.ErrTxReadonly,
	} {
		assert.Contains(t, err.Error(), "velograph: ")
	}
}

func BenchmarkErrors(b *testing.B) {
	b.Run("NewEndpointNotFoundError", func(b *testing.B) {
		id := record.New("person", record.Int(1))
		for i := 0; i < b.N; i++ {
			_ = velograph.NewEndpointNotFoundError(id)
		}
	})

	b.Run("IsStorageError", func(b *testing.B) {
		err := fmt.Errorf("wrapped: %w", velograph.NewStorageError("get", errors.New("io")))
		for i := 0; i < b.N; i++ {
			_ = velograph.IsStorageError(err)
		}
	})
}
