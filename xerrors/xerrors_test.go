package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ctx"))
	assert.NoError(t, Wrapf(nil, "user %d", 1))

	base := errors.New("boom")
	wrapped := Wrap(base, "store")
	require.Error(t, wrapped)
	assert.Equal(t, "store: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)

	assert.Equal(t, "key 7: boom", Wrapf(base, "key %d", 7).Error())
}

func TestWithCode(t *testing.T) {
	assert.NoError(t, WithCode(nil, "X"))

	coded := WithCode(ErrInvalidInput, "step_must_be_positive")
	assert.Equal(t, "[step_must_be_positive] invalid input", coded.Error())
	assert.Equal(t, "step_must_be_positive", GetCode(coded))
	assert.ErrorIs(t, coded, ErrInvalidInput)

	// 外层包装后错误码依然可取
	assert.Equal(t, "step_must_be_positive", GetCode(Wrap(coded, "segment")))
	assert.Empty(t, GetCode(errors.New("plain")))
	assert.Equal(t, "[empty]", (&CodedError{Code: "empty"}).Error())
}

func TestMust(t *testing.T) {
	assert.Equal(t, 42, Must(42, nil))
	assert.Panics(t, func() { Must(0, errors.New("boom")) })
}
