package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferHwmTooLarge(t *testing.T) {
	_, err := NewBuffer(10, 20)
	require.ErrorIs(t, err, ErrHwmTooLarge)
}

func TestBufferDefaultHwm(t *testing.T) {
	buf, err := NewBuffer(100, 0)
	require.NoError(t, err)
	assert.False(t, buf.IsFull())
	require.NoError(t, buf.WriteString(string(make([]byte, 89))))
	assert.False(t, buf.IsFull())
	require.NoError(t, buf.WriteString("x"))
	assert.True(t, buf.IsFull())
}

func TestBufferOverflowScenario(t *testing.T) {
	buf, err := NewBuffer(20, 0)
	require.NoError(t, err)

	require.NoError(t, buf.WriteString("Hello", " World", "!"))
	assert.Equal(t, 12, buf.Len())

	require.NoError(t, buf.WriteString("876543", "21"))
	assert.Equal(t, 20, buf.Len())
	assert.True(t, buf.IsFull())

	err = buf.WriteString("Overflow")
	require.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, 20, buf.Len())
}

func TestBufferFlushClearsAndCopies(t *testing.T) {
	buf, err := NewBuffer(20, 0)
	require.NoError(t, err)
	require.NoError(t, buf.WriteString("abc"))

	batch := buf.Flush()
	assert.Equal(t, []byte("abc"), batch)
	assert.Equal(t, 0, buf.Len())

	require.NoError(t, buf.WriteString("def"))
	assert.Equal(t, []byte("abc"), batch, "flushed batch must not alias the live buffer")
}

func TestBufferFlushEmpty(t *testing.T) {
	buf, err := NewBuffer(20, 0)
	require.NoError(t, err)
	assert.Nil(t, buf.Flush())
}
