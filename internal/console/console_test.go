package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyboardFeedAndGetcIsFIFO(t *testing.T) {
	k := NewKeyboard()
	k.Feed([]byte("ab"))

	c, ok := k.Getc()
	assert.True(t, ok)
	assert.Equal(t, byte('a'), c)

	c, ok = k.Getc()
	assert.True(t, ok)
	assert.Equal(t, byte('b'), c)

	_, ok = k.Getc()
	assert.False(t, ok)
}

func TestDisplayWriteAndDrain(t *testing.T) {
	d := NewDisplay()
	n := d.Write([]byte("hi"))
	assert.Equal(t, 2, n)

	out := d.Drain()
	assert.Equal(t, "hi", string(out))
	assert.Empty(t, d.Drain())
}
