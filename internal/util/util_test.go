package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeref(t *testing.T) {
	assert.Equal(t, 0.7, Deref[float64](nil, 0.7))
	assert.Equal(t, 0.2, Deref(Ptr(0.2), 0.7))
	assert.Equal(t, 0, Deref(Ptr(0), 2048))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel...", Truncate("hello", 3))
	assert.Equal(t, "你好...", Truncate("你好世界", 2))
	assert.Equal(t, "", Truncate("hello", 0))
}
