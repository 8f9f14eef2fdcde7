package orders

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNumber_Format(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		n := NewOrderNumber(now)
		assert.True(t, ValidOrderNumber(n), "format salah: %s", n)
		assert.True(t, strings.HasPrefix(n, "ORD-1748772000-"))
	}
}

func TestValidOrderNumber(t *testing.T) {
	assert.True(t, ValidOrderNumber("ORD-1748772000-042"))
	assert.False(t, ValidOrderNumber("ORD-1748772000-42"))
	assert.False(t, ValidOrderNumber("INV-1748772000-042"))
	assert.False(t, ValidOrderNumber(""))
}
