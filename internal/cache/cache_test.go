package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTieredLocalOnly 测试无 Redis 时的本地缓存读写
func TestTieredLocalOnly(t *testing.T) {
	c := New(nil, time.Minute, time.Second)
	ctx := context.Background()

	_, ok := c.Get(ctx, Key("us", "90210"))
	assert.False(t, ok)

	c.Set(ctx, Key("us", "90210"), Entry{Status: 200, Body: []byte(`{"post code":"90210"}`)})
	e, ok := c.Get(ctx, Key("us", "90210"))
	require.True(t, ok)
	assert.Equal(t, 200, e.Status)
	assert.JSONEq(t, `{"post code":"90210"}`, string(e.Body))
}

// TestTieredNegativeTTL 测试 404 条目使用更短的过期时间
func TestTieredNegativeTTL(t *testing.T) {
	c := New(nil, time.Minute, 20*time.Millisecond)
	ctx := context.Background()
	c.Set(ctx, "gb:90210", Entry{Status: 404})

	e, ok := c.Get(ctx, "gb:90210")
	require.True(t, ok)
	assert.Equal(t, 404, e.Status)

	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "gb:90210")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestDefaults(t *testing.T) {
	c := New(nil, 0, 0)
	assert.Equal(t, time.Hour, c.ttl)
	assert.Equal(t, 5*time.Minute, c.negTTL)
	assert.Equal(t, "us:2000", Key("us", "2000"))
}
