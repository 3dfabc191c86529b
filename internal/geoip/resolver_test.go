package geoip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolverFallback 测试未配置数据库时回退默认国家
func TestResolverFallback(t *testing.T) {
	r, err := Open("", "AU")
	require.NoError(t, err)
	defer r.Close()

	c, hit := r.Country("8.8.8.8")
	assert.Equal(t, "AU", c.String())
	assert.False(t, hit)

	c, hit = r.Country("not-an-ip")
	assert.Equal(t, "AU", c.String())
	assert.False(t, hit)
}

func TestResolverMissingFile(t *testing.T) {
	r, err := Open("/nonexistent/GeoLite2-Country.mmdb", "GB")
	require.Error(t, err)
	c, _ := r.Country("8.8.8.8")
	assert.Equal(t, "GB", c.String())
}

func TestNilResolver(t *testing.T) {
	var r *Resolver
	c, hit := r.Country("8.8.8.8")
	assert.Empty(t, c)
	assert.False(t, hit)
	assert.NoError(t, r.Close())
}
