// 包 config：集中读取环境变量配置（.env 由主入口通过 godotenv 预先加载），提供默认值与面板校验
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"postcode-api/internal/postcode"
	"postcode-api/internal/zippo"

	"github.com/pkg/errors"
)

// Config：服务运行参数；面板在进程生命周期内固定
type Config struct {
	Addr      string
	APIBase   string
	ZippoBase string
	Panel     postcode.Panel

	DebounceDelay   time.Duration
	MinLength       int
	UpstreamTimeout time.Duration
	PoolSize        int

	CacheTTL         time.Duration
	CacheNegativeTTL time.Duration

	RedisEnable bool
	PGEnable    bool

	GeoIPPath      string
	DefaultCountry postcode.CountryCode

	RateLimitEnabled bool
	RateLimitQPS     float64
	RateLimitBurst   int

	TLSEnable bool
	TLSCert   string
	TLSKey    string
}

// FromEnv：读取环境变量；仅面板与默认国家非法时返回错误，其余数值解析失败回退默认值
func FromEnv() (Config, error) {
	c := Config{
		Addr:             str("ADDR", ":8080"),
		APIBase:          strings.TrimRight(str("API_BASE", "/api"), "/"),
		ZippoBase:        str("ZIPPO_BASE", zippo.DefaultBase),
		DebounceDelay:    ms("AUTOCOMPLETE_DEBOUNCE_MS", 300),
		MinLength:        num("AUTOCOMPLETE_MIN_LENGTH", 2),
		UpstreamTimeout:  ms("UPSTREAM_TIMEOUT_MS", 4000),
		PoolSize:         num("UPSTREAM_POOL_SIZE", 256),
		CacheTTL:         time.Duration(num("CACHE_TTL_S", 3600)) * time.Second,
		CacheNegativeTTL: time.Duration(num("CACHE_NEGATIVE_TTL_S", 300)) * time.Second,
		RedisEnable:      flag("REDIS_ENABLE", false),
		PGEnable:         flag("PG_ENABLE", false),
		GeoIPPath:        os.Getenv("GEOIP_PATH"),
		RateLimitEnabled: flag("RATE_LIMIT_ENABLED", false),
		RateLimitQPS:     float64(num("RATE_LIMIT_QPS", 200)),
		RateLimitBurst:   num("RATE_LIMIT_BURST", 0),
		TLSEnable:        flag("TLS_ENABLE", false),
		TLSCert:          str("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
		TLSKey:           str("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),
	}
	if c.APIBase == "" {
		c.APIBase = "/api"
	}
	// 0 会让上游客户端超时只剩兜底的 1s，按未配置处理
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = 4 * time.Second
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = 300 * time.Millisecond
	}
	if c.MinLength <= 0 {
		c.MinLength = 2
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 256
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = int(c.RateLimitQPS)
	}
	p, err := postcode.ParsePanel(os.Getenv("PANEL"))
	if err != nil {
		return c, errors.Wrap(err, "PANEL")
	}
	c.Panel = p
	dc, err := postcode.ParseCountryCode(str("DEFAULT_COUNTRY", "AU"))
	if err != nil {
		return c, errors.Wrap(err, "DEFAULT_COUNTRY")
	}
	c.DefaultCountry = dc
	return c, nil
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func num(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func ms(key string, def int) time.Duration {
	return time.Duration(num(key, def)) * time.Millisecond
}

func flag(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}
