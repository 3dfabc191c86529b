// 包 zippo：Zippopotam.us 邮编查询客户端
package zippo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"postcode-api/internal/cache"
	"postcode-api/internal/logger"
	"postcode-api/internal/metrics"
	"postcode-api/internal/postcode"

	"github.com/pkg/errors"
)

const DefaultBase = "https://api.zippopotam.us"

// 响应体上限，防止异常上游拖垮内存
const maxBody = 1 << 20

var ErrNotFound = errors.New("postcode not found")

// StatusError：上游返回 404 以外的非 2xx 状态
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("API request failed with status %d", e.Code) }

// 文档注释：上游查询客户端
// 背景：聚合器与单国代理路由共用；请求格式为 GET {base}/{国家码小写}/{片段}。
// 约束：不做重试；超时由调用方 ctx 控制，client 自身超时作为兜底；200 与 404 结果写入缓存。
type Client struct {
	base  string
	hc    *http.Client
	cache *cache.Tiered
}

// New：base 为空使用官方地址；hc 为空时使用 5s 超时的默认客户端；c 可为 nil
func New(base string, hc *http.Client, c *cache.Tiered) *Client {
	if base == "" {
		base = DefaultBase
	}
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), hc: hc, cache: c}
}

// URL：拼接上游地址，片段按路径段转义
func (c *Client) URL(code postcode.CountryCode, fragment string) string {
	return c.base + "/" + url.PathEscape(code.Lower()) + "/" + url.PathEscape(fragment)
}

// 文档注释：查询单个国家的邮编片段
// 返回：200 时返回原始响应体；404 返回 ErrNotFound；其他状态返回 *StatusError；网络错误包装后返回。
func (c *Client) Fetch(ctx context.Context, code postcode.CountryCode, fragment string) ([]byte, error) {
	key := cache.Key(code.Lower(), fragment)
	if c.cache != nil {
		if e, ok := c.cache.Get(ctx, key); ok {
			if e.Status == http.StatusOK {
				return e.Body, nil
			}
			return nil, ErrNotFound
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(code, fragment), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("accept", "application/json")
	t0 := time.Now()
	metrics.UpstreamRequestsTotal.WithLabelValues(string(code)).Inc()
	resp, err := c.hc.Do(req)
	ms := time.Since(t0).Milliseconds()
	metrics.UpstreamDurationMs.WithLabelValues(string(code)).Observe(float64(ms))
	if err != nil {
		logger.L().Debug("upstream_fetch_error", "country", code, "fragment", fragment, "err", err)
		return nil, errors.Wrapf(err, "fetch %s/%s", code.Lower(), fragment)
	}
	defer resp.Body.Close()
	logger.L().Debug("upstream_fetch", "country", code, "fragment", fragment, "status", resp.StatusCode, "duration_ms", ms)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		if c.cache != nil {
			c.cache.Set(ctx, key, cache.Entry{Status: http.StatusNotFound})
		}
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s/%s", code.Lower(), fragment)
	}
	if c.cache != nil && resp.StatusCode == http.StatusOK {
		c.cache.Set(ctx, key, cache.Entry{Status: http.StatusOK, Body: body})
	}
	return body, nil
}
