package middleware

import (
	"encoding/json"
	"net/http"

	"postcode-api/internal/logger"
	"postcode-api/internal/metrics"

	"golang.org/x/time/rate"
)

// 文档注释：入口限流中间件（令牌桶）
// 背景：输入即搜会把每次停顿都放大为面板规模的上游请求；在入口限速，避免上游与缓存被打满。
// 约束：不排队，超限直接返回 429；qps<=0 视为关闭限流。websocket 升级只计一次。
func RateLimit(qps float64, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if qps <= 0 {
			return next
		}
		if burst <= 0 {
			burst = int(qps)
			if burst < 1 {
				burst = 1
			}
		}
		lim := rate.NewLimiter(rate.Limit(qps), burst)
		logger.L().Info("rate_limit_enabled", "qps", qps, "burst", burst)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				metrics.RateLimitedTotal.Inc()
				w.Header().Set("content-type", "application/json; charset=utf-8")
				w.Header().Set("retry-after", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Chain：按书写顺序由外到内套用中间件
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
