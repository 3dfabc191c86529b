// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"postcode-api/internal/aggregate"
	"postcode-api/internal/config"
	"postcode-api/internal/geoip"
	"postcode-api/internal/logger"
	"postcode-api/internal/metrics"
	"postcode-api/internal/postcode"
	"postcode-api/internal/store"
	"postcode-api/internal/zippo"

	"github.com/redis/go-redis/v9"
)

// StatsStore：统计读写；*store.Store 为默认实现，nil *store.Store 同样可用
type StatsStore interface {
	IncrStats(ctx context.Context, newVisitor bool) error
	GetTotals(ctx context.Context) (*store.Totals, error)
	RecordFragment(ctx context.Context, fragment string, hits int) error
	FetchRecent(ctx context.Context, limit int) ([]store.RecentFragment, error)
}

// Deps：路由依赖；Store/Redis/GeoIP 均可为 nil
type Deps struct {
	Config config.Config
	Zippo  *zippo.Client
	Agg    *aggregate.Aggregator
	Store  StatsStore
	Redis  *redis.Client
	GeoIP  *geoip.Resolver
}

// recentLimit：/stats 返回的最近片段条数
const recentLimit = 20

type handlers struct {
	Deps
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(d Deps) *http.ServeMux {
	h := &handlers{Deps: d}
	if h.Config.MinLength <= 0 {
		h.Config.MinLength = 2
	}
	mux := http.NewServeMux()
	mux.Handle("/search", instrument("search", h.search))
	mux.Handle("/postcodes", instrument("postcodes", h.postcodes))
	mux.Handle("/countries", instrument("countries", h.countries))
	mux.Handle("/whereami", instrument("whereami", h.whereami))
	mux.Handle("/stats", instrument("stats", h.stats))
	mux.HandleFunc("/ws", h.ws)
	return mux
}

// instrument：按路由记录请求数与耗时
func instrument(route string, f http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		f(w, r)
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(t0).Milliseconds()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// 文档注释：一次性面板聚合
// 背景：供不使用 websocket 的客户端轮询；与会话共用聚合器，但不参与代次比较。
// 约束：片段过短直接返回空列表，不发起任何上游请求。
func (h *handlers) postcodes(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(q) < h.Config.MinLength {
		writeJSON(w, http.StatusOK, postcodesBody{Fragment: q, Results: postcode.CandidateList{}})
		return
	}
	list := h.Agg.Execute(r.Context(), q)
	h.record(r, q, len(list))
	writeJSON(w, http.StatusOK, postcodesBody{Fragment: q, Results: list})
}

// countries：无 q 返回面板；有 q 时按国家名或国家码解析
func (h *handlers) countries(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		codes := h.Agg.Panel().Codes()
		out := make([]countryBody, 0, len(codes))
		for _, c := range codes {
			out = append(out, countryBody{Code: string(c), Name: postcode.CountryName(c)})
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	c, err := postcode.ResolveCountry(q)
	if err != nil {
		writeJSON(w, http.StatusNotFound, messageBody{Message: "Unknown country: " + q})
		return
	}
	writeJSON(w, http.StatusOK, countryBody{Code: string(c), Name: postcode.CountryName(c)})
}

// whereami：访问者默认国家；没有 GeoIP 库或未命中时回退 DEFAULT_COUNTRY
func (h *handlers) whereami(w http.ResponseWriter, r *http.Request) {
	ip := getVisitorIP(r)
	c, hit := h.GeoIP.Country(ip)
	src := "geoip"
	if !hit {
		src = "default"
		c = h.Config.DefaultCountry
		if c == "" {
			c = "AU"
		}
	}
	writeJSON(w, http.StatusOK, whereamiBody{IP: ip, Country: string(c), Name: postcode.CountryName(c), Source: src})
}

// stats：累计与当日计数，附带最近查询的片段（按最近访问排序）
func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	body := statsBody{Recent: []store.RecentFragment{}}
	if h.Store == nil {
		writeJSON(w, http.StatusOK, body)
		return
	}
	ctx := r.Context()
	if t, err := h.Store.GetTotals(ctx); err != nil {
		logger.L().Error("stats_error", "err", err)
	} else if t != nil {
		body.Totals = *t
	}
	if recent, err := h.Store.FetchRecent(ctx, recentLimit); err != nil {
		logger.L().Error("stats_recent_error", "err", err)
	} else if len(recent) > 0 {
		body.Recent = recent
	}
	writeJSON(w, http.StatusOK, body)
}

// record：成功查询后写入统计；数据库不可用时只记日志
func (h *handlers) record(r *http.Request, fragment string, hits int) {
	if h.Store == nil || hits == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
	defer cancel()
	if err := h.Store.IncrStats(ctx, newVisitor(ctx, h.Redis, getVisitorIP(r), time.Now())); err != nil {
		logger.L().Error("stats_incr_error", "err", err)
	}
	if err := h.Store.RecordFragment(ctx, fragment, hits); err != nil {
		logger.L().Error("fragment_record_error", "err", err)
	}
}
