// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"postcode-api/internal/aggregate"
	"postcode-api/internal/api"
	"postcode-api/internal/cache"
	"postcode-api/internal/config"
	"postcode-api/internal/geoip"
	"postcode-api/internal/logger"
	"postcode-api/internal/metrics"
	"postcode-api/internal/middleware"
	"postcode-api/internal/migrate"
	"postcode-api/internal/store"
	"postcode-api/internal/utils"
	"postcode-api/internal/zippo"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")

	cfg, err := config.FromEnv()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Info("config_loaded", "api_base", cfg.APIBase, "panel", cfg.Panel.String(), "upstream", cfg.ZippoBase)

	// 背景：PostgreSQL 仅用于统计，未启用时 Store 为 nil，各方法为空操作
	var st *store.Store
	if cfg.PGEnable {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
			if err := migrate.EnsureSchema(db); err != nil {
				l.Error("schema_error", "err", err)
				os.Exit(1)
			}
			st = store.AttachDB(db)
		}
	} else {
		l.Info("db_disabled")
	}

	var rc *redis.Client
	if cfg.RedisEnable {
		rc = utils.OpenRedisFromEnv()
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
		defer rc.Close()
	} else {
		l.Info("redis_disabled")
	}

	tc := cache.New(rc, cfg.CacheTTL, cfg.CacheNegativeTTL)
	zc := zippo.New(cfg.ZippoBase, &http.Client{Timeout: cfg.UpstreamTimeout + time.Second}, tc)
	agg, err := aggregate.New(cfg.Panel, zc,
		aggregate.WithTimeout(cfg.UpstreamTimeout),
		aggregate.WithPoolSize(cfg.PoolSize))
	if err != nil {
		l.Error("aggregator_error", "err", err)
		os.Exit(1)
	}
	defer agg.Close()

	geo, err := geoip.Open(cfg.GeoIPPath, cfg.DefaultCountry)
	if err != nil {
		l.Error("geoip_open_error", "path", cfg.GeoIPPath, "err", err)
	} else if cfg.GeoIPPath != "" {
		l.Info("geoip_ready", "path", cfg.GeoIPPath)
	}
	defer geo.Close()

	// 文档注释：构建路由
	deps := api.Deps{Config: cfg, Zippo: zc, Agg: agg, Redis: rc, GeoIP: geo}
	if st != nil {
		deps.Store = st
	}
	apiMux := api.BuildRoutes(deps)
	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	var mws []func(http.Handler) http.Handler
	if cfg.RateLimitEnabled {
		mws = append(mws, middleware.RateLimit(cfg.RateLimitQPS, cfg.RateLimitBurst))
	}
	mws = append(mws, logger.AccessMiddleware(l))
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           middleware.Chain(mux, mws...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.TLSEnable {
			if e := utils.EnsureSelfSignedCert(cfg.TLSCert, cfg.TLSKey, "postcode-api.local"); e != nil {
				l.Error("tls_cert_error", "err", e)
			}
			l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCert)
			err = s.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			l.Info("listening", "addr", cfg.Addr)
			err = s.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("server_error", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.Shutdown(ctx)
	l.Info("shutdown")
}
