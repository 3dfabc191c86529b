// 包 utils：外部依赖（PostgreSQL、Redis、TLS 证书）的连接与引导工具，统一环境变量读取
package utils

import (
	"database/sql"
	"net/url"
	"os"
	"strconv"

	_ "github.com/lib/pq"
)

// BuildPostgresDSNFromEnv：由 PG_HOST/PG_PORT/PG_USER/PG_PASSWORD/PG_DB/PG_SSLMODE 拼接 DSN
func BuildPostgresDSNFromEnv() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   env("PG_HOST", "localhost") + ":" + env("PG_PORT", "5432"),
		Path:   "/" + env("PG_DB", "postcode"),
	}
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(env("PG_USER", "postgres"), pass)
	} else {
		u.User = url.User(env("PG_USER", "postgres"))
	}
	u.RawQuery = "sslmode=" + env("PG_SSLMODE", "disable")
	return u.String()
}

// OpenPostgresFromEnv：打开连接池；PG_MAX_OPEN_CONNS/PG_MAX_IDLE_CONNS 解析失败时回退默认值
// 约束：sql.Open 不建立连接，调用方需自行 Ping
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(envInt("PG_MAX_OPEN_CONNS", 20))
	db.SetMaxIdleConns(envInt("PG_MAX_IDLE_CONNS", 10))
	return db, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
