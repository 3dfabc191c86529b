package utils

import (
	"os"

	"postcode-api/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedisFromEnv：从环境变量打开 Redis 客户端，支持 REDIS_DB 选择
// 约束：REDIS_DB 解析失败时回退到 0；客户端惰性连接，调用方需自行 Ping
func OpenRedisFromEnv() *redis.Client {
	addr := env("REDIS_HOST", "127.0.0.1") + ":" + env("REDIS_PORT", "6379")
	db := envInt("REDIS_DB", 0)
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASS"), DB: db})
}
