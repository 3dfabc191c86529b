package api

import (
	"context"
	"hash/fnv"
	"time"

	"postcode-api/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	bloomBits   = 1 << 20
	bloomHashes = 4
	bloomTTL    = 48 * time.Hour
)

// 文档注释：计算布隆过滤器位置
// 背景：使用 FNV64a 结合索引扰动生成 k 个位置，用于 GetBit/SetBit。
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	for i := 0; i < k; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write(data)
		pos[i] = int64(uint32(h.Sum64() % uint64(m)))
	}
	return pos
}

// 文档注释：检查并写入布隆过滤器位图
// 返回：true 表示首次见到（已写入位图）；false 表示已存在。
// 异常：rc 为 nil 时视为首次见到，避免阻断统计主流程。
func bloomCheckAndSet(ctx context.Context, rc *redis.Client, key string, positions []int64, ttl time.Duration) (bool, error) {
	if rc == nil {
		return true, nil
	}
	pipe := rc.Pipeline()
	cmds := make([]*redis.IntCmd, len(positions))
	for i, p := range positions {
		cmds[i] = pipe.GetBit(ctx, key, p)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	seen := true
	for _, c := range cmds {
		if c.Val() == 0 {
			seen = false
			break
		}
	}
	if seen {
		return false, nil
	}
	pipe = rc.Pipeline()
	for _, p := range positions {
		pipe.SetBit(ctx, key, p, 1)
	}
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return true, err
}

// newVisitor：按自然日判断访问者是否首次出现；没有 Redis 时不计访客数
func newVisitor(ctx context.Context, rc *redis.Client, ip string, now time.Time) bool {
	if rc == nil || ip == "" {
		return false
	}
	key := "bloom:visitors:" + now.UTC().Format("20060102")
	first, err := bloomCheckAndSet(ctx, rc, key, bloomPositions([]byte(ip), bloomBits, bloomHashes), bloomTTL)
	if err != nil {
		logger.L().Debug("visitor_bloom_error", "err", err)
		return false
	}
	return first
}
