package migrate

import (
	"database/sql"

	"postcode-api/internal/logger"
)

// 背景：首次运行自动创建统计所需的表，保障后续计数与最近片段记录
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；不存储查询结果本身
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _pc_stats_total (
            id INT PRIMARY KEY,
            total_queries BIGINT NOT NULL DEFAULT 0,
            total_visitors BIGINT NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS _pc_stats_daily (
            day DATE PRIMARY KEY,
            queries BIGINT NOT NULL DEFAULT 0,
            visitors BIGINT NOT NULL DEFAULT 0
        )`,
		`INSERT INTO _pc_stats_total(id, total_queries, total_visitors)
         VALUES(1, 0, 0)
         ON CONFLICT (id) DO NOTHING`,
		`CREATE TABLE IF NOT EXISTS _pc_recent_fragments (
            fragment TEXT PRIMARY KEY,
            last_seen TIMESTAMPTZ NOT NULL DEFAULT now(),
            queries BIGINT NOT NULL DEFAULT 0,
            last_hits INT NOT NULL DEFAULT 0
        )`,
		`CREATE INDEX IF NOT EXISTS idx_pc_recent_last_seen ON _pc_recent_fragments(last_seen DESC)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
