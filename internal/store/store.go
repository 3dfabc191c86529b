// 包 store: 提供与 PostgreSQL 的数据访问层，仅包含查询统计与最近片段记录
package store

import (
	"context"
	"database/sql"

	"postcode-api/internal/logger"

	_ "github.com/lib/pq"
)

// Store: 数据库访问入口；nil Store 的所有方法均为空操作，便于在未启用 PostgreSQL 时运行
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) enabled() bool { return s != nil && s.db != nil }

// IncrStats: 成功查询后递增总计与当日计数；newVisitor 为 true 时递增访客计数
func (s *Store) IncrStats(ctx context.Context, newVisitor bool) error {
	if !s.enabled() {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE _pc_stats_total SET total_queries=total_queries+1 WHERE id=1"); err != nil {
		return err
	}
	_, _ = s.db.ExecContext(ctx, "INSERT INTO _pc_stats_daily(day, queries) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET queries=_pc_stats_daily.queries+1")
	if newVisitor {
		_, _ = s.db.ExecContext(ctx, "UPDATE _pc_stats_total SET total_visitors=total_visitors+1 WHERE id=1")
		_, _ = s.db.ExecContext(ctx, "INSERT INTO _pc_stats_daily(day, visitors) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET visitors=_pc_stats_daily.visitors+1")
	}
	logger.L().Debug("stats_incr", "new_visitor", newVisitor)
	return nil
}

// Totals: 统计返回结构
type Totals struct {
	Total    int64 `json:"total"`
	Today    int64 `json:"today"`
	Visitors int64 `json:"visitors"`
}

// GetTotals: 读取累计与当日查询次数
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	if !s.enabled() {
		return &t, nil
	}
	row := s.db.QueryRowContext(ctx, "SELECT total_queries, total_visitors FROM _pc_stats_total WHERE id=1")
	if err := row.Scan(&t.Total, &t.Visitors); err != nil && err != sql.ErrNoRows {
		return &t, err
	}
	row2 := s.db.QueryRowContext(ctx, "SELECT queries FROM _pc_stats_daily WHERE day=current_date")
	_ = row2.Scan(&t.Today)
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}

// 文档注释：记录最近查询的片段（去重累加）
// 背景：用于观察热门片段与缓存预热候选；hits 为本次聚合命中的国家数。
// 约束：只记录片段与计数，不保存查询结果。
func (s *Store) RecordFragment(ctx context.Context, fragment string, hits int) error {
	if !s.enabled() || fragment == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO _pc_recent_fragments(fragment, last_seen, queries, last_hits)
        VALUES($1, now(), 1, $2)
        ON CONFLICT (fragment) DO UPDATE SET last_seen=now(), queries=_pc_recent_fragments.queries+1, last_hits=EXCLUDED.last_hits`, fragment, hits)
	return err
}

// RecentFragment: 最近片段
type RecentFragment struct {
	Fragment string `json:"fragment"`
	Queries  int64  `json:"queries"`
	LastHits int    `json:"last_hits"`
}

// FetchRecent: 按最近访问排序返回片段列表
func (s *Store) FetchRecent(ctx context.Context, limit int) ([]RecentFragment, error) {
	if !s.enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT fragment, queries, last_hits FROM _pc_recent_fragments ORDER BY last_seen DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecentFragment
	for rows.Next() {
		var f RecentFragment
		if err := rows.Scan(&f.Fragment, &f.Queries, &f.LastHits); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
