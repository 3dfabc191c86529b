package aggregate

import (
	"context"
	"sync"
	"sync/atomic"

	"postcode-api/internal/logger"
	"postcode-api/internal/metrics"
	"postcode-api/internal/postcode"
)

// Update：一次候选列表发布
type Update struct {
	Generation uint64
	Fragment   string
	Candidates postcode.CandidateList
}

// 文档注释：按代次发布的候选列表
// 背景：同一输入流中后发起的查询使先前未完成的查询失效；在汇合点比较代次，旧代结果直接丢弃。
// 约束：不取消在途请求，只丢弃其结果；代次比较与发布在 pubMu 内串行完成，旧代不会覆盖新代。
type Stream struct {
	agg      *Aggregator
	gen      atomic.Uint64
	pubMu    sync.Mutex
	mu       sync.Mutex
	current  postcode.CandidateList
	onUpdate func(Update)
}

// NewStream：onUpdate 可为 nil；回调在发布者协程中按代次顺序同步执行，回调内可读取 Candidates，但不可再触发发布
func NewStream(agg *Aggregator, onUpdate func(Update)) *Stream {
	return &Stream{agg: agg, onUpdate: onUpdate, current: postcode.CandidateList{}}
}

// Begin：分配新代次，此后所有更早代次的结果都将被丢弃
func (s *Stream) Begin(fragment string) postcode.LookupQuery {
	return postcode.LookupQuery{Fragment: fragment, Generation: s.gen.Add(1)}
}

// Generation：当前最新代次
func (s *Stream) Generation() uint64 { return s.gen.Load() }

// Run：执行查询，仅当 q 仍是最新代次时发布；返回是否发布
func (s *Stream) Run(ctx context.Context, q postcode.LookupQuery) bool {
	list := s.agg.Execute(ctx, q.Fragment)
	return s.publish(q, list)
}

// Invalidate：推进代次并发布空列表（输入过短、选择完成后调用）
func (s *Stream) Invalidate() {
	q := postcode.LookupQuery{Generation: s.gen.Add(1)}
	s.publish(q, postcode.CandidateList{})
}

// Candidates：当前已发布的候选列表（只读）
func (s *Stream) Candidates() postcode.CandidateList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Stream) publish(q postcode.LookupQuery, list postcode.CandidateList) bool {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if latest := s.gen.Load(); q.Generation != latest {
		metrics.SupersededTotal.Inc()
		logger.L().Debug("stream_superseded", "generation", q.Generation, "latest", latest, "fragment", q.Fragment)
		return false
	}
	s.mu.Lock()
	s.current = list
	s.mu.Unlock()
	if s.onUpdate != nil {
		s.onUpdate(Update{Generation: q.Generation, Fragment: q.Fragment, Candidates: list})
	}
	return true
}
