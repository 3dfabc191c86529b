package autocomplete

import (
	"context"
	"errors"
	"sync"
	"time"

	"postcode-api/internal/aggregate"
	"postcode-api/internal/logger"
	"postcode-api/internal/postcode"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

var ErrUnknownCandidate = errors.New("candidate not in current list")

// State：会话对外可见的状态快照
type State struct {
	Generation uint64                 `json:"generation"`
	Fragment   string                 `json:"fragment"`
	Candidates postcode.CandidateList `json:"results"`
	Open       bool                   `json:"open"`
}

type config struct {
	clk      clock.Clock
	delay    time.Duration
	minLen   int
	onUpdate func(State)
	onSelect func(postcode.LookupResult)
}

type Option func(*config)

func WithClock(c clock.Clock) Option { return func(o *config) { o.clk = c } }
func WithDelay(d time.Duration) Option { return func(o *config) { o.delay = d } }
func WithMinLength(n int) Option { return func(o *config) { o.minLen = n } }
func WithOnUpdate(f func(State)) Option { return func(o *config) { o.onUpdate = f } }
func WithOnSelect(f func(postcode.LookupResult)) Option {
	return func(o *config) { o.onSelect = f }
}

// 文档注释：输入即搜会话
// 背景：串联防抖控制器、聚合器代次发布与选择分发；每个输入流（一个 websocket 连接或一个终端）独占一个会话。
// 约束：查询在防抖定时器协程中同步执行；旧代结果由 Stream 丢弃；Close 后不再发起查询。
type Session struct {
	ID       string
	ctx      context.Context
	cancel   context.CancelFunc
	deb      *Debouncer
	stream   *aggregate.Stream
	onUpdate func(State)
	onSelect func(postcode.LookupResult)

	mu   sync.Mutex
	open bool
}

func NewSession(agg *aggregate.Aggregator, opts ...Option) *Session {
	c := config{}
	for _, f := range opts {
		f(&c)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{ID: uuid.NewString(), ctx: ctx, cancel: cancel, onUpdate: c.onUpdate, onSelect: c.onSelect}
	s.stream = aggregate.NewStream(agg, s.published)
	s.deb = NewGatedDebouncer(c.clk, c.delay, c.minLen, s.search, s.stream.Invalidate)
	return s
}

// Submit：用户输入变化
func (s *Session) Submit(fragment string) {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	s.deb.Submit(fragment)
}

// search：在防抖控制器锁内分配代次，返回锁外执行的查询
func (s *Session) search(fragment string) func() {
	q := s.stream.Begin(fragment)
	return func() {
		logger.L().Debug("session_search", "session", s.ID, "fragment", fragment, "generation", q.Generation)
		s.stream.Run(s.ctx, q)
	}
}

func (s *Session) published(u aggregate.Update) {
	if s.onUpdate == nil {
		return
	}
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()
	s.onUpdate(State{Generation: u.Generation, Fragment: u.Fragment, Candidates: u.Candidates, Open: open})
}

// Candidates：当前代次的候选列表
func (s *Session) Candidates() postcode.CandidateList { return s.stream.Candidates() }

// Open：建议列表是否处于打开状态
func (s *Session) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// 文档注释：选择分发
// 背景：将选中的结果交给调用方处理器，随后清空候选列表并关闭建议列表。
// 约束：不防重复分发；清空通过推进代次实现，在途查询的晚到结果不会重新填充列表。
func (s *Session) Select(r postcode.LookupResult) {
	if s.onSelect != nil {
		s.onSelect(r)
	}
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	s.deb.Cancel()
	s.stream.Invalidate()
	logger.L().Debug("session_select", "session", s.ID, "key", r.Key())
}

// SelectKey：按候选项标识选择（websocket 客户端只回传 key）
func (s *Session) SelectKey(key string) error {
	r, ok := s.Candidates().Find(key)
	if !ok {
		return ErrUnknownCandidate
	}
	s.Select(r)
	return nil
}

// Settle：等待待触发的防抖定时器与在途查询全部结束（终端模式在输入结束后使用）
func (s *Session) Settle(ctx context.Context) error {
	t := time.NewTicker(5 * time.Millisecond)
	defer t.Stop()
	for s.deb.Pending() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// Close：停止防抖并取消在途查询的上下文
func (s *Session) Close() {
	s.deb.Stop()
	s.cancel()
}
