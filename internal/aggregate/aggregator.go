// 包 aggregate：多国邮编并发聚合（面板扇出、逐国容错、按面板顺序合并）与按代次发布
package aggregate

import (
	"context"
	"errors"
	"sync"
	"time"

	"postcode-api/internal/logger"
	"postcode-api/internal/metrics"
	"postcode-api/internal/normalize"
	"postcode-api/internal/postcode"
	"postcode-api/internal/zippo"

	"github.com/panjf2000/ants/v2"
)

// Fetcher：单国查询契约，zippo.Client 为默认实现
type Fetcher interface {
	Fetch(ctx context.Context, code postcode.CountryCode, fragment string) ([]byte, error)
}

// Outcome：单国查询结局；只有 Included 进入候选列表
type Outcome string

const (
	Included  Outcome = "included"
	NotFound  Outcome = "not_found"
	Rejected  Outcome = "rejected"
	Transport Outcome = "transport"
	Timeout   Outcome = "timeout"
	Malformed Outcome = "malformed"
	Empty     Outcome = "empty"
	Dropped   Outcome = "dropped"
)

// Report：单国查询报告，供观测钩子区分“未找到”与“网络失败”
type Report struct {
	Fragment string
	Country  postcode.CountryCode
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Observer：逐国报告回调；在工作协程中调用，实现需自行保证并发安全
type Observer func(Report)

const (
	DefaultTimeout  = 4 * time.Second
	DefaultPoolSize = 256
)

type options struct {
	timeout  time.Duration
	poolSize int
	pool     *ants.Pool
	observer Observer
}

type Option func(*options)

// WithTimeout：单国请求超时；超时按失败丢弃
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithPoolSize：共享工作池容量，限制全进程并发上游请求数
func WithPoolSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// WithPool：复用外部工作池（Close 不会释放外部池）
func WithPool(p *ants.Pool) Option { return func(o *options) { o.pool = p } }

// WithObserver：追加观测钩子，默认日志与指标仍然生效
func WithObserver(f Observer) Option { return func(o *options) { o.observer = f } }

// 文档注释：面板扇出聚合器
// 背景：对面板中每个国家各发起一次独立查询，全部结束后再汇总；不因首个成功或失败提前返回。
// 约束：404/非 2xx/响应异常/网络错误/超时一律静默丢弃，不向调用方报错；输出顺序为面板顺序而非到达顺序。
type Aggregator struct {
	panel    postcode.Panel
	fetch    Fetcher
	pool     *ants.Pool
	ownPool  bool
	timeout  time.Duration
	observer Observer
}

func New(panel postcode.Panel, fetch Fetcher, opts ...Option) (*Aggregator, error) {
	o := options{timeout: DefaultTimeout, poolSize: DefaultPoolSize}
	for _, f := range opts {
		f(&o)
	}
	a := &Aggregator{panel: panel, fetch: fetch, pool: o.pool, timeout: o.timeout, observer: o.observer}
	if a.pool == nil {
		p, err := ants.NewPool(o.poolSize, ants.WithPanicHandler(func(v interface{}) {
			logger.L().Error("aggregate_worker_panic", "panic", v)
		}))
		if err != nil {
			return nil, err
		}
		a.pool = p
		a.ownPool = true
	}
	return a, nil
}

func (a *Aggregator) Panel() postcode.Panel { return a.panel }

// Close：释放自有工作池
func (a *Aggregator) Close() {
	if a.ownPool {
		a.pool.Release()
	}
}

type slot struct {
	res postcode.LookupResult
	ok  bool
}

// 文档注释：执行一次面板聚合
// 返回：按面板顺序排列的成功结果；全部失败时返回空列表（非 nil），不视为错误。
func (a *Aggregator) Execute(ctx context.Context, fragment string) postcode.CandidateList {
	codes := a.panel.Codes()
	slots := make([]slot, len(codes))
	t0 := time.Now()
	logger.L().Debug("aggregate_begin", "fragment", fragment, "panel", len(codes))
	var wg sync.WaitGroup
	for i, code := range codes {
		i, code := i, code
		wg.Add(1)
		task := func() {
			defer wg.Done()
			res, rep := a.lookup(ctx, code, fragment)
			a.report(rep)
			if rep.Outcome == Included {
				slots[i] = slot{res: res, ok: true}
			}
		}
		if err := a.pool.Submit(task); err != nil {
			wg.Done()
			a.report(Report{Fragment: fragment, Country: code, Outcome: Dropped, Err: err})
		}
	}
	wg.Wait()
	out := make(postcode.CandidateList, 0, len(codes))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.res)
		}
	}
	metrics.CandidatesPerQuery.Observe(float64(len(out)))
	if len(out) == 0 {
		metrics.EmptyResultsTotal.Inc()
	}
	logger.L().Debug("aggregate_end", "fragment", fragment, "results", len(out), "countries", out.Countries(), "duration_ms", time.Since(t0).Milliseconds())
	return out
}

func (a *Aggregator) lookup(ctx context.Context, code postcode.CountryCode, fragment string) (postcode.LookupResult, Report) {
	rep := Report{Fragment: fragment, Country: code}
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	t0 := time.Now()
	raw, err := a.fetch.Fetch(cctx, code, fragment)
	rep.Duration = time.Since(t0)
	if err != nil {
		rep.Err = err
		rep.Outcome = classify(err)
		return postcode.LookupResult{}, rep
	}
	res, err := normalize.Normalize(raw, code)
	if err != nil {
		rep.Err = err
		if errors.Is(err, normalize.ErrNoPlaces) {
			rep.Outcome = Empty
		} else {
			rep.Outcome = Malformed
		}
		return postcode.LookupResult{}, rep
	}
	rep.Outcome = Included
	return res, rep
}

func classify(err error) Outcome {
	var se *zippo.StatusError
	switch {
	case errors.Is(err, zippo.ErrNotFound):
		return NotFound
	case errors.As(err, &se):
		return Rejected
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	}
	return Transport
}

func (a *Aggregator) report(r Report) {
	metrics.LookupOutcomesTotal.WithLabelValues(string(r.Country), string(r.Outcome)).Inc()
	if r.Err != nil {
		logger.L().Debug("aggregate_country_dropped", "country", r.Country, "fragment", r.Fragment, "outcome", r.Outcome, "err", r.Err, "duration_ms", r.Duration.Milliseconds())
	}
	if a.observer != nil {
		a.observer(r)
	}
}
