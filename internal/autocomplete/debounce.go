// 包 autocomplete：输入即搜的会话层（防抖、按代次发布、选择分发）
package autocomplete

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
)

const (
	DefaultDelay     = 300 * time.Millisecond
	DefaultMinLength = 2
)

// 文档注释：防抖控制器
// 背景：将连续输入合并为一次查询；控制器独占一个定时器句柄，每次输入先取消再重新调度，只查询空闲窗口内的最后一个片段。
// 约束：片段（去除首尾空白后）短于最小长度时取消待触发定时器并立即回调 clear，不发起查询；无错误路径。
type Debouncer struct {
	mu      sync.Mutex
	clk     clock.Clock
	delay   time.Duration
	minLen  int
	timer   *clock.Timer
	seq     uint64
	latest  string
	stopped bool
	firing  int
	begin   func(fragment string) func()
	clear   func()
}

// NewDebouncer：clk 为 nil 时使用真实时钟；fire/clear 在定时器协程或 Submit 调用方协程中执行
func NewDebouncer(clk clock.Clock, delay time.Duration, minLen int, fire func(string), clear func()) *Debouncer {
	return NewGatedDebouncer(clk, delay, minLen, func(fragment string) func() {
		return func() {
			if fire != nil {
				fire(fragment)
			}
		}
	}, clear)
}

// 文档注释：两段式触发的防抖控制器
// 背景：begin 在控制器锁内调用，用于在锁内完成代次分配；其返回的函数在锁外执行实际查询。
// 约束：begin 不可回调控制器自身，且应尽快返回；过短输入的 clear 必然排在已开始的 begin 之后。
func NewGatedDebouncer(clk clock.Clock, delay time.Duration, minLen int, begin func(string) func(), clear func()) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	if minLen <= 0 {
		minLen = DefaultMinLength
	}
	return &Debouncer{clk: clk, delay: delay, minLen: minLen, begin: begin, clear: clear}
}

// Submit：记录最新片段并重启空闲定时器
func (d *Debouncer) Submit(fragment string) {
	fragment = strings.TrimSpace(fragment)
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.latest = fragment
	d.cancelLocked()
	if utf8.RuneCountInString(fragment) < d.minLen {
		d.mu.Unlock()
		if d.clear != nil {
			d.clear()
		}
		return
	}
	seq := d.seq
	d.timer = d.clk.AfterFunc(d.delay, func() { d.elapsed(seq) })
	d.mu.Unlock()
}

// elapsed：定时器到期；seq 不一致说明期间有新的输入，本次作废
func (d *Debouncer) elapsed(seq uint64) {
	d.mu.Lock()
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.seq++
	d.firing++
	var run func()
	if d.begin != nil {
		run = d.begin(d.latest)
	}
	d.mu.Unlock()
	if run != nil {
		run()
	}
	d.mu.Lock()
	d.firing--
	d.mu.Unlock()
}

// Pending：是否存在待触发的定时器或正在执行的查询回调
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil || d.firing > 0
}

// Cancel：取消待触发的定时器，之后仍可继续 Submit
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.cancelLocked()
	d.mu.Unlock()
}

// Stop：永久停止，后续 Submit 被忽略
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.cancelLocked()
	d.stopped = true
	d.mu.Unlock()
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}
