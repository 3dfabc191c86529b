package autocomplete

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	fired  []string
	clears int
}

func (r *recorder) fire(s string) {
	r.mu.Lock()
	r.fired = append(r.fired, s)
	r.mu.Unlock()
}

func (r *recorder) clear() {
	r.mu.Lock()
	r.clears++
	r.mu.Unlock()
}

func (r *recorder) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fired...), r.clears
}

// TestDebounceCoalesces 测试空闲窗口内的连续输入只触发一次，且使用最后一个片段
func TestDebounceCoalesces(t *testing.T) {
	mock := clock.NewMock()
	rec := &recorder{}
	d := NewDebouncer(mock, 300*time.Millisecond, 2, rec.fire, rec.clear)

	d.Submit("90")
	mock.Add(100 * time.Millisecond)
	d.Submit("902")
	mock.Add(100 * time.Millisecond)
	d.Submit("9021")
	mock.Add(299 * time.Millisecond)
	fired, _ := rec.snapshot()
	assert.Empty(t, fired)
	assert.True(t, d.Pending())

	mock.Add(time.Millisecond)
	require.Eventually(t, func() bool {
		fired, _ := rec.snapshot()
		return len(fired) == 1
	}, time.Second, 5*time.Millisecond)

	mock.Add(time.Second)
	time.Sleep(20 * time.Millisecond)
	fired, clears := rec.snapshot()
	assert.Equal(t, []string{"9021"}, fired)
	assert.Zero(t, clears)
	assert.False(t, d.Pending())
}

// TestDebounceShortInput 测试过短输入立即清空并取消待触发查询
func TestDebounceShortInput(t *testing.T) {
	mock := clock.NewMock()
	rec := &recorder{}
	d := NewDebouncer(mock, 300*time.Millisecond, 2, rec.fire, rec.clear)

	d.Submit("90")
	d.Submit("9")
	assert.False(t, d.Pending())
	d.Submit("  ")
	mock.Add(time.Second)
	time.Sleep(20 * time.Millisecond)

	fired, clears := rec.snapshot()
	assert.Empty(t, fired)
	assert.Equal(t, 2, clears)
}

// TestDebounceExactlyMinLength 测试恰好等于最小长度的片段会触发查询
func TestDebounceExactlyMinLength(t *testing.T) {
	mock := clock.NewMock()
	rec := &recorder{}
	d := NewDebouncer(mock, 300*time.Millisecond, 2, rec.fire, rec.clear)

	d.Submit(" zz ")
	mock.Add(300 * time.Millisecond)
	require.Eventually(t, func() bool {
		fired, _ := rec.snapshot()
		return len(fired) == 1 && fired[0] == "zz"
	}, time.Second, 5*time.Millisecond)
}

func TestDebounceStop(t *testing.T) {
	mock := clock.NewMock()
	rec := &recorder{}
	d := NewDebouncer(mock, 0, 0, rec.fire, rec.clear)

	d.Submit("12345")
	d.Stop()
	d.Submit("123456")
	mock.Add(time.Second)
	time.Sleep(20 * time.Millisecond)

	fired, clears := rec.snapshot()
	assert.Empty(t, fired)
	assert.Zero(t, clears)
	assert.False(t, d.Pending())
}

func TestDebounceCancelThenResume(t *testing.T) {
	mock := clock.NewMock()
	rec := &recorder{}
	d := NewDebouncer(mock, DefaultDelay, DefaultMinLength, rec.fire, rec.clear)

	d.Submit("75")
	d.Cancel()
	mock.Add(DefaultDelay)
	d.Submit("750")
	mock.Add(DefaultDelay)
	require.Eventually(t, func() bool {
		fired, _ := rec.snapshot()
		return len(fired) == 1 && fired[0] == "750"
	}, time.Second, 5*time.Millisecond)
}

// TestGatedDebounceBeginBeforeClear 测试 begin 执行期间到达的过短输入排在其后清空
func TestGatedDebounceBeginBeforeClear(t *testing.T) {
	mock := clock.NewMock()
	var mu sync.Mutex
	var order []string
	add := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}
	entered := make(chan struct{})
	release := make(chan struct{})
	ran := make(chan string, 1)
	d := NewGatedDebouncer(mock, DefaultDelay, DefaultMinLength, func(f string) func() {
		add("begin:" + f)
		close(entered)
		<-release
		return func() { ran <- f }
	}, func() { add("clear") })

	d.Submit("902")
	go mock.Add(DefaultDelay)
	<-entered

	done := make(chan struct{})
	go func() {
		d.Submit("9")
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("short input completed while begin was running")
	case <-time.After(30 * time.Millisecond):
	}
	close(release)
	<-done

	assert.Equal(t, "902", <-ran)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"begin:902", "clear"}, order)
}
