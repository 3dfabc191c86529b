package autocomplete

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"postcode-api/internal/aggregate"
	"postcode-api/internal/postcode"
	"postcode-api/internal/zippo"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowFetcher：按片段返回固定结果，可为指定片段设置延迟
type slowFetcher struct {
	calls  atomic.Int32
	delays map[string]time.Duration
}

func (f *slowFetcher) Fetch(ctx context.Context, code postcode.CountryCode, fragment string) ([]byte, error) {
	f.calls.Add(1)
	if code != "US" {
		return nil, zippo.ErrNotFound
	}
	if d := f.delays[fragment]; d > 0 {
		time.Sleep(d)
	}
	return []byte(fmt.Sprintf(`{"post code":%q,"country":"United States","country abbreviation":"US","places":[{"place name":"P%s"}]}`, fragment, fragment)), nil
}

type harness struct {
	mock     *clock.Mock
	fetch    *slowFetcher
	sess     *Session
	mu       sync.Mutex
	states   []State
	selected []postcode.LookupResult
}

func newHarness(t *testing.T, delays map[string]time.Duration) *harness {
	t.Helper()
	h := &harness{mock: clock.NewMock(), fetch: &slowFetcher{delays: delays}}
	panel, err := postcode.NewPanel([]string{"US", "GB"})
	require.NoError(t, err)
	agg, err := aggregate.New(panel, h.fetch)
	require.NoError(t, err)
	t.Cleanup(agg.Close)
	h.sess = NewSession(agg,
		WithClock(h.mock),
		WithOnUpdate(func(s State) {
			h.mu.Lock()
			h.states = append(h.states, s)
			h.mu.Unlock()
		}),
		WithOnSelect(func(r postcode.LookupResult) {
			h.mu.Lock()
			h.selected = append(h.selected, r)
			h.mu.Unlock()
		}))
	t.Cleanup(h.sess.Close)
	return h
}

func (h *harness) lastState() (State, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.states) == 0 {
		return State{}, 0
	}
	return h.states[len(h.states)-1], len(h.states)
}

// TestSessionShortInput 测试过短输入不发起网络请求且候选列表为空
func TestSessionShortInput(t *testing.T) {
	h := newHarness(t, nil)
	h.sess.Submit("9")
	h.mock.Add(time.Second)
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, h.fetch.calls.Load())
	assert.Empty(t, h.sess.Candidates())
	st, n := h.lastState()
	assert.Equal(t, 1, n)
	assert.Empty(t, st.Candidates)
}

// TestSessionSearchAndSelect 测试防抖后查询、发布与选择分发
func TestSessionSearchAndSelect(t *testing.T) {
	h := newHarness(t, nil)
	h.sess.Submit("90")
	h.sess.Submit("9021")
	h.mock.Add(DefaultDelay)

	require.Eventually(t, func() bool { return len(h.sess.Candidates()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), h.fetch.calls.Load())
	st, _ := h.lastState()
	assert.Equal(t, "9021", st.Fragment)
	assert.True(t, st.Open)

	require.ErrorIs(t, h.sess.SelectKey("GB-9021"), ErrUnknownCandidate)
	require.NoError(t, h.sess.SelectKey("US-9021"))

	h.mu.Lock()
	require.Len(t, h.selected, 1)
	assert.Equal(t, "P9021", h.selected[0].Places[0].Name)
	h.mu.Unlock()
	assert.Empty(t, h.sess.Candidates())
	assert.False(t, h.sess.Open())
	st, _ = h.lastState()
	assert.Empty(t, st.Candidates)
	assert.False(t, st.Open)
}

// TestSessionSupersede 测试第二次查询发起后第一次的晚到结果被丢弃
func TestSessionSupersede(t *testing.T) {
	h := newHarness(t, map[string]time.Duration{"90": 150 * time.Millisecond})
	h.sess.Submit("90")
	h.mock.Add(DefaultDelay)
	require.Eventually(t, func() bool { return h.fetch.calls.Load() >= 1 }, time.Second, time.Millisecond)

	h.sess.Submit("902")
	h.mock.Add(DefaultDelay)

	require.Eventually(t, func() bool {
		c := h.sess.Candidates()
		return len(c) == 1 && c[0].PostCode == "902"
	}, time.Second, 5*time.Millisecond)
	time.Sleep(250 * time.Millisecond)

	c := h.sess.Candidates()
	require.Len(t, c, 1)
	assert.Equal(t, "902", c[0].PostCode)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.states {
		for _, r := range s.Candidates {
			assert.NotEqual(t, "90", r.PostCode)
		}
	}
}

func TestSessionIDs(t *testing.T) {
	a := newHarness(t, nil)
	b := newHarness(t, nil)
	assert.NotEmpty(t, a.sess.ID)
	assert.NotEqual(t, a.sess.ID, b.sess.ID)
}

// TestSessionSettle 测试 Settle 等待定时器与在途查询结束
func TestSessionSettle(t *testing.T) {
	h := newHarness(t, map[string]time.Duration{"9021": 50 * time.Millisecond})
	h.sess.Submit("9021")
	h.mock.Add(DefaultDelay)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.sess.Settle(ctx))
	require.Len(t, h.sess.Candidates(), 1)

	h.sess.Submit("90210")
	short, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	assert.ErrorIs(t, h.sess.Settle(short), context.DeadlineExceeded)
}

// TestSessionShortInputDuringSearch 测试查询进行中输入变短时，晚到结果不会重新填充列表
func TestSessionShortInputDuringSearch(t *testing.T) {
	h := newHarness(t, map[string]time.Duration{"902": 100 * time.Millisecond})
	h.sess.Submit("902")
	h.mock.Add(DefaultDelay)
	require.Eventually(t, func() bool { return h.fetch.calls.Load() >= 1 }, time.Second, time.Millisecond)

	h.sess.Submit("9")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.sess.Settle(ctx))

	assert.Empty(t, h.sess.Candidates())
	st, _ := h.lastState()
	assert.Empty(t, st.Candidates)
}
