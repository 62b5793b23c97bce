package callback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/callq/internal/testutil"
)

func TestExecute_GlobalFirstThenLocal(t *testing.T) {
	clk := testutil.NewManualClock()
	var order []string

	global := New[string](clk, time.Second, 10*time.Second).
		On(Success, func(p string) { order = append(order, "global:"+p) })
	local := New[string](clk, time.Second, 10*time.Second).
		On(Success, func(p string) { order = append(order, "local:"+p) })

	Execute([]*Set[string]{global, local}, Success, "r1")

	assert.Equal(t, []string{"global:r1", "local:r1"}, order)
}

func TestExecute_UndefinedHookIsNoop(t *testing.T) {
	clk := testutil.NewManualClock()
	s := New[int](clk, 0, 0)

	assert.NotPanics(t, func() {
		Execute([]*Set[int]{s, nil}, Failure, 1)
	})
	assert.False(t, s.Has(Failure))
}

func TestExecute_TimerBackedHookIsScheduled(t *testing.T) {
	clk := testutil.NewManualClock()
	fired := 0
	s := New[int](clk, 500*time.Millisecond, 10*time.Second).
		On(ResponseDelay, func(int) { fired++ })

	Execute([]*Set[int]{s}, ResponseDelay, 0)
	assert.Equal(t, 0, fired, "timer-backed hook must not fire synchronously")
	assert.True(t, s.Pending(ResponseDelay))

	clk.Advance(499 * time.Millisecond)
	assert.Equal(t, 0, fired)

	clk.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.False(t, s.Pending(ResponseDelay))
}

func TestExecute_ReschedulingReplacesPendingFiring(t *testing.T) {
	clk := testutil.NewManualClock()
	var payloads []string
	s := New[string](clk, time.Second, time.Second).
		On(Expiration, func(p string) { payloads = append(payloads, p) })

	Execute([]*Set[string]{s}, Expiration, "first")
	clk.Advance(600 * time.Millisecond)
	Execute([]*Set[string]{s}, Expiration, "second")
	clk.Advance(5 * time.Second)

	assert.Equal(t, []string{"second"}, payloads)
}

func TestClearTimer_CancelsWithoutFiring(t *testing.T) {
	clk := testutil.NewManualClock()
	fired := false
	global := New[int](clk, 100*time.Millisecond, time.Second).
		On(Expiration, func(int) { fired = true })
	local := New[int](clk, 100*time.Millisecond, time.Second)

	sets := []*Set[int]{global, local}
	Execute(sets, Expiration, 7)
	require.True(t, global.Pending(Expiration))

	ClearTimer(sets, Expiration)
	clk.Advance(time.Minute)

	assert.False(t, fired)
	assert.Equal(t, 0, clk.Pending())
}

func TestOn_NilRemovesHook(t *testing.T) {
	s := New[int](testutil.NewManualClock(), 0, 0)
	s.On(Complete, func(int) {})
	require.True(t, s.Has(Complete))

	s.On(Complete, nil)
	assert.False(t, s.Has(Complete))
}

func TestDelay(t *testing.T) {
	s := New[int](testutil.NewManualClock(), 250*time.Millisecond, 3*time.Second)

	d, ok := s.Delay(ResponseDelay)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, d)

	d, ok = s.Delay(Expiration)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	_, ok = s.Delay(Success)
	assert.False(t, ok)
}
