package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	calls []int
	at    []time.Time
}

func (r *recorder) record(v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, v)
	r.at = append(r.at, time.Now())
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.calls...)
}

func TestBurstDeliversLastValueOnce(t *testing.T) {
	rec := &recorder{}
	d := New(50*time.Millisecond, rec.record)

	for i := 1; i <= 10; i++ {
		d.Call(i)
		time.Sleep(time.Millisecond)
	}

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []int{10}, rec.snapshot())
	assert.False(t, d.Pending())
}

func TestNothingDeliveredBeforeDelay(t *testing.T) {
	rec := &recorder{}
	d := New(80*time.Millisecond, rec.record)

	start := time.Now()
	d.Call(1)
	assert.True(t, d.Pending())
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	elapsed := rec.at[0].Sub(start)
	rec.mu.Unlock()
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
}

func TestSeparatedCallsEachDeliver(t *testing.T) {
	rec := &recorder{}
	d := New(10*time.Millisecond, rec.record)

	d.Call(1)
	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 2*time.Millisecond)
	d.Call(2)
	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 2*time.Millisecond)

	assert.Equal(t, []int{1, 2}, rec.snapshot())
}

func TestStopDropsPendingAndLaterCalls(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.record)

	d.Call(1)
	d.Stop()
	d.Call(2)
	assert.False(t, d.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}
