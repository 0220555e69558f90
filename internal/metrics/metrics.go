package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

// CounterVec is a set of counters keyed by a label value.
type CounterVec struct {
	mu       sync.RWMutex
	counters map[string]*Counter
}

func (v *CounterVec) With(label string) *Counter {
	v.mu.RLock()
	c, ok := v.counters[label]
	v.mu.RUnlock()
	if ok {
		return c
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.counters == nil {
		v.counters = make(map[string]*Counter)
	}
	if c, ok = v.counters[label]; !ok {
		c = &Counter{}
		v.counters[label] = c
	}
	return c
}

func (v *CounterVec) Snapshot() map[string]uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make(map[string]uint64, len(v.counters))
	for k, c := range v.counters {
		out[k] = c.Load()
	}
	return out
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Latency keeps a count and running total, enough for an average.
type Latency struct {
	count   Counter
	totalNS Counter
}

func (l *Latency) Observe(d time.Duration) {
	if d < 0 {
		d = 0
	}
	l.count.Inc()
	l.totalNS.Add(uint64(d))
}

func (l *Latency) AverageMS() float64 {
	n := l.count.Load()
	if n == 0 {
		return 0
	}
	return float64(l.totalNS.Load()) / float64(n) / float64(time.Millisecond)
}

// Checkout groups the counters the checkout flow reports.
type Checkout struct {
	Submissions     Counter
	Approved        Counter
	Pending         Counter
	Rejected        Counter
	TransferFailed  Counter
	Cancellations   Counter
	CancelFailures  Counter
	FailuresByKind  CounterVec
	ByMethod        CounterVec
	PaymentLatency  Latency
	SessionsCreated Counter
}

type CheckoutSnapshot struct {
	Submissions      uint64            `json:"submissions"`
	Approved         uint64            `json:"approved"`
	Pending          uint64            `json:"pending"`
	Rejected         uint64            `json:"rejected"`
	TransferFailed   uint64            `json:"transfer_failed"`
	Cancellations    uint64            `json:"cancellations"`
	CancelFailures   uint64            `json:"cancel_failures"`
	FailuresByKind   map[string]uint64 `json:"failures_by_kind"`
	ByMethod         map[string]uint64 `json:"by_method"`
	PaymentLatencyMS float64           `json:"payment_latency_avg_ms"`
	SessionsCreated  uint64            `json:"sessions_created"`
}

func (c *Checkout) Snapshot() CheckoutSnapshot {
	return CheckoutSnapshot{
		Submissions:      c.Submissions.Load(),
		Approved:         c.Approved.Load(),
		Pending:          c.Pending.Load(),
		Rejected:         c.Rejected.Load(),
		TransferFailed:   c.TransferFailed.Load(),
		Cancellations:    c.Cancellations.Load(),
		CancelFailures:   c.CancelFailures.Load(),
		FailuresByKind:   c.FailuresByKind.Snapshot(),
		ByMethod:         c.ByMethod.Snapshot(),
		PaymentLatencyMS: c.PaymentLatency.AverageMS(),
		SessionsCreated:  c.SessionsCreated.Load(),
	}
}

// Labels returns the label values of v in sorted order.
func (v *CounterVec) Labels() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]string, 0, len(v.counters))
	for k := range v.counters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
