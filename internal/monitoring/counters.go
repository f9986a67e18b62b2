package monitoring

import (
	"sync"
	"time"

	"github.com/banshee-data/hillas.stream/internal/timeutil"
)

// DefaultPerfSample is the number of tuples per throughput report.
const DefaultPerfSample = 500

// Snapshot is a point-in-time view of one counter.
type Snapshot struct {
	Name            string    `json:"name"`
	Total           uint64    `json:"total"`
	EventsPerSecond float64   `json:"events_per_second,omitempty"`
	LastReport      time.Time `json:"last_report,omitempty"`
}

// PerfCounter reports throughput once every sample tuples. The sample
// window restarts at each report, so a rate covers only its own window.
type PerfCounter struct {
	name   string
	sample int
	clock  timeutil.Clock

	mu         sync.Mutex
	inWindow   int
	total      uint64
	start      time.Time
	rate       float64
	lastReport time.Time
}

// NewPerfCounter returns a counter reporting every sample tuples. A
// non-positive sample selects DefaultPerfSample; a nil clock selects the
// wall clock.
func NewPerfCounter(name string, sample int, clock timeutil.Clock) *PerfCounter {
	if sample <= 0 {
		sample = DefaultPerfSample
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &PerfCounter{name: name, sample: sample, clock: clock, start: clock.Now()}
}

// Observe records one tuple.
func (p *PerfCounter) Observe() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inWindow++
	p.total++
	if p.inWindow < p.sample {
		return
	}

	elapsed := p.clock.Since(p.start)
	if elapsed > 0 {
		p.rate = float64(p.inWindow) / elapsed.Seconds()
	}
	p.lastReport = p.clock.Now()
	Logf("[%s] receiving %.1f events per second", p.name, p.rate)

	p.inWindow = 0
	p.start = p.lastReport
}

// Snapshot returns the totals and the most recent rate.
func (p *PerfCounter) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{Name: p.name, Total: p.total, EventsPerSecond: p.rate, LastReport: p.lastReport}
}

// ErrorCounter counts error-stream tuples and logs each one.
type ErrorCounter struct {
	label string

	mu    sync.Mutex
	count uint64
}

// NewErrorCounter returns a counter whose log lines carry label.
func NewErrorCounter(label string) *ErrorCounter {
	return &ErrorCounter{label: label}
}

// Observe records one error signal.
func (c *ErrorCounter) Observe() {
	c.mu.Lock()
	c.count++
	n := c.count
	c.mu.Unlock()
	Logf("[%s] received error event number %d", c.label, n)
}

// Snapshot returns the running count.
func (c *ErrorCounter) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Name: c.label, Total: c.count}
}
