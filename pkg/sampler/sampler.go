// Package sampler is the in-process half of the timeit metrics pipeline.
//
// A target program imports it (or blank-imports pkg/sampler/auto) to have
// its runtime metrics written to the file named by TIMEIT_METRICS_FILE.
// When that variable is unset the package does nothing, so the import is
// safe to leave in production binaries.
//
//	func main() {
//		sampler.Run(func() {
//			defer sampler.Recover()
//			realMain()
//		})
//	}
package sampler

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/wesleyorama2/timeit/internal/clock"
	"github.com/wesleyorama2/timeit/internal/wire"
)

// Environment variables read at start.
const (
	EnvMetricsFile = wire.EnvMetricsFile
	EnvProcessName = wire.EnvProcessName
)

// DefaultInterval is the sampling period.
const DefaultInterval = 50 * time.Millisecond

// Sampler periodically writes runtime metrics to a wire.Writer.
type Sampler struct {
	w        *wire.Writer
	clock    clock.Clock
	interval time.Duration
	numCPU   int

	mu       sync.Mutex
	panics   map[string]float64
	prev     snapshot
	lastTick time.Time
	started  bool
	stopped  bool

	stop chan struct{}
	done chan struct{}
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock overrides the anchored monotonic clock.
func WithClock(c clock.Clock) Option {
	return func(s *Sampler) {
		s.clock = c
	}
}

// New creates a sampler writing to w. It does not start sampling.
func New(w *wire.Writer, opts ...Option) *Sampler {
	s := &Sampler{
		w:        w,
		interval: DefaultInterval,
		numCPU:   runtime.NumCPU(),
		panics:   make(map[string]float64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.NewMonotonic()
	}
	return s
}

// Start records the process start timestamp and begins the sampling loop.
func (s *Sampler) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	now := s.clock.Now()
	s.lastTick = now
	s.prev = readSnapshot()
	s.mu.Unlock()

	if err := s.w.Write(wire.Timer(wire.ProcessStart, clock.UnixMillis(now))); err != nil {
		return err
	}

	go s.loop()
	return nil
}

func (s *Sampler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			_ = s.Sample()
		}
	}
}

// Sample takes one sample and writes it as a single batch.
func (s *Sampler) Sample() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	records := s.collectLocked()
	s.mu.Unlock()

	return s.w.Write(records...)
}

func (s *Sampler) collectLocked() []wire.Record {
	now := s.clock.Now()
	elapsed := now.Sub(s.lastTick)
	s.lastTick = now

	cur := readSnapshot()
	records := cur.records(s.prev, elapsed, s.numCPU)
	s.prev = cur

	for name, count := range s.panics {
		records = append(records, wire.Increment(wire.PanicPrefix+name, count))
	}
	clear(s.panics)
	return records
}

// MarkMainStart records the main start timestamp.
func (s *Sampler) MarkMainStart() error {
	return s.w.Write(wire.Timer(wire.ProcessMainStart, clock.UnixMillis(s.clock.Now())))
}

// MarkMainEnd records the main end timestamp.
func (s *Sampler) MarkMainEnd() error {
	return s.w.Write(wire.Timer(wire.ProcessMainEnd, clock.UnixMillis(s.clock.Now())))
}

// RecordPanic tallies a panic value by its type name. The tally is flushed
// as an increment on the next sample.
func (s *Sampler) RecordPanic(v any) {
	name := panicName(v)
	s.mu.Lock()
	s.panics[name]++
	s.mu.Unlock()
}

// Stop ends the sampling loop, writes a final sample and the process end
// timestamp, then closes the writer.
func (s *Sampler) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stop)
	<-s.done

	s.mu.Lock()
	records := s.collectLocked()
	records = append(records, wire.Timer(wire.ProcessEnd, clock.UnixMillis(s.clock.Now())))
	s.mu.Unlock()

	if err := s.w.Write(records...); err != nil {
		_ = s.w.Close()
		return err
	}
	return s.w.Close()
}

func panicName(v any) string {
	name := fmt.Sprintf("%T", v)
	name = strings.TrimPrefix(name, "*")
	return strings.ReplaceAll(name, " ", "_")
}

var (
	globalMu sync.Mutex
	global   *Sampler
)

// Enabled reports whether the environment asks this process to be sampled.
func Enabled() bool {
	if os.Getenv(EnvMetricsFile) == "" {
		return false
	}
	want := os.Getenv(EnvProcessName)
	if want == "" {
		return true
	}
	return matchesProcess(want, os.Args[0])
}

func matchesProcess(want, arg0 string) bool {
	strip := func(name string) string {
		name = filepath.Base(name)
		return strings.TrimSuffix(strings.ToLower(name), ".exe")
	}
	return strip(want) == strip(arg0)
}

// Start creates the process-wide sampler from the environment and starts
// it. It is a no-op when sampling is not enabled or already running.
func Start() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil || !Enabled() {
		return nil
	}

	w, err := wire.Create(os.Getenv(EnvMetricsFile))
	if err != nil {
		return err
	}
	s := New(w)
	if err := s.Start(); err != nil {
		_ = w.Close()
		return err
	}
	global = s
	return nil
}

// Stop stops the process-wide sampler, if any.
func Stop() error {
	globalMu.Lock()
	s := global
	global = nil
	globalMu.Unlock()

	if s == nil {
		return nil
	}
	if err := s.MarkMainEnd(); err != nil {
		return err
	}
	return s.Stop()
}

// Run starts the process-wide sampler, runs fn between the main start and
// main end markers, and stops the sampler. Sampling errors never prevent fn
// from running.
func Run(fn func()) {
	if err := Start(); err != nil {
		fmt.Fprintf(os.Stderr, "timeit sampler: %v\n", err)
	}
	if s := current(); s != nil {
		_ = s.MarkMainStart()
	}
	defer func() {
		if err := Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "timeit sampler: %v\n", err)
		}
	}()
	fn()
}

// MarkMainStart records the main start marker on the process-wide sampler.
// Programs started through pkg/sampler/auto call it at the top of main.
func MarkMainStart() {
	if s := current(); s != nil {
		_ = s.MarkMainStart()
	}
}

// RecordPanic tallies v on the process-wide sampler.
func RecordPanic(v any) {
	if s := current(); s != nil {
		s.RecordPanic(v)
	}
}

// Recover is meant to be deferred. It tallies a panic in flight and then
// re-panics with the same value.
func Recover() {
	if r := recover(); r != nil {
		RecordPanic(r)
		panic(r)
	}
}

func current() *Sampler {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}
