// Package metrics instruments casegraph's hot paths.
//
// Each pipeline stage (fetch, layout, highlight derivation, scene build,
// export, TUI render) has a TimingMetric. A measurement is kept in memory for
// the CG_DEBUG summary printed on exit and is also observed by the
// casegraph_operation_duration_seconds histogram served on -metrics-addr.
// Set CG_METRICS=0 to turn recording off.
//
//	defer metrics.Timer(metrics.LayoutCompute)()
package metrics

import (
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("CG_METRICS") != "0")
}

// Enabled reports whether timings are recorded.
func Enabled() bool { return enabled.Load() }

// SetEnabled turns recording on or off.
func SetEnabled(e bool) { enabled.Store(e) }

// TimingMetric accumulates durations for one pipeline stage.
type TimingMetric struct {
	name  string
	hist  prometheus.Observer
	count atomic.Int64
	total atomic.Int64 // ns
	max   atomic.Int64 // ns
}

func newTimingMetric(stage string) *TimingMetric {
	return &TimingMetric{name: stage, hist: OperationSeconds.WithLabelValues(stage)}
}

// Name is the stage label, e.g. "layout_compute".
func (m *TimingMetric) Name() string { return m.name }

// Count is the number of recorded measurements.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Record adds d to the in-memory totals and the histogram.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled.Load() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)
	for old := m.max.Load(); ns > old && !m.max.CompareAndSwap(old, ns); old = m.max.Load() {
	}
	m.hist.Observe(d.Seconds())
}

// Reset clears the in-memory totals. The histogram is cumulative and keeps
// its samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
}

// Stats is a point-in-time view of a TimingMetric.
type Stats struct {
	Name  string
	Count int64
	Total time.Duration
	Max   time.Duration
}

// Avg is the mean duration, zero without measurements.
func (s Stats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

func (s Stats) String() string {
	return fmt.Sprintf("%s: n=%d avg=%v max=%v total=%v", s.Name, s.Count, s.Avg(), s.Max, s.Total)
}

// Stats reads the current totals.
func (m *TimingMetric) Stats() Stats {
	return Stats{
		Name:  m.name,
		Count: m.count.Load(),
		Total: time.Duration(m.total.Load()),
		Max:   time.Duration(m.max.Load()),
	}
}

// Timer starts timing m; call the returned func to record the elapsed time.
func Timer(m *TimingMetric) func() {
	if m == nil || !enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() { m.Record(time.Since(start)) }
}

// Pipeline stages.
var (
	GatewayFetch    = newTimingMetric("gateway_fetch")
	LayoutCompute   = newTimingMetric("layout_compute")
	HighlightDerive = newTimingMetric("highlight_derive")
	SceneBuild      = newTimingMetric("scene_build")
	ExportRender    = newTimingMetric("export_render")
	UIRender        = newTimingMetric("ui_render")
)

func stages() []*TimingMetric {
	return []*TimingMetric{GatewayFetch, LayoutCompute, HighlightDerive, SceneBuild, ExportRender, UIRender}
}

// Summary returns the stages that recorded anything, most total time first.
func Summary() []Stats {
	var out []Stats
	for _, m := range stages() {
		if s := m.Stats(); s.Count > 0 {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// ResetAll clears every stage.
func ResetAll() {
	for _, m := range stages() {
		m.Reset()
	}
}
