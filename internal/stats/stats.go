// Package stats counts pipeline events and exposes them in the Prometheus text format.
package stats

import (
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const namespace = "envirogram"

// Counters is safe for concurrent use.
type Counters struct {
	received atomic.Uint64
	computed atomic.Uint64
	dropped  atomic.Uint64

	mu           sync.Mutex
	sinkFailures map[string]*atomic.Uint64
}

func NewCounters() *Counters {
	return &Counters{sinkFailures: make(map[string]*atomic.Uint64)}
}

func (c *Counters) IncReceived() { c.received.Add(1) }
func (c *Counters) IncComputed() { c.computed.Add(1) }
func (c *Counters) IncDropped()  { c.dropped.Add(1) }

func (c *Counters) IncSinkFailure(sink string) {
	c.mu.Lock()
	n, ok := c.sinkFailures[sink]
	if !ok {
		n = new(atomic.Uint64)
		c.sinkFailures[sink] = n
	}
	c.mu.Unlock()
	n.Add(1)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Received     uint64
	Computed     uint64
	Dropped      uint64
	SinkFailures map[string]uint64
}

func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{
		Received:     c.received.Load(),
		Computed:     c.computed.Load(),
		Dropped:      c.dropped.Load(),
		SinkFailures: make(map[string]uint64),
	}
	c.mu.Lock()
	for name, n := range c.sinkFailures {
		s.SinkFailures[name] = n.Load()
	}
	c.mu.Unlock()
	return s
}

// Gauge is sampled on every exposition.
type Gauge struct {
	Name  string
	Help  string
	Value func() float64
}

// WriteText writes the counters and gauges to w in the Prometheus text format.
func WriteText(w io.Writer, c *Counters, gauges ...Gauge) error {
	for _, mf := range families(c.Snapshot(), gauges) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves WriteText over HTTP.
func Handler(c *Counters, gauges ...Gauge) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		_ = WriteText(w, c, gauges...)
	})
}

func families(s Snapshot, gauges []Gauge) []*dto.MetricFamily {
	out := []*dto.MetricFamily{
		counter("readings_received_total", "Input records offered to the calculator.", s.Received),
		counter("readings_computed_total", "Output records produced.", s.Computed),
		counter("readings_dropped_total", "Input records rejected as invalid.", s.Dropped),
	}

	sinks := make([]string, 0, len(s.SinkFailures))
	for name := range s.SinkFailures {
		sinks = append(sinks, name)
	}
	sort.Strings(sinks)

	failures := &dto.MetricFamily{
		Name: proto.String(namespace + "_sink_failures_total"),
		Help: proto.String("Records a sink failed to accept."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, name := range sinks {
		failures.Metric = append(failures.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: proto.String("sink"), Value: proto.String(name)}},
			Counter: &dto.Counter{Value: proto.Float64(float64(s.SinkFailures[name]))},
		})
	}
	if len(failures.Metric) > 0 {
		out = append(out, failures)
	}

	for _, g := range gauges {
		out = append(out, &dto.MetricFamily{
			Name: proto.String(namespace + "_" + g.Name),
			Help: proto.String(g.Help),
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{
				Gauge: &dto.Gauge{Value: proto.Float64(g.Value())},
			}},
		})
	}
	return out
}

func counter(name, help string, v uint64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(namespace + "_" + name),
		Help: proto.String(help),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{
			Counter: &dto.Counter{Value: proto.Float64(float64(v))},
		}},
	}
}
