// Package metrics holds the prometheus collectors of the message pipeline.
package metrics

import (
	"runtime"

	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"

	"toneai/pkg/models"
)

// Pipeline counts sends and rewrite outcomes.
type Pipeline struct {
	messagesSent *prometheus.CounterVec
	transforms   *prometheus.CounterVec
}

// New registers the pipeline collectors on reg.
func New(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toneai",
			Name:      "messages_sent_total",
			Help:      "Messages stored, by kind.",
		}, []string{"kind"}),
		transforms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toneai",
			Name:      "transformations_total",
			Help:      "Tone rewrite calls, by relationship and result.",
		}, []string{"relationship", "result"}),
	}
	reg.MustRegister(p.messagesSent, p.transforms)
	return p
}

func (p *Pipeline) MessageSent(m models.Message) {
	kind := "text"
	if m.IsStamp {
		kind = "stamp"
	}
	p.messagesSent.WithLabelValues(kind).Inc()
}

func (p *Pipeline) TransformDone(relationship string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	p.transforms.WithLabelValues(relationship, result).Inc()
}

// RegisterRuntime adds the heap and gc gauges; go_goroutines already comes
// with the default registry's go collector.
func RegisterRuntime(reg prometheus.Registerer) {
	read := func(f func(*runtime.MemStats) float64) func() float64 {
		return func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return f(&stats)
		}
	}
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "go_gc_pause_total_ns",
			Help: "Total GC pause time in nanoseconds.",
		}, read(func(s *runtime.MemStats) float64 { return float64(s.PauseTotalNs) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "go_heap_alloc_bytes",
			Help: "Current heap allocation in bytes.",
		}, read(func(s *runtime.MemStats) float64 { return float64(s.HeapAlloc) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "go_heap_sys_bytes",
			Help: "Total heap size in bytes.",
		}, read(func(s *runtime.MemStats) float64 { return float64(s.HeapSys) })),
	)
}

// PebbleSource exposes the storage engine's metrics; nil once closed.
type PebbleSource interface {
	Metrics() *pebble.Metrics
}

// RegisterStore adds gauges read from the pebble metrics on each scrape.
func RegisterStore(reg prometheus.Registerer, src PebbleSource) {
	read := func(f func(*pebble.Metrics) float64) func() float64 {
		return func() float64 {
			m := src.Metrics()
			if m == nil {
				return 0
			}
			return f(m)
		}
	}
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "toneai",
			Name:      "store_disk_usage_bytes",
			Help:      "On-disk size of the store.",
		}, read(func(m *pebble.Metrics) float64 { return float64(m.DiskSpaceUsage()) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "toneai",
			Name:      "store_compactions",
			Help:      "Compactions run since the store was opened.",
		}, read(func(m *pebble.Metrics) float64 { return float64(m.Compact.Count) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "toneai",
			Name:      "store_memtable_bytes",
			Help:      "Bytes held in memtables.",
		}, read(func(m *pebble.Metrics) float64 { return float64(m.MemTable.Size) })),
	)
}
