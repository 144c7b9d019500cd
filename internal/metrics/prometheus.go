package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/OldStager01/paas-autoscaler/internal/logger"
)

// PrometheusExporter is an in-process Sink that also serves a
// Prometheus-text-exposition HTTP handler over whatever gauges/counters
// have been reported, keyed by the dotted metric name scalers already
// use (e.g. "web-frontend.request-count"). It exists purely for local
// scraping; the StatsDClient is the sink of record for production push.
type PrometheusExporter struct {
	mu       sync.RWMutex
	gauges   map[string]float64
	counters map[string]float64
}

func NewPrometheusExporter() *PrometheusExporter {
	return &PrometheusExporter{
		gauges:   make(map[string]float64),
		counters: make(map[string]float64),
	}
}

func (p *PrometheusExporter) Gauge(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gauges[name] = value
}

func (p *PrometheusExporter) Incr(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters[name] += value
}

func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.RLock()
		defer p.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		for name, value := range p.gauges {
			writeMetric(w, metricName(name), value)
		}
		for name, value := range p.counters {
			writeMetric(w, metricName(name)+"_total", value)
		}
	})
}

// metricName turns a scaler's dotted gauge name ("web.request-count")
// into a Prometheus-legal metric name (autoscaler_web_request_count).
func metricName(name string) string {
	out := make([]byte, 0, len(name)+len("autoscaler_"))
	out = append(out, "autoscaler_"...)
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, byte(r))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func writeMetric(w http.ResponseWriter, name string, value float64) {
	w.Write([]byte(name + " " + strconv.FormatFloat(value, 'f', -1, 64) + "\n"))
}

// StartServer runs the exporter's handler on its own HTTP server,
// matching the teacher's fire-and-forget background listener.
func (p *PrometheusExporter) StartServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())

	addr := ":" + strconv.Itoa(port)
	logger.Infof("prometheus metrics server listening on %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("prometheus server error: %v", err)
		}
	}()
}
