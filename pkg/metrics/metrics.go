package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for command runs
type Metrics struct {
	runs             *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	dispatchAttempts *prometheus.CounterVec
	labelCreates     prometheus.Counter
}

// New registers the command collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicecmd",
			Name:      "runs_total",
			Help:      "Completed command runs by final state and failed stage.",
		}, []string{"state", "stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voicecmd",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "status"}),
		dispatchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicecmd",
			Name:      "dispatch_attempts_total",
			Help:      "Create calls issued to the calendar and task services.",
		}, []string{"target"}),
		labelCreates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voicecmd",
			Name:      "label_creates_total",
			Help:      "Labels created on the task service.",
		}),
	}
	m.runs = register(reg, m.runs)
	m.stageDuration = register(reg, m.stageDuration)
	m.dispatchAttempts = register(reg, m.dispatchAttempts)
	m.labelCreates = register(reg, m.labelCreates)
	return m
}

// register reuses an already registered collector of the same shape
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveRun counts one finished run
func (m *Metrics) ObserveRun(state, stage string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(state, stage).Inc()
}

// ObserveStage records how long a stage took
func (m *Metrics) ObserveStage(stage string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(time.Since(started).Seconds())
}

// IncDispatchAttempt counts one create call against target ("calendar" or "todoist")
func (m *Metrics) IncDispatchAttempt(target string) {
	if m == nil {
		return
	}
	m.dispatchAttempts.WithLabelValues(target).Inc()
}

func (m *Metrics) IncLabelCreate() {
	if m == nil {
		return
	}
	m.labelCreates.Inc()
}
