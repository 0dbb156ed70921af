package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the automation counters. A nil *Metrics records nothing.
type Metrics struct {
	postsProvisioned *prometheus.CounterVec
	postsSwept       *prometheus.CounterVec
	agendaEvents     *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	jobRuns          *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		postsProvisioned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autopost_posts_provisioned_total",
				Help: "Provisioning attempts by outcome",
			},
			[]string{"outcome"},
		),
		postsSwept: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autopost_posts_swept_total",
				Help: "Posts finalized by the due sweeper by outcome",
			},
			[]string{"outcome"},
		),
		agendaEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autopost_agenda_events_total",
				Help: "Agenda entries by result (scheduled, dropped, skipped)",
			},
			[]string{"result"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autopost_job_duration_seconds",
				Help:    "Wall time of automation jobs",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"job"},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autopost_job_runs_total",
				Help: "Automation job runs by result",
			},
			[]string{"job", "result"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.postsProvisioned, m.postsSwept, m.agendaEvents, m.jobDuration, m.jobRuns)
	}
	return m
}

func (m *Metrics) provisioned(outcome Outcome) {
	if m == nil {
		return
	}
	m.postsProvisioned.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) swept(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.postsSwept.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) agenda(result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.agendaEvents.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) job(name string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.jobDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	m.jobRuns.WithLabelValues(name, result).Inc()
}
