// Package metrics holds the Prometheus instruments used across the service.
// All collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "csrf_tokens_issued_total",
			Help: "Cumulative number of CSRF tokens issued.",
		})

	TokensConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "csrf_tokens_consumed_total",
			Help: "Cumulative number of CSRF tokens validated and consumed.",
		})

	TokensRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csrf_tokens_rejected_total",
			Help: "Cumulative number of CSRF validation failures by reason.",
		},
		[]string{"reason"})

	TokensActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "csrf_tokens_active",
			Help: "Number of unconsumed CSRF tokens currently stored.",
		})

	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ratelimit_denied_total",
			Help: "Cumulative number of requests denied by the rate limiter.",
		})

	RateLimitActiveCounters = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratelimit_active_counters",
			Help: "Number of client counters currently tracked.",
		})

	HoneypotTripsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "honeypot_trips_total",
			Help: "Cumulative number of submissions with a filled honeypot field.",
		})

	TimingTripsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timing_trips_total",
			Help: "Cumulative number of submissions rejected as too fast.",
		})

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Cumulative contact submissions by outcome.",
		},
		[]string{"outcome"})

	EmailsSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Cumulative number of contact emails delivered downstream.",
		})

	EmailFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "email_failures_total",
			Help: "Cumulative number of downstream email provider failures.",
		})
)

func init() {
	prometheus.MustRegister(
		TokensIssuedTotal,
		TokensConsumedTotal,
		TokensRejectedTotal,
		TokensActive,
		RateLimitDeniedTotal,
		RateLimitActiveCounters,
		HoneypotTripsTotal,
		TimingTripsTotal,
		SubmissionsTotal,
		EmailsSentTotal,
		EmailFailuresTotal,
	)
}
