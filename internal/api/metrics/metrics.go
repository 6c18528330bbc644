// Package metrics defines and registers all custom Prometheus metrics for the
// accounting API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on import via
// promauto; the HTTP layer exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounting"

// ── Login pipeline ────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts by the outcome seen by the caller.
// Label:
//   - outcome: "success", "invalid_credentials", "locked", "unavailable", "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, labelled by outcome.",
	},
	[]string{"outcome"},
)

// LoginCollapsedTotal counts pending requests overwritten by a newer request
// for the same username before a worker picked them up.
var LoginCollapsedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_collapsed_total",
		Help:      "Total number of pending login requests replaced by a newer one.",
	},
)

// LoginVerificationDuration measures a single credential verification inside
// a per-user worker.
var LoginVerificationDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "login_verification_duration_seconds",
		Help:      "Duration of one credential verification, lookup and lockout update included.",
		Buckets:   prometheus.DefBuckets,
	},
)

// LoginWorkers tracks the number of live per-user workers.
var LoginWorkers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "login_workers",
		Help:      "Current number of per-user login workers.",
	},
)

// ── Tokens ────────────────────────────────────────────────────────────────────

// TokensIssuedTotal counts issued credentials.
// Label:
//   - kind: "session" or "renewal"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of issued tokens, by kind.",
	},
	[]string{"kind"},
)

// SigningKeyRotationsTotal counts session signing key rotations.
var SigningKeyRotationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signing_key_rotations_total",
		Help:      "Total number of session signing key rotations.",
	},
)

// RenewalTokensPurgedTotal counts expired renewal tokens removed by the janitor.
var RenewalTokensPurgedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "renewal_tokens_purged_total",
		Help:      "Total number of expired renewal tokens garbage-collected.",
	},
)
