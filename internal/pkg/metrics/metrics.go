// Package metrics defines and registers the custom Prometheus metrics of the
// auth API. It is the single source of truth for metric names, labels and
// help strings.
//
// Metrics are registered with the default registry through promauto when the
// package is first imported; HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// ── Token metrics ────────────────────────────────────────────────────────────

// TokensIssuedTotal counts signed tokens.
// Label:
//   - kind: "access" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of tokens issued, by kind.",
	},
	[]string{"kind"},
)

// TokenRejectionsTotal counts tokens that failed Decode. The reason label is
// for operators only; clients always see the same opaque failure.
// Labels:
//   - kind: the expected kind ("access" or "refresh")
//   - reason: "malformed", "signature", "expired", "kind", "subject", "revoked", "store"
var TokenRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rejections_total",
		Help:      "Total number of tokens rejected during decode, by expected kind and reason.",
	},
	[]string{"kind", "reason"},
)

// TokensRevokedTotal counts revocations (including repeated revocations of the same jti).
var TokensRevokedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_revoked_total",
		Help:      "Total number of token revocations.",
	},
)

// RevocationEntries tracks the size of the in-memory revocation set.
var RevocationEntries = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "revocation_entries",
		Help:      "Current number of jti entries held by the in-memory revocation store.",
	},
)

// ── Flow metrics ─────────────────────────────────────────────────────────────

// AuthFlowsTotal counts orchestrator calls.
// Labels:
//   - flow: "register", "login", "refresh", "logout"
//   - result: "success" or "failure"
var AuthFlowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flows_total",
		Help:      "Total number of authentication flows, by flow and result.",
	},
	[]string{"flow", "result"},
)

// PasswordHashDuration measures bcrypt hashing and comparison cost.
// Label:
//   - op: "hash" or "verify"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of bcrypt operations.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"op"},
)

// ── Audit metrics ────────────────────────────────────────────────────────────

// AuditEventsDroppedTotal counts audit events dropped because a worker buffer was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped because the dispatcher was saturated.",
	},
)

// AuditQueueDepth tracks the number of events waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
