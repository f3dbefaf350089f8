// Package metrics defines and registers all custom Prometheus metrics for the
// access gate. It is the single source of truth for metric names, labels, and
// help strings. Metrics are registered with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accessgate"

// ── Login metrics ─────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts POST /auth decisions.
// Label:
//   - outcome: "authenticated", "invalid_credentials", "hwid_mismatch",
//     "banned", "rate_limited", "bad_request" or "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"outcome"},
)

// AuthDuration measures the login decision latency including store round trips.
var AuthDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "auth_duration_seconds",
		Help:      "Duration of login decisions.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Invite metrics ────────────────────────────────────────────────────────────

// InvitesCreatedTotal counts generated invite codes.
var InvitesCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invites_created_total",
		Help:      "Total number of invite codes created.",
	},
)

// InvitesConsumedTotal counts redemption attempts made through registration.
// Label:
//   - result: "ok", "invalid", "used", "expired" or "error"
var InvitesConsumedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invites_consumed_total",
		Help:      "Total number of invite redemption attempts, by result.",
	},
	[]string{"result"},
)

// ── User metrics ──────────────────────────────────────────────────────────────

// UsersRegisteredTotal counts accounts created.
var UsersRegisteredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_registered_total",
		Help:      "Total number of accounts registered.",
	},
)

// AdminActionsTotal counts administrative mutations.
// Label:
//   - action: "ban", "unban" or "reset_hwid"
var AdminActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admin_actions_total",
		Help:      "Total number of administrative account actions, by action.",
	},
	[]string{"action"},
)
