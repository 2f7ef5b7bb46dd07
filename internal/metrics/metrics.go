// Package metrics collects and exposes Prometheus metrics for logins and
// session checks.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements auth.Recorder on top of Prometheus counters.
type Collector struct {
	loginSuccess   *prometheus.CounterVec
	loginFail      *prometheus.CounterVec
	sessionChecks  *prometheus.CounterVec
	ownerAssigned  prometheus.Counter
	counterFailure prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miniapp_auth_login_success_total",
			Help: "Successful logins by resolved role and whether the user row was new.",
		}, []string{"role", "new_user"}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miniapp_auth_login_fail_total",
			Help: "Failed logins by failure kind.",
		}, []string{"reason"}),
		sessionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miniapp_auth_session_checks_total",
			Help: "Session token checks by outcome.",
		}, []string{"outcome"}),
		ownerAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miniapp_auth_owner_assigned_total",
			Help: "Tenants whose owner was claimed.",
		}),
		counterFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miniapp_auth_counter_store_failures_total",
			Help: "Visit counter or membership updates that failed and were skipped.",
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.sessionChecks,
		c.ownerAssigned,
		c.counterFailure,
	)
	return c
}

func (c *Collector) LoginSucceeded(role string, newUser bool) {
	c.loginSuccess.WithLabelValues(role, strconv.FormatBool(newUser)).Inc()
}

func (c *Collector) LoginFailed(reason string) { c.loginFail.WithLabelValues(reason).Inc() }

func (c *Collector) SessionChecked(outcome string) { c.sessionChecks.WithLabelValues(outcome).Inc() }

func (c *Collector) OwnerAssigned() { c.ownerAssigned.Inc() }

func (c *Collector) CounterStoreFailed() { c.counterFailure.Inc() }

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
