package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// WebhookTotal counts inbound checkout webhooks by event type and outcome.
	WebhookTotal *prometheus.CounterVec
	// APIRequestTotal counts outbound remote API calls by endpoint and status class.
	APIRequestTotal *prometheus.CounterVec
	// LinkBuildTotal counts checkout-link build attempts by outcome.
	LinkBuildTotal *prometheus.CounterVec
	// RefundTotal counts refund proxy calls by outcome.
	RefundTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		WebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_total",
			Help:      "Count of processed checkout webhooks by event type and outcome.",
		}, []string{"type", "outcome"})
		APIRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_request_total",
			Help:      "Count of outbound checkout API requests by endpoint and status class.",
		}, []string{"endpoint", "status_class"})
		LinkBuildTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_build_total",
			Help:      "Count of checkout-link build attempts by outcome.",
		}, []string{"outcome"})
		RefundTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_total",
			Help:      "Count of refund proxy operations by outcome.",
		}, []string{"outcome"})

		for _, collector := range []prometheus.Collector{WebhookTotal, APIRequestTotal, LinkBuildTotal, RefundTotal} {
			if err := reg.Register(collector); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
					continue
				}
				panic(fmt.Errorf("register domain metric: %w", err))
			}
		}
	})
}
