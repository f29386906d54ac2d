// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts login outcomes by result.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contactsss",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"result"})

	// Signups counts completed signups.
	Signups = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "contactsss",
		Subsystem: "auth",
		Name:      "signups_total",
		Help:      "Completed signups.",
	})

	// CacheHits counts user-cache lookups served without the backing store.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "contactsss",
		Subsystem: "usercache",
		Name:      "hits_total",
		Help:      "User cache hits.",
	})

	// CacheMisses counts user-cache lookups that fell through to the store.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "contactsss",
		Subsystem: "usercache",
		Name:      "misses_total",
		Help:      "User cache misses.",
	})

	// RateLimited counts admission rejections by route class.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contactsss",
		Subsystem: "rate",
		Name:      "rejected_total",
		Help:      "Requests rejected by the rate limiter, by route class.",
	}, []string{"class"})

	// MailFailures counts outbound mail deliveries that exhausted retries.
	MailFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "contactsss",
		Subsystem: "mail",
		Name:      "send_failures_total",
		Help:      "Outbound mail sends that failed after retries.",
	})
)
