package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caregiver_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caregiver_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	AccountsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caregiver_accounts_registered_total",
			Help: "Total accounts registered",
		},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caregiver_messages_sent_total",
			Help: "Total messages sent",
		},
		[]string{"listing_kind"},
	)

	ProfilesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caregiver_profiles_created_total",
			Help: "Total profiles created",
		},
		[]string{"kind"},
	)

	ListingsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caregiver_listings_posted_total",
			Help: "Total listings posted",
		},
		[]string{"kind"},
	)

	SchedulesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caregiver_schedules_created_total",
			Help: "Total care schedules created",
		},
		[]string{"kind"},
	)

	VerificationCodesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caregiver_verification_codes_issued_total",
			Help: "Total sign-in verification codes issued",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caregiver_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
