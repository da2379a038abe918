package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findam_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "findam_http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"method", "route"},
	)

	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findam_bookings_created_total",
			Help: "Total number of bookings created",
		},
	)

	PaymentsInitiated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findam_payments_initiated_total",
			Help: "Total number of NotchPay payments initiated",
		},
	)

	PaymentsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findam_payments_completed_total",
			Help: "Total number of payment webhooks processed by outcome",
		},
		[]string{"status"},
	)

	PayoutsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findam_payouts_processed_total",
			Help: "Total number of owner payouts processed",
		},
		[]string{"status"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findam_notifications_sent_total",
			Help: "Total number of outbound notifications by channel and outcome",
		},
		[]string{"channel", "status"},
	)
)
