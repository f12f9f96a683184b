package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersCreated           prometheus.Counter
	Logins                 *prometheus.CounterVec
	RegistrationsSubmitted *prometheus.CounterVec
	CertificatesIssued     *prometheus.CounterVec
	VerificationLookups    *prometheus.CounterVec
	HTTPDuration           *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vitalreg_users_created_total",
			Help: "Total number of users registered in the system",
		}),
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vitalreg_logins_total",
			Help: "Total login attempts by outcome",
		}, []string{"outcome"}),
		RegistrationsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vitalreg_registrations_submitted_total",
			Help: "Total registration applications submitted by kind",
		}, []string{"kind"}),
		CertificatesIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vitalreg_certificates_issued_total",
			Help: "Total certificates issued on approval by kind",
		}, []string{"kind"}),
		VerificationLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vitalreg_verification_lookups_total",
			Help: "Total public certificate verification lookups by result",
		}, []string{"result"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vitalreg_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// IncrementUsersCreated increments the users created counter by 1.
func (m *Metrics) IncrementUsersCreated() {
	if m == nil {
		return
	}
	m.UsersCreated.Inc()
}

// ObserveLogin records a login attempt outcome.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

// ObserveSubmission records a submitted application.
func (m *Metrics) ObserveSubmission(kind string) {
	if m == nil {
		return
	}
	m.RegistrationsSubmitted.WithLabelValues(kind).Inc()
}

// ObserveCertificateIssued records an issued certificate.
func (m *Metrics) ObserveCertificateIssued(kind string) {
	if m == nil {
		return
	}
	m.CertificatesIssued.WithLabelValues(kind).Inc()
}

// ObserveVerification records a verification lookup result.
func (m *Metrics) ObserveVerification(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.VerificationLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP records a request's latency.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
