package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduling
// core: HTTP traffic plus the domain counters operators actually watch.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	holdsCreated       prometheus.Counter
	holdsExpired       prometheus.Counter
	capacityConflicts  prometheus.Counter
	bookingsCommitted  prometheus.Counter
	bookingsCancelled  prometheus.Counter
	slotsGenerated     prometheus.Counter
	generationDuration prometheus.Histogram
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	holdsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_holds_created_total",
		Help: "Tentative holds successfully acquired",
	})
	holdsExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_holds_expired_total",
		Help: "Holds flipped to expired by the sweep",
	})
	capacityConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_capacity_conflicts_total",
		Help: "Hold or booking attempts rejected for exhausted capacity",
	})
	bookingsCommitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_bookings_committed_total",
		Help: "Holds converted into confirmed appointments",
	})
	bookingsCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_bookings_cancelled_total",
		Help: "Confirmed appointments cancelled",
	})
	slotsGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_slots_generated_total",
		Help: "Slots written by the generator, including refreshes",
	})
	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduling_generation_duration_seconds",
		Help:    "Duration of slot generation runs",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		holdsCreated, holdsExpired, capacityConflicts,
		bookingsCommitted, bookingsCancelled,
		slotsGenerated, generationDuration,
	)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		holdsCreated:       holdsCreated,
		holdsExpired:       holdsExpired,
		capacityConflicts:  capacityConflicts,
		bookingsCommitted:  bookingsCommitted,
		bookingsCancelled:  bookingsCancelled,
		slotsGenerated:     slotsGenerated,
		generationDuration: generationDuration,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records latency and volume for a completed request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// HoldCreated increments the acquired-hold counter.
func (s *MetricsService) HoldCreated() { s.holdsCreated.Inc() }

// HoldsExpired adds the sweep's batch size to the expired-hold counter.
func (s *MetricsService) HoldsExpired(count int64) { s.holdsExpired.Add(float64(count)) }

// CapacityConflict increments the exhausted-capacity rejection counter.
func (s *MetricsService) CapacityConflict() { s.capacityConflicts.Inc() }

// BookingCommitted increments the confirmed-booking counter.
func (s *MetricsService) BookingCommitted() { s.bookingsCommitted.Inc() }

// BookingCancelled increments the cancellation counter.
func (s *MetricsService) BookingCancelled() { s.bookingsCancelled.Inc() }

// SlotsGenerated records a generation run's output size and duration.
func (s *MetricsService) SlotsGenerated(count int, duration time.Duration) {
	s.slotsGenerated.Add(float64(count))
	s.generationDuration.Observe(duration.Seconds())
}
