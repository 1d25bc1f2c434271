package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realty_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "realty_fetch_cycle_duration_seconds",
			Help:    "Duration of each fetch cycle in seconds.",
			Buckets: []float64{10, 30, 60, 300, 900, 1800},
		},
	)
	GroupFetchDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "realty_group_fetch_duration_seconds",
			Help:       "Duration of each step of a group fetch unit.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step"},
	)
	ListingsFoundCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realty_listings_found_total",
			Help: "Total number of listings returned by upstream searches.",
		},
	)
	ListingsStoredCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realty_listings_stored_total",
			Help: "Total number of newly stored listings.",
		},
	)
	NotificationsSentCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realty_notifications_sent_total",
			Help: "Total number of delivered notifications.",
		},
	)
	AbandonedCyclesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realty_cycles_abandoned_total",
			Help: "Total number of fetch cycles abandoned before aggregation.",
		},
	)
)

// StartMetricsServer serves /metrics plus the read-only /status snapshot on
// the given port.
func StartMetricsServer(port int, statusHandler http.Handler) {

	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(GroupFetchDuration)
	prometheus.MustRegister(ListingsFoundCounter)
	prometheus.MustRegister(ListingsStoredCounter)
	prometheus.MustRegister(NotificationsSentCounter)
	prometheus.MustRegister(AbandonedCyclesCounter)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if statusHandler != nil {
		mux.Handle("/status", statusHandler)
	}

	go func() {
		log.Fatal(http.ListenAndServe(":"+strconv.Itoa(port), mux))
	}()
}
