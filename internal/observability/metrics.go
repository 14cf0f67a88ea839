package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aqi"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Data loading.
	DatasetRows         prometheus.Gauge
	DuplicatesDropped   prometheus.Counter
	ValuesImputed       prometheus.Counter
	DatasetLoadDuration prometheus.Histogram

	// Training.
	TrainingDuration prometheus.Histogram
	ModelR2          prometheus.Gauge
	ModelRMSE        prometheus.Gauge
	ModelReady       prometheus.Gauge

	// Prediction.
	Predictions        *prometheus.CounterVec // labels: category
	PredictionErrors   *prometheus.CounterVec // labels: kind={not_trained,invalid_date,invalid_location,other}
	PredictionDuration prometheus.Histogram
	SinkFailures       *prometheus.CounterVec // labels: sink={kafka,sqlite}

	// Advice.
	AdviceRequests    *prometheus.CounterVec // labels: outcome={answered,fallback,unconfigured}
	AdviceCache       *prometheus.CounterVec // labels: result={hit,miss}
	AdviceAPIDuration prometheus.Histogram

	// Alerts.
	AlertDeliveries *prometheus.CounterVec // labels: status={sent,failed}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows in the cleaned dataset after deduplication and year filtering.",
		}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_duplicates_dropped_total",
			Help:      "Exact-duplicate rows removed while loading.",
		}),
		ValuesImputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_values_imputed_total",
			Help:      "Missing numeric cells replaced by the column median.",
		}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of reading and cleaning the dataset.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Duration of fitting the regression model.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ModelR2: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_r2",
			Help:      "R squared of the trained model on the held-out split.",
		}),
		ModelRMSE: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_rmse",
			Help:      "Root mean squared error of the trained model on the held-out split.",
		}),
		ModelReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_ready",
			Help:      "1 once the model is trained, 0 before.",
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Successful predictions by AQI category.",
		}, []string{"category"}),
		PredictionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Failed predictions by kind.",
		}, []string{"kind"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Duration of a single prediction.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		SinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_sink_failures_total",
			Help:      "Predictions that could not be published or recorded, by sink.",
		}, []string{"sink"}),
		AdviceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advice_requests_total",
			Help:      "AI advice requests by outcome.",
		}, []string{"outcome"}),
		AdviceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advice_cache_total",
			Help:      "Advice cache lookups by result.",
		}, []string{"result"}),
		AdviceAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advice_api_duration_seconds",
			Help:      "Advice API request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		AlertDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_deliveries_total",
			Help:      "Alert emails by delivery status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.DatasetRows,
		m.DuplicatesDropped,
		m.ValuesImputed,
		m.DatasetLoadDuration,
		m.TrainingDuration,
		m.ModelR2,
		m.ModelRMSE,
		m.ModelReady,
		m.Predictions,
		m.PredictionErrors,
		m.PredictionDuration,
		m.SinkFailures,
		m.AdviceRequests,
		m.AdviceCache,
		m.AdviceAPIDuration,
		m.AlertDeliveries,
	}
}
