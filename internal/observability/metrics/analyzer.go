package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
)

type analyzerMetrics struct {
	analysesTotal      *prometheus.CounterVec
	analysisDuration   *prometheus.HistogramVec
	skuFolders         *prometheus.HistogramVec
	imagesTotal        *prometheus.CounterVec
	missingMainTotal   *prometheus.CounterVec
	spreadsheetMissing *prometheus.CounterVec
}

func newAnalyzerMetrics(registry *prometheus.Registry) *analyzerMetrics {
	m := &analyzerMetrics{
		analysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analyzer",
				Name:      "analyses_total",
				Help:      "Total archive analyses by classification provenance.",
			},
			[]string{"service", "provenance"},
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analyzer",
				Name:      "duration_seconds",
				Help:      "Archive analysis duration in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"service", "provenance"},
		),
		skuFolders: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analyzer",
				Name:      "sku_folders",
				Help:      "Distribution of SKU folders per analyzed archive.",
				Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
			},
			[]string{"service"},
		),
		imagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analyzer",
				Name:      "images_total",
				Help:      "Total image files seen in analyzed archives.",
			},
			[]string{"service"},
		),
		missingMainTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analyzer",
				Name:      "missing_main_image_total",
				Help:      "Total SKU folders without a main image.",
			},
			[]string{"service"},
		),
		spreadsheetMissing: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analyzer",
				Name:      "spreadsheet_missing_total",
				Help:      "Total analyzed archives without a spreadsheet.",
			},
			[]string{"service"},
		),
	}
	registry.MustRegister(
		m.analysesTotal,
		m.analysisDuration,
		m.skuFolders,
		m.imagesTotal,
		m.missingMainTotal,
		m.spreadsheetMissing,
	)
	return m
}

func (m *analyzerMetrics) observe(service string, provenance domain.Provenance, result domain.ClassificationResult, seconds float64) {
	label := string(provenance)
	if label == "" {
		label = "unknown"
	}
	m.analysesTotal.WithLabelValues(service, label).Inc()
	if seconds >= 0 {
		m.analysisDuration.WithLabelValues(service, label).Observe(seconds)
	}
	m.skuFolders.WithLabelValues(service).Observe(float64(len(result.SkuFolders)))
	if result.ImageCount > 0 {
		m.imagesTotal.WithLabelValues(service).Add(float64(result.ImageCount))
	}
	if n := len(result.SkusMissingMainImage); n > 0 {
		m.missingMainTotal.WithLabelValues(service).Add(float64(n))
	}
	if !result.HasSpreadsheet {
		m.spreadsheetMissing.WithLabelValues(service).Inc()
	}
}
