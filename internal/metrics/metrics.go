package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "assiscan"

// Pipeline - счётчики конвейера сборки записей.
// Все методы безопасны на nil-получателе: метрики опциональны.
type Pipeline struct {
	extractions        *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	records            *prometheus.CounterVec
	binds              *prometheus.CounterVec
	notifications      *prometheus.CounterVec
}

// New регистрирует метрики в registry. nil registry - метрики выключены.
func New(registry prometheus.Registerer) *Pipeline {
	if registry == nil {
		return nil
	}
	factory := promauto.With(registry)
	return &Pipeline{
		extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Document extractions by document kind and result",
		}, []string{"kind", "result"}),
		extractionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent in the document extraction service",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		}, []string{"kind"}),
		records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Record insert attempts by result",
		}, []string{"result"}),
		binds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_binds_total",
			Help:      "Attachment binds by slot and result",
		}, []string{"slot", "result"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification dispatches by status",
		}, []string{"status"}),
	}
}

// ObserveExtraction учитывает одно обращение к сервису распознавания.
func (p *Pipeline) ObserveExtraction(kind, result string, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.extractions.WithLabelValues(kind, result).Inc()
	p.extractionDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// IncRecord - результат insert_if_new: created, duplicate, error.
func (p *Pipeline) IncRecord(result string) {
	if p == nil {
		return
	}
	p.records.WithLabelValues(result).Inc()
}

// IncBind - результат привязки вложения.
func (p *Pipeline) IncBind(slot, result string) {
	if p == nil {
		return
	}
	p.binds.WithLabelValues(slot, result).Inc()
}

// IncNotification - итог отправки письма.
func (p *Pipeline) IncNotification(status string) {
	if p == nil {
		return
	}
	p.notifications.WithLabelValues(status).Inc()
}
