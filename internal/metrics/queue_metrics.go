package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueueMetrics содержит метрики очереди breaks и её рассылки.
type QueueMetrics struct {
	// Счётчики мутаций по операциям: append, remove, move_up, move_down, rename.
	mutations *prometheus.CounterVec
	// Отвергнутые мутации по причинам: duplicate, not_found, boundary, persistence.
	mutationErrors *prometheus.CounterVec

	// Расхождения между памятью и хранилищем (delete/rename пережили ошибку БД).
	persistenceDiscrepancies prometheus.Counter

	// Публикации снапшотов и обрывы SSE-подключений.
	snapshotsPublished prometheus.Counter
	streamsClosed      prometheus.Counter

	// Текущее состояние.
	queueDepth prometheus.Gauge

	// Время критической секции мутации.
	mutationDuration prometheus.Histogram
}

// NewQueueMetrics создаёт и регистрирует метрики в DefaultRegisterer.
func NewQueueMetrics() *QueueMetrics {
	return newQueueMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newQueueMetricsWithRegisterer(registerer prometheus.Registerer) *QueueMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &QueueMetrics{
		mutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "breaks_queue_mutations_total",
			Help: "Total number of applied queue mutations",
		}, []string{"op"}),
		mutationErrors: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "breaks_queue_mutation_errors_total",
			Help: "Total number of rejected queue mutations",
		}, []string{"reason"}),
		persistenceDiscrepancies: registerCounter(registerer, prometheus.CounterOpts{
			Name: "breaks_persistence_discrepancies_total",
			Help: "Mutations kept in memory after a failed persistence write",
		}),
		snapshotsPublished: registerCounter(registerer, prometheus.CounterOpts{
			Name: "breaks_snapshots_published_total",
			Help: "Total number of queue snapshots handed to the broadcaster",
		}),
		streamsClosed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "breaks_event_streams_closed_total",
			Help: "Total number of terminated event stream connections",
		}),
		queueDepth: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "breaks_queue_depth",
			Help: "Number of orders currently waiting in the breaks queue",
		}),
		mutationDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "breaks_queue_mutation_duration_seconds",
			Help:    "Duration of queue mutation critical sections in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
	}
}

// RegisterSubscriberGauge публикует количество активных подписчиков через
// колбэк (broadcaster сам знает своё состояние).
func RegisterSubscriberGauge(fn func() float64) {
	registerGaugeFunc(prometheus.DefaultRegisterer, prometheus.GaugeOpts{
		Name: "breaks_event_stream_subscribers",
		Help: "Number of currently connected snapshot subscribers",
	}, fn)
}

// RecordMutation увеличивает счётчик успешной мутации и обновляет глубину очереди.
func (m *QueueMetrics) RecordMutation(op string, depth int) {
	m.mutations.WithLabelValues(op).Inc()
	m.queueDepth.Set(float64(depth))
}

// RecordMutationError увеличивает счётчик отвергнутой мутации.
func (m *QueueMetrics) RecordMutationError(reason string) {
	m.mutationErrors.WithLabelValues(reason).Inc()
}

// RecordPersistenceDiscrepancy фиксирует расхождение памяти и хранилища.
func (m *QueueMetrics) RecordPersistenceDiscrepancy() {
	m.persistenceDiscrepancies.Inc()
}

// RecordSnapshotPublished увеличивает счётчик публикаций.
func (m *QueueMetrics) RecordSnapshotPublished() {
	m.snapshotsPublished.Inc()
}

// RecordStreamClosed увеличивает счётчик оборванных SSE-подключений.
func (m *QueueMetrics) RecordStreamClosed() {
	m.streamsClosed.Inc()
}

// RecordMutationDuration записывает длительность критической секции.
func (m *QueueMetrics) RecordMutationDuration(d time.Duration) {
	m.mutationDuration.Observe(d.Seconds())
}

// SetQueueDepth выставляет глубину очереди (используется при старте).
func (m *QueueMetrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerGaugeFunc(registerer prometheus.Registerer, opts prometheus.GaugeOpts, fn func() float64) {
	collector := prometheus.NewGaugeFunc(opts, fn)
	if err := registerer.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		panic(fmt.Sprintf("register gauge func %q: %v", opts.Name, err))
	}
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
