// Package telemetry provides Prometheus metrics, correlation-id aware logging
// helpers, and OpenTelemetry tracing setup.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesReceived    prometheus.Counter
	MessagesGrabbed     *prometheus.CounterVec // by item kind
	DuplicatesCollapsed prometheus.Counter
	RebuildsStarted     prometheus.Counter
	RebuildsFailed      prometheus.Counter
	SubscriberBackfills prometheus.Counter
	ArchiveInserts      prometheus.Counter
	ArchiveDropped      prometheus.Counter

	// Histograms (seconds)
	TickDuration prometheus.Observer

	// Gauges
	QueueDepthGauge    prometheus.Gauge
	VisibleItemsGauge  prometheus.Gauge
	HistoryItemsGauge  prometheus.Gauge
	ChatConnectedGauge prometheus.Gauge // 1=connected,0=not
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "grab_messages_received_total", Help: "Chat lines seen by the classifier"})
		MessagesGrabbed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "grab_items_total", Help: "Items produced, by kind"}, []string{"kind"})
		DuplicatesCollapsed = promauto.NewCounter(prometheus.CounterOpts{Name: "grab_duplicates_collapsed_total", Help: "Questions merged into an existing item"})
		RebuildsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "grab_refilter_rebuilds_started_total", Help: "Asynchronous visible-list rebuilds started"})
		RebuildsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "grab_refilter_rebuilds_failed_total", Help: "Rebuilds that produced no swap"})
		SubscriberBackfills = promauto.NewCounter(prometheus.CounterOpts{Name: "grab_subscriber_backfills_total", Help: "Items retroactively marked as subscriber-authored"})
		ArchiveInserts = promauto.NewCounter(prometheus.CounterOpts{Name: "grab_archive_inserts_total", Help: "Grabbed questions written to the archive"})
		ArchiveDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "grab_archive_dropped_total", Help: "Grabbed questions dropped because the archive buffer was full"})
		TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "grab_tick_duration_seconds", Help: "Dispatch tick duration seconds", Buckets: prometheus.DefBuckets})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "grab_queue_depth", Help: "Events waiting for the dispatch loop"})
		VisibleItemsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "grab_visible_items", Help: "Items in the visible sequence"})
		HistoryItemsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "grab_history_items", Help: "Items in full history"})
		ChatConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "grab_chat_connected", Help: "Chat connection up=1 down=0"})
	})
}

// The Count*/Add* helpers below are no-ops before Init so library code and
// tests can run without registering collectors.

// CountItem records a produced item by kind name.
func CountItem(kind string) {
	if MessagesGrabbed != nil {
		MessagesGrabbed.WithLabelValues(kind).Inc()
	}
}

// CountMessage records one chat line seen by the classifier.
func CountMessage() {
	if MessagesReceived != nil {
		MessagesReceived.Inc()
	}
}

// CountDuplicate records a question collapsed into an existing item.
func CountDuplicate() {
	if DuplicatesCollapsed != nil {
		DuplicatesCollapsed.Inc()
	}
}

// CountRebuild records a started rebuild, or a failed one.
func CountRebuild(failed bool) {
	if failed {
		if RebuildsFailed != nil {
			RebuildsFailed.Inc()
		}
		return
	}
	if RebuildsStarted != nil {
		RebuildsStarted.Inc()
	}
}

// AddSubscriberBackfills records n items retroactively marked.
func AddSubscriberBackfills(n int) {
	if SubscriberBackfills != nil {
		SubscriberBackfills.Add(float64(n))
	}
}

// CountArchiveDrop records a grabbed question lost to a full archive buffer.
func CountArchiveDrop() {
	if ArchiveDropped != nil {
		ArchiveDropped.Inc()
	}
}

// CountArchiveInsert records a grabbed question written to the archive.
func CountArchiveInsert() {
	if ArchiveInserts != nil {
		ArchiveInserts.Inc()
	}
}

// SetQueueDepth records the current event queue length.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// SetListSizes records visible and history item counts.
func SetListSizes(visible, history int) {
	if VisibleItemsGauge != nil {
		VisibleItemsGauge.Set(float64(visible))
	}
	if HistoryItemsGauge != nil {
		HistoryItemsGauge.Set(float64(history))
	}
}

// SetChatConnected flips the connection gauge.
func SetChatConnected(up bool) {
	if ChatConnectedGauge != nil {
		if up {
			ChatConnectedGauge.Set(1)
		} else {
			ChatConnectedGauge.Set(0)
		}
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
