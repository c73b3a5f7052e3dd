// Package metrics defines Prometheus metric types and provides convenience
// accounting for the socket (N), HTTP (H), and journal (J) layers.
//
// When defining new operations or metrics, these are helpful values to track:
//   - things coming into or going out of the system: connections, requests,
//     operations, checkpoints.
//   - the success or error status of any of the above.
//   - the distribution of processing latency.
package metrics

import (
	"log"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollSyscallHistogram tracks the latency of the getsockopt(TCP_INFO)
	// syscall itself, not including cache bookkeeping.
	PollSyscallHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pcomn_diag_syscall_time_histogram",
			Help: "getsockopt(TCP_INFO) syscall latency distribution (seconds)",
			Buckets: []float64{
				0.001, 0.00125, 0.0016, 0.002, 0.0025, 0.0032, 0.004, 0.005, 0.0063, 0.0079,
				0.01, 0.0125, 0.016, 0.02, 0.025, 0.032, 0.04, 0.05, 0.063, 0.079,
				0.1, 0.125, 0.16, 0.2,
			},
		},
		[]string{"af"})

	// PollingIntervalHistogram tracks the actual interval between
	// netdiag.Monitor polling cycles.
	PollingIntervalHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pcomn_diag_polling_interval_histogram",
			Help:    "netdiag monitor polling interval distribution (seconds)",
			Buckets: prometheus.LinearBuckets(0, .001, 20),
		},
	)

	// TrackedSocketsHistogram tracks the number of sockets a netdiag.Monitor
	// is polling at the end of each cycle.
	TrackedSocketsHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "pcomn_diag_tracked_sockets_histogram",
			Help: "tracked socket count histogram",
			Buckets: []float64{
				1, 2, 3, 4, 5, 6, 8,
				10, 12.5, 16, 20, 25, 32, 40, 50, 63, 79,
				100, 125, 160, 200, 250, 320, 400, 500, 630, 790,
				1000, 1250, 1600, 2000, 2500, 3200, 4000, 5000, 6300, 7900,
			},
		})

	// ErrorCount measures the number of errors encountered, broken down by
	// the layer and kind that produced them.
	//
	// Example usage:
	//   metrics.ErrorCount.With(prometheus.Labels{"type": "snapshot"}).Inc()
	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcomn_error_total",
			Help: "The total number of errors encountered.",
		}, []string{"type"})

	// RequestCount counts HTTP requests an httpconn.Server has received,
	// broken down by method.
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcomn_http_request_total",
			Help: "Number of HTTP requests received.",
		}, []string{"method"})

	// AcceptsTotal counts connections accepted by a netsock.Server,
	// broken down by address family.
	AcceptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcomn_accept_total",
			Help: "Number of connections accepted by a netsock.Server.",
		}, []string{"af"})

	// ConnectionDurationHistogram tracks how long an accepted
	// netsock.Stream stayed open, from Accept to Close.
	ConnectionDurationHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "pcomn_connection_duration_histogram",
			Help: "accepted connection lifetime distribution (seconds)",
			Buckets: []float64{
				0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900,
			},
		})

	// ResponseCount counts HTTP responses an httpconn.Client has received,
	// broken down by status class ("2xx", "4xx", ...).
	ResponseCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcomn_http_response_total",
			Help: "Number of HTTP responses received.",
		}, []string{"class"})

	// ConnectionBytesHistogram tracks bytes transmitted per HTTP connection
	// over its lifetime.
	ConnectionBytesHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "pcomn_http_connection_bytes_histogram",
			Help: "bytes transmitted per HTTP connection",
			Buckets: []float64{
				0,
				1, 10, 100, 1000,
				10000, 100000, 1000000,
				10000000, math.Inf(+1),
			},
		})

	// JournalOperationCount counts operations applied through journal.Port,
	// broken down by opcode.
	JournalOperationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcomn_journal_operation_total",
			Help: "Number of journal operations applied.",
		}, []string{"opcode"})

	// JournalCheckpointCount counts checkpoints successfully committed.
	JournalCheckpointCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pcomn_journal_checkpoint_total",
			Help: "Number of journal checkpoints committed.",
		},
	)

	// JournalRecordBytesHistogram tracks the on-disk size of each journal
	// record written by journal/storage/file.
	JournalRecordBytesHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "pcomn_journal_record_bytes_histogram",
			Help: "journal record size histogram (bytes)",
			Buckets: []float64{
				16, 24, 32, 48, 64, 96, 128, 192, 256, 384, 512,
				768, 1024, 1536, 2048, 3072, 4096, 8192, 16384,
			},
		})
)

func init() {
	log.Println("Prometheus metrics in pcomn-go/metrics are registered.")
}
