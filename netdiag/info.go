package netdiag

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"

	"github.com/ymarkovitch/pcomn-go/metrics"
)

// Info is a point-in-time snapshot of one TCP socket's kernel-tracked
// state, read directly via getsockopt(TCP_INFO). Field selection and
// naming mirror the subset of struct tcp_info exercised by this repo's own
// operations; it is not a full transcription of every kernel field.
type Info struct {
	Timestamp time.Time

	State       TCPState
	CAState     uint8
	Retransmits uint8

	RTT    time.Duration
	RTTVar time.Duration
	MinRTT time.Duration

	SndCwnd     uint32
	SndSsthresh uint32
	SndMSS      uint32
	RcvMSS      uint32

	Unacked uint32
	Sacked  uint32
	Lost    uint32
	Retrans uint32

	BytesAcked    uint64
	BytesReceived uint64
	BytesSent     uint64
	BytesRetrans  uint64

	TotalRetrans uint32
	DeliveryRate uint64
}

// fromLinux converts a raw unix.TCPInfo, as read by getsockopt, into the
// trimmed Info shape this package exposes.
func fromLinux(raw *unix.TCPInfo, ts time.Time) Info {
	return Info{
		Timestamp:     ts,
		State:         TCPState(raw.State),
		CAState:       raw.Ca_state,
		Retransmits:   raw.Retransmits,
		RTT:           time.Duration(raw.Rtt) * time.Microsecond,
		RTTVar:        time.Duration(raw.Rttvar) * time.Microsecond,
		MinRTT:        time.Duration(raw.Min_rtt) * time.Microsecond,
		SndCwnd:       raw.Snd_cwnd,
		SndSsthresh:   raw.Snd_ssthresh,
		SndMSS:        raw.Snd_mss,
		RcvMSS:        raw.Rcv_mss,
		Unacked:       raw.Unacked,
		Sacked:        raw.Sacked,
		Lost:          raw.Lost,
		Retrans:       raw.Retrans,
		BytesAcked:    raw.Bytes_acked,
		BytesReceived: raw.Bytes_received,
		BytesSent:     raw.Bytes_sent,
		BytesRetrans:  raw.Bytes_retrans,
		TotalRetrans:  raw.Total_retrans,
		DeliveryRate:  raw.Delivery_rate,
	}
}

// addressFamilyLabel reports "inet"/"inet6"/"unknown" for fd's socket
// domain, as a Prometheus label value.
func addressFamilyLabel(fd int) string {
	domain, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_DOMAIN)
	if err != nil {
		return "unknown"
	}
	switch domain {
	case unix.AF_INET:
		return "inet"
	case unix.AF_INET6:
		return "inet6"
	default:
		return "unknown"
	}
}

// snapshotFD reads TCP_INFO for an open socket descriptor.
func snapshotFD(fd int) (Info, error) {
	af := addressFamilyLabel(fd)
	start := time.Now()
	raw, err := unix.GetsockoptTCPInfo(fd, unix.IPPROTO_TCP, unix.TCP_INFO)
	metrics.PollSyscallHistogram.With(prometheus.Labels{"af": af}).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ErrorCount.With(prometheus.Labels{"type": "netdiag_snapshot"}).Inc()
		return Info{}, &SnapshotError{Op: "getsockopt(TCP_INFO)", Err: err}
	}
	return fromLinux(raw, time.Now()), nil
}
