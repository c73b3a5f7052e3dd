// Command pcomnd is a minimal demo server wiring the socket (N), HTTP (H),
// and journal (J) layers together: it accepts HTTP/1.1 connections on a raw
// stream socket, serves a fixed status response off each one, tracks every
// accepted socket's TCP_INFO in a netdiag.Monitor, and journals the
// monitor's cache updates to disk so a restart can resume from the last
// checkpoint instead of an empty cache.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/ymarkovitch/pcomn-go/httpconn"
	"github.com/ymarkovitch/pcomn-go/httpmsg"
	"github.com/ymarkovitch/pcomn-go/journal"
	"github.com/ymarkovitch/pcomn-go/journal/storage/file"
	"github.com/ymarkovitch/pcomn-go/journal/storage/zstdio"
	"github.com/ymarkovitch/pcomn-go/metrics"
	"github.com/ymarkovitch/pcomn-go/netaddr"
	"github.com/ymarkovitch/pcomn-go/netdiag"
	"github.com/ymarkovitch/pcomn-go/netsock"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

var (
	listenPort   = flag.Int("port", 8080, "TCP port to listen on")
	promPort     = flag.String("prom", ":9090", "Prometheus metrics export address and port")
	journalDir   = flag.String("journal", "", "Directory for the journal log/checkpoint files; empty disables journaling")
	compressJrnl = flag.Bool("journal.zstd", false, "Compress journal checkpoints through zstd")
	pollInterval = flag.Duration("diag.interval", 5*time.Second, "netdiag.Monitor polling interval")
	backlog      = flag.Int("backlog", 128, "listen() backlog")
)

func main() {
	flag.Parse()
	flagx.ArgsFromEnv(flag.CommandLine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	promSrv := prometheusx.MustStartPrometheus(*promPort)
	defer promSrv.Shutdown(ctx)

	monitor := netdiag.NewMonitor(*pollInterval)
	if *journalDir != "" {
		attachJournal(monitor)
	}
	go monitor.Run(ctx)

	addr := netaddr.NewSockAddrV4(netaddr.FromOctets(0, 0, 0, 0), uint16(*listenPort))
	srv, err := netsock.NewServer(addr, true)
	rtx.Must(err, "could not create listening socket on port %d", *listenPort)
	rtx.Must(srv.Listen(*backlog), "could not listen on port %d", *listenPort)
	log.Printf("pcomnd: listening on %s", addr.String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Print("pcomnd: shutting down")
		cancel()
		srv.Close()
	}()

	for {
		conn, peer, err := srv.Accept(netsock.AllowEINTR)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("pcomnd: accept failed: %v", err)
			continue
		}
		if conn == nil {
			continue
		}
		log.Printf("pcomnd: accepted connection from %s", peer.String())
		if _, err := monitor.Track(conn); err != nil {
			log.Printf("pcomnd: could not track socket: %v", err)
		}
		go serve(conn)
	}
}

func attachJournal(monitor *netdiag.Monitor) {
	storage, err := file.Open(*journalDir+"/pcomnd", false)
	rtx.Must(err, "could not open journal storage in %s", *journalDir)

	var base journal.Storage = storage
	if *compressJrnl {
		base = zstdio.Wrap(storage)
	}

	port := journal.NewPort(base)
	rtx.Must(monitor.RestoreFrom(port, true), "could not restore netdiag monitor from journal")
	log.Printf("pcomnd: journal attached at generation %d", monitor.Generation())
}

// serve drives one accepted connection through a single HTTP/1.1
// request/response, then closes it; pcomnd does not attempt to keep
// connections alive across requests.
func serve(conn *netsock.Stream) {
	defer conn.Close()

	h := httpconn.NewServer(conn, "pcomnd/1.0")
	req, err := h.ReceiveRequest()
	if err != nil {
		log.Printf("pcomnd: ReceiveRequest: %v", err)
		return
	}

	resp, err := httpmsg.NewResponse(200)
	if err != nil {
		log.Printf("pcomnd: NewResponse: %v", err)
		return
	}
	body := []byte("pcomnd is running\n")
	resp.SetContentLength(int64(len(body)))
	resp.Header.Set("Content-Type", "text/plain")

	if err := h.Respond(resp); err != nil {
		log.Printf("pcomnd: Respond: %v", err)
		return
	}
	if req.Method != httpmsg.MethodHead {
		if _, err := h.Transmit(body); err != nil {
			log.Printf("pcomnd: Transmit: %v", err)
			return
		}
	}

	m := h.Metrics()
	metrics.ConnectionBytesHistogram.Observe(float64(m.BytesSent + m.BytesReceived))
	log.Printf("pcomnd: served %s %s (%d bytes sent)", req.Method, req.Target, m.BytesSent)
}
