package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/hillas.stream/internal/admin"
	"github.com/banshee-data/hillas.stream/internal/config"
	"github.com/banshee-data/hillas.stream/internal/fsutil"
	"github.com/banshee-data/hillas.stream/internal/ingest"
	"github.com/banshee-data/hillas.stream/internal/monitoring"
	"github.com/banshee-data/hillas.stream/internal/pipeline"
	"github.com/banshee-data/hillas.stream/internal/store"
	"github.com/banshee-data/hillas.stream/internal/timeutil"
	"github.com/banshee-data/hillas.stream/internal/version"
	"github.com/banshee-data/hillas.stream/internal/wire"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "Path to the pipeline configuration JSON")
	sourceKind  = flag.String("source", "jsonl", "Event source: jsonl, pcap or udp")
	input       = flag.String("input", "-", "Input file for jsonl and pcap sources (- for stdin)")
	udpAddr     = flag.String("udp-addr", ":2110", "UDP listen address for the udp source")
	udpPort     = flag.Int("udp-port", 2110, "UDP destination port kept when replaying a pcap (0 keeps all)")
	rcvBuf      = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes (default 4MB)")
	listen      = flag.String("listen", "", "Admin HTTP listen address (overrides admin_listen; empty string in config disables)")
	logInterval = flag.Duration("log-interval", 30*time.Second, "Counter summary interval (0 disables)")
	verbose     = flag.Bool("v", false, "Enable diagnostic logging")
	trace       = flag.Bool("trace", false, "Enable per-event trace logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	conf, err := config.LoadConfig(fsutil.OSFileSystem{}, *configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *listen != "" {
		conf.AdminListen = listen
	}
	configureLogging(*verbose, *trace)
	log.Printf("starting %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("pipeline failed: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

func configureLogging(verbose, trace bool) {
	var diag, tr io.Writer
	if verbose {
		diag = os.Stderr
	}
	if trace {
		tr = os.Stderr
	}
	pipeline.SetLogWriters(os.Stdout, diag, tr)
	ingest.SetLogWriters(os.Stdout, diag, tr)
}

func run(ctx context.Context, conf *config.PipelineConfig) error {
	dec, err := ingest.NewDecoder()
	if err != nil {
		return err
	}
	src, closeSrc, err := openSource(*sourceKind, *input, dec)
	if err != nil {
		return err
	}
	defer closeSrc()

	codec, err := wire.CodecByName(conf.GetBoundaryCodec())
	if err != nil {
		return err
	}

	results, err := store.Open(conf.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer results.Close()

	clock := timeutil.RealClock{}
	throughput := monitoring.NewPerfCounter("throughput", conf.GetPerfSampleSize(), clock)
	hillasErrors := monitoring.NewErrorCounter("hillas-errors")
	recoErrors := monitoring.NewErrorCounter("reco-errors")

	topo := &pipeline.Topology{
		Config:       conf,
		FS:           fsutil.OSFileSystem{},
		Codec:        codec,
		Sink:         results,
		Throughput:   throughput,
		HillasErrors: hillasErrors,
		RecoErrors:   recoErrors,
	}
	counters := []admin.Snapshotter{throughput, hillasErrors, recoErrors}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	if addr := conf.GetAdminListen(); addr != "" {
		mux := http.NewServeMux()
		if err := results.AttachAdminRoutes(mux); err != nil {
			return err
		}
		(&admin.Server{
			Counters: counters,
			Decoder:  dec,
			Results:  results,
			Dropped:  topo.Dropped,
		}).AttachAdminRoutes(mux)

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveAdmin(runCtx, addr, mux)
		}()
	}

	if *logInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logCounters(runCtx, clock.NewTicker(*logInterval), counters, dec)
		}()
	}

	err = topo.Run(ctx, src)
	cancel()
	wg.Wait()
	logSummary(counters, dec)
	return err
}

// openSource builds the event source named by kind. The returned close
// function is always safe to call.
func openSource(kind, path string, dec *ingest.Decoder) (pipeline.Source, func(), error) {
	switch kind {
	case "jsonl", "pcap":
		var r io.ReadCloser = os.Stdin
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return nil, func() {}, fmt.Errorf("open input: %w", err)
			}
			r = f
		}
		if kind == "jsonl" {
			return ingest.NewJSONLSource(r, dec), func() { r.Close() }, nil
		}
		src, err := ingest.NewPcapSource(r, *udpPort, dec)
		if err != nil {
			r.Close()
			return nil, func() {}, err
		}
		return src, func() { r.Close() }, nil
	case "udp":
		src, err := ingest.ListenUDP(*udpAddr, *rcvBuf, dec)
		if err != nil {
			return nil, func() {}, err
		}
		log.Printf("listening for events on %s", src.Addr())
		return src, func() { src.Close() }, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown source %q (want jsonl, pcap or udp)", kind)
	}
}

func serveAdmin(ctx context.Context, addr string, mux *http.ServeMux) {
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("admin server failed: %v", err)
		}
	}()
	log.Printf("admin pages on http://%s/debug/", addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("admin server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("admin server force close error: %v", err)
		}
	}
}

func logCounters(ctx context.Context, ticker timeutil.Ticker, counters []admin.Snapshotter, dec *ingest.Decoder) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			logSummary(counters, dec)
		}
	}
}

func logSummary(counters []admin.Snapshotter, dec *ingest.Decoder) {
	st := dec.Stats()
	line := fmt.Sprintf("ingest accepted=%d rejected=%d", st.Accepted, st.Rejected)
	for _, c := range counters {
		s := c.Snapshot()
		line += fmt.Sprintf(" %s=%d", s.Name, s.Total)
	}
	log.Print(line)
}
