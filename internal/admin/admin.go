// Package admin mounts the operator debug pages of a running pipeline
// under /debug/ on a tsweb debugger.
package admin

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/hillas.stream/internal/httputil"
	"github.com/banshee-data/hillas.stream/internal/ingest"
	"github.com/banshee-data/hillas.stream/internal/monitoring"
	"github.com/banshee-data/hillas.stream/internal/store"
	"github.com/banshee-data/hillas.stream/internal/version"
)

const (
	defaultDirectionLimit = 2000
	maxDirectionLimit     = 50000
)

// Snapshotter is implemented by the pipeline counters.
type Snapshotter interface {
	Snapshot() monitoring.Snapshot
}

// DirectionSource lists recent reconstructed directions, newest first.
type DirectionSource interface {
	Directions(ctx context.Context, limit int) ([]store.Direction, error)
}

// Server holds what the debug pages read. Nil fields hide their section.
type Server struct {
	Counters []Snapshotter
	Decoder  interface{ Stats() ingest.Stats }
	Results  DirectionSource
	// Dropped reports tuples the topology discarded on shutdown.
	Dropped func() uint64
}

// CountersResponse is the body of /debug/counters.
type CountersResponse struct {
	Counters []monitoring.Snapshot `json:"counters"`
	Ingest   *ingest.Stats         `json:"ingest,omitempty"`
	Dropped  uint64                `json:"dropped"`
}

// AttachAdminRoutes registers the debug pages on mux.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("counters", "Pipeline counters (JSON)", s.handleCounters)
	debug.HandleFunc("directions", "Reconstructed arrival directions", s.handleDirections)
	debug.HandleSilentFunc("build", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, version.String())
	})
}

func (s *Server) handleCounters(w http.ResponseWriter, r *http.Request) {
	resp := CountersResponse{Counters: make([]monitoring.Snapshot, 0, len(s.Counters))}
	for _, c := range s.Counters {
		resp.Counters = append(resp.Counters, c.Snapshot())
	}
	if s.Decoder != nil {
		st := s.Decoder.Stats()
		resp.Ingest = &st
	}
	if s.Dropped != nil {
		resp.Dropped = s.Dropped()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleDirections renders recent arrival directions as an alt/az scatter.
// Query params:
//   - limit (optional; default 2000) number of most recent results
func (s *Server) handleDirections(w http.ResponseWriter, r *http.Request) {
	if s.Results == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "no result store configured")
		return
	}
	limit, err := httputil.QueryInt(r, "limit", defaultDirectionLimit, maxDirectionLimit)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	dirs, err := s.Results.Directions(r.Context(), limit)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data := make([]opts.ScatterData, 0, len(dirs))
	for _, d := range dirs {
		data = append(data, opts.ScatterData{Value: []interface{}{d.AzDeg, d.AltDeg}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Shower Directions", Theme: "dark", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Reconstructed Directions", Subtitle: fmt.Sprintf("showers=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Az (deg)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 90, Name: "Alt (deg)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("showers", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
