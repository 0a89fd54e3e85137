package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/facelink/internal/version"
)

// StatsFunc returns a JSON-encodable view of capture statistics.
type StatsFunc func() any

// AttachAdminRoutes attaches pose debugging endpoints to mux under
// /debug/. tsweb restricts them to loopback and tailnet clients.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux, stats StatsFunc) {
	debug := tsweb.Debugger(mux)
	debug.KV("Version", version.String())
	debug.KVFunc("Subscribers", func() any { return s.Subscribers() })

	debug.HandleFunc("pose", "latest remapped pose (JSON)", s.handlePose)
	debug.HandleFunc("chart", "eye openness and jaw history", s.handleChart)
	debug.HandleSilentFunc("tail", s.handleTail)
	if stats != nil {
		debug.HandleFunc("stats", "capture statistics (JSON)", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, stats())
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logf("failed to encode response: %v", err)
	}
}

func (s *Store) handlePose(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no pose published yet"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleTail streams snapshots as Server-Sent Events.
func (s *Store) handleTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, c := s.Subscribe()
	defer s.Unsubscribe(id)

	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case snap, ok := <-c:
			if !ok {
				return
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				logf("tail: failed to encode snapshot %d: %v", snap.Sequence, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Store) handleChart(w http.ResponseWriter, r *http.Request) {
	var points []HistoryPoint
	if s.history != nil {
		points = s.history.Points()
	}

	x := make([]string, len(points))
	left := make([]opts.LineData, len(points))
	right := make([]opts.LineData, len(points))
	jaw := make([]opts.LineData, len(points))
	ape := make([]opts.LineData, len(points))
	for i, p := range points {
		x[i] = p.Time.Format("15:04:05.000")
		left[i] = opts.LineData{Value: p.LeftOpenness}
		right[i] = opts.LineData{Value: p.RightOpenness}
		jaw[i] = opts.LineData{Value: p.JawOpen}
		ape[i] = opts.LineData{Value: p.MouthApeShape}
	}

	subtitle := fmt.Sprintf("points=%d", len(points))
	if len(points) > 0 {
		subtitle += " last=" + points[len(points)-1].Time.Format(time.RFC3339)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Face Pose History", Theme: "dark", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Face Pose History", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x).
		AddSeries("left openness", left).
		AddSeries("right openness", right).
		AddSeries("jaw open", jaw).
		AddSeries("ape shape", ape)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
