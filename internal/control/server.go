// Package control exposes the sequencer's parameter surface over HTTP and
// pushes the playhead to websocket clients.
package control

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/satindergrewal/stepseq/internal/dsp"
	"github.com/satindergrewal/stepseq/internal/logger"
	"github.com/satindergrewal/stepseq/internal/sequencer"
)

// Loader queues sample files for decoding. audio.Loader satisfies it.
type Loader interface {
	Enqueue(track int, path string) bool
}

// Server serves the control API for one engine.
type Server struct {
	engine *sequencer.Engine
	loader Loader
	extras func() map[string]any

	// StepInterval is how often the step feed polls the playhead.
	StepInterval time.Duration
}

// NewServer creates a control server. loader may be nil, in which case load
// requests are refused.
func NewServer(engine *sequencer.Engine, loader Loader) *Server {
	return &Server{
		engine:       engine,
		loader:       loader,
		StepInterval: 10 * time.Millisecond,
	}
}

// SetExtras adds fields from outside the engine (listener counts, meters) to
// the status response.
func (s *Server) SetExtras(fn func() map[string]any) {
	s.extras = fn
}

// Routes registers the API on r.
func (s *Server) Routes(r *mux.Router) {
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/bpm", s.handleBPM).Methods(http.MethodPost)
	r.HandleFunc("/api/tracks/{track}", s.handleTrack).Methods(http.MethodGet)
	r.HandleFunc("/api/tracks/{track}/playing", s.handlePlaying).Methods(http.MethodPost)
	r.HandleFunc("/api/tracks/{track}/steps/{step}", s.handleStep).Methods(http.MethodPost)
	r.HandleFunc("/api/tracks/{track}/params", s.handleParams).Methods(http.MethodPost)
	r.HandleFunc("/api/tracks/{track}/filters/{mode}", s.handleFilter).Methods(http.MethodPost)
	r.HandleFunc("/api/tracks/{track}/bitcrusher", s.handleBitcrusher).Methods(http.MethodPost)
	r.HandleFunc("/api/tracks/{track}/load", s.handleLoad).Methods(http.MethodPost)
	r.HandleFunc("/ws/steps", s.handleStepFeed).Methods(http.MethodGet)
}

// Handler returns a router serving only the control API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.Routes(r)
	return r
}

type statusResponse struct {
	sequencer.Status
	Output map[string]any `json:"output,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: s.engine.Status()}
	if s.extras != nil {
		resp.Output = s.extras()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBPM(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BPM float64 `json:"bpm"`
	}
	if err := readJSON(r, &req); err != nil || !(req.BPM > 0) || math.IsInf(req.BPM, 0) {
		http.Error(w, "bpm must be a positive number", http.StatusBadRequest)
		return
	}
	s.engine.SetBPM(req.BPM)
	logger.Info("Tempo changed", logger.Float64("bpm", req.BPM))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "bpm": s.engine.BPM()})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	track, ok := trackVar(w, r)
	if !ok {
		return
	}
	s.writeTrack(w, track)
}

func (s *Server) handlePlaying(w http.ResponseWriter, r *http.Request) {
	track, ok := trackVar(w, r)
	if !ok {
		return
	}
	var req struct {
		Playing *bool `json:"playing"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Playing == nil {
		s.engine.TogglePlaying(track)
	} else {
		s.engine.SetPlaying(track, *req.Playing)
	}
	s.writeTrack(w, track)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	track, ok := trackVar(w, r)
	if !ok {
		return
	}
	step, err := strconv.Atoi(mux.Vars(r)["step"])
	if err != nil || step < 0 || step >= sequencer.NumSteps {
		http.Error(w, "unknown step", http.StatusNotFound)
		return
	}
	var req struct {
		On *bool `json:"on"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	var on bool
	if req.On == nil {
		on = s.engine.ToggleStep(track, step)
	} else {
		on = *req.On
		s.engine.SetStep(track, step, on)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "track": track, "step": step, "on": on})
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	track, ok := trackVar(w, r)
	if !ok {
		return
	}
	var req map[string]float64
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	params := make(map[sequencer.Param]float64, len(req))
	for name, v := range req {
		p, ok := sequencer.ParamByName(name)
		if !ok {
			http.Error(w, "unknown parameter "+strconv.Quote(name), http.StatusBadRequest)
			return
		}
		params[p] = v
	}
	for p, v := range params {
		s.engine.SetParam(track, p, v)
	}
	s.writeTrack(w, track)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	track, ok := trackVar(w, r)
	if !ok {
		return
	}
	mode, ok := dsp.FilterModeByName(mux.Vars(r)["mode"])
	if !ok {
		http.Error(w, "unknown filter mode", http.StatusBadRequest)
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	enabled := !s.engine.FilterEnabled(track, mode)
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	s.engine.SetFilterEnabled(track, mode, enabled)
	s.writeTrack(w, track)
}

func (s *Server) handleBitcrusher(w http.ResponseWriter, r *http.Request) {
	track, ok := trackVar(w, r)
	if !ok {
		return
	}
	var req struct {
		Enabled    *bool `json:"enabled"`
		BitDepth   *int  `json:"bit_depth"`
		Downsample *int  `json:"downsample"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.BitDepth != nil {
		s.engine.SetBitDepth(track, *req.BitDepth)
	}
	if req.Downsample != nil {
		s.engine.SetDownsample(track, *req.Downsample)
	}
	if req.Enabled != nil {
		s.engine.SetBitcrusherEnabled(track, *req.Enabled)
	}
	s.writeTrack(w, track)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	track, ok := trackVar(w, r)
	if !ok {
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if err := readJSON(r, &req); err != nil || req.Path == "" {
		http.Error(w, "path required", http.StatusBadRequest)
		return
	}
	if s.loader == nil || !s.loader.Enqueue(track, req.Path) {
		http.Error(w, "loader busy", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "track": track, "path": req.Path})
}

func (s *Server) writeTrack(w http.ResponseWriter, track int) {
	st, _ := s.engine.TrackStatus(track)
	writeJSON(w, http.StatusOK, st)
}

// trackVar parses the {track} route variable, answering 404 if it is not a
// valid track index.
func trackVar(w http.ResponseWriter, r *http.Request) (int, bool) {
	track, err := strconv.Atoi(mux.Vars(r)["track"])
	if err != nil || track < 0 || track >= sequencer.NumTracks {
		http.Error(w, "unknown track", http.StatusNotFound)
		return 0, false
	}
	return track, true
}

// readJSON decodes the request body into v. An empty body leaves v untouched.
func readJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Response encode failed", logger.ErrorField(err))
	}
}
