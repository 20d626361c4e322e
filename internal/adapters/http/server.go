// Package http serves relay status and metrics.
package http

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/bft-labs/tpmsrelay/internal/domain"
	"github.com/bft-labs/tpmsrelay/internal/ports"
)

// StatusProvider exposes the relay state served by the status endpoints.
type StatusProvider interface {
	State() string
	Entries() []domain.Entry
}

// EntryView is the JSON form of a queued entry.
type EntryView struct {
	SensorID        string    `json:"sensor_id"`
	Flags           string    `json:"flags"`
	PressureRaw     uint8     `json:"pressure_raw"`
	TemperatureRaw  uint8     `json:"temperature_raw"`
	MIC             uint8     `json:"mic"`
	NextSend        time.Time `json:"next_send"`
	RetransmitCount int       `json:"retransmit_count"`
	Frame           string    `json:"frame"`
}

func newEntryView(e domain.Entry) EntryView {
	wire := e.WireFrame()
	return EntryView{
		SensorID:        strconv.FormatUint(uint64(e.SensorID), 16),
		Flags:           hex.EncodeToString(e.Flags[:]),
		PressureRaw:     e.PressureRaw,
		TemperatureRaw:  e.TemperatureRaw,
		MIC:             e.MIC,
		NextSend:        e.NextSend,
		RetransmitCount: e.RetransmitCount,
		Frame:           hex.EncodeToString(wire[:]),
	}
}

// NewRouter builds the status routes. metrics may be nil.
func NewRouter(status StatusProvider, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"state": status.State()})
	}).Methods(http.MethodGet)

	r.HandleFunc("/queue", func(w http.ResponseWriter, _ *http.Request) {
		entries := status.Entries()
		views := make([]EntryView, len(entries))
		for i, e := range entries {
			views[i] = newEntryView(e)
		}
		writeJSON(w, http.StatusOK, views)
	}).Methods(http.MethodGet)

	r.HandleFunc("/queue/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseUint(mux.Vars(req)["id"], 16, 32)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sensor id must be hex"})
			return
		}
		for _, e := range status.Entries() {
			if e.SensorID == uint32(id) {
				writeJSON(w, http.StatusOK, newEntryView(e))
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "sensor not queued"})
	}).Methods(http.MethodGet)

	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	return r
}

// Wrap recovers handler panics and, when accessLog is non-nil, writes one
// Apache common log line per request to it.
func Wrap(h http.Handler, accessLog io.Writer) http.Handler {
	if accessLog != nil {
		h = handlers.LoggingHandler(accessLog, h)
	}
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(h)
}

// Server runs the status router on a TCP address.
type Server struct {
	srv    *http.Server
	logger ports.Logger

	mu   sync.Mutex
	addr string
}

// NewServer creates a server for addr, e.g. ":9464".
func NewServer(addr string, handler http.Handler, logger ports.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	s.logger.Info("status server listening", ports.String("addr", s.Addr()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server stopped", ports.Err(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started, e.g. "127.0.0.1:41234"
// for a ":0" listen address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
