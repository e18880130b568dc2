package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roadindexer/internal/config"
	"roadindexer/internal/devices"
	"roadindexer/internal/measurements"
	"roadindexer/internal/model"
)

type EngineControl interface {
	Reset()
	UpdateConfig(cfg *config.Config)
}

type Server struct {
	cfg          *config.Manager
	measurements *measurements.Store
	devices      *devices.Store
	engine       EngineControl
	logger       *slog.Logger
	version      string
}

type statusResponse struct {
	Status     string                  `json:"status"`
	Time       string                  `json:"time"`
	Version    string                  `json:"version"`
	ConfigPath string                  `json:"config_path"`
	Thresholds config.ThresholdsConfig `json:"thresholds"`
	Ingest     ingestStatus            `json:"ingest"`
	API        apiStatus               `json:"api"`
	Storage    storageStatus           `json:"storage"`
}

type ingestStatus struct {
	REST      bool `json:"rest"`
	TCPStream bool `json:"tcp_stream"`
	Kafka     bool `json:"kafka"`
}

type apiStatus struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

type storageStatus struct {
	Enabled bool   `json:"enabled"`
	Driver  string `json:"driver"`
}

func Start(ctx context.Context, cfg *config.Manager, measurementsStore *measurements.Store, devicesStore *devices.Store, engine EngineControl, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:          cfg,
		measurements: measurementsStore,
		devices:      devicesStore,
		engine:       engine,
		logger:       logger,
		version:      version,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/measurements", server.handleMeasurements)
	mux.HandleFunc("/devices", server.handleDevices)
	mux.HandleFunc("/devices/", server.handleDevices)
	mux.HandleFunc("/config/thresholds", server.handleThresholds)
	mux.HandleFunc("/admin/clear", server.handleClear)
	mux.HandleFunc("/admin/restart", server.handleRestart)

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	resp := statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		Thresholds: cfg.Thresholds,
		Ingest: ingestStatus{
			REST:      cfg.Ingest.REST.Enabled,
			TCPStream: cfg.Ingest.TCPStream.Enabled,
			Kafka:     cfg.Ingest.Kafka.Enabled,
		},
		API:     apiStatus{Enabled: cfg.API.Enabled, Addr: cfg.API.Addr},
		Storage: storageStatus{Enabled: cfg.Storage.Enabled, Driver: cfg.Storage.Driver},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	var list []model.Measurement
	switch {
	case r.URL.Query().Get("device") != "":
		list = s.measurements.Device(r.URL.Query().Get("device"), limit)
	case r.URL.Query().Get("since") != "":
		ts, err := time.Parse(time.RFC3339, r.URL.Query().Get("since"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		list = s.measurements.Since(ts)
	default:
		list = s.measurements.List(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"measurements": list,
		"count":        len(list),
	})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/devices")
	path = strings.TrimPrefix(path, "/")
	if path != "" {
		state, ok := s.devices.Get(path)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, state)
		return
	}
	all := s.devices.GetAll()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": all,
		"count":   len(all),
	})
}

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg := s.cfg.Get()
		writeJSON(w, http.StatusOK, map[string]any{
			"thresholds": cfg.Thresholds,
		})
		return
	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		current := s.cfg.Get()
		next := *current
		if err := json.Unmarshal(body, &next.Thresholds); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := s.cfg.Update(&next); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		if s.engine != nil {
			s.engine.UpdateConfig(&next)
		}
		if s.logger != nil {
			s.logger.Info("thresholds updated",
				"max_interval_sec", next.Thresholds.MaxIntervalSec,
				"max_distance_m", next.Thresholds.MaxDistanceM,
				"min_speed_kmh", next.Thresholds.MinSpeedKmh,
			)
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "thresholds": next.Thresholds})
		return
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	var req struct {
		Target string `json:"target"`
	}
	_ = json.Unmarshal(body, &req)
	target := strings.ToLower(strings.TrimSpace(req.Target))
	if target == "" {
		target = "all"
	}
	switch target {
	case "all":
		if s.measurements != nil {
			s.measurements.Clear()
		}
		if s.devices != nil {
			s.devices.Clear()
		}
	case "measurements":
		if s.measurements != nil {
			s.measurements.Clear()
		}
	case "devices":
		if s.devices != nil {
			s.devices.Clear()
		}
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.engine != nil {
		s.engine.Reset()
	}
	if s.measurements != nil {
		s.measurements.Clear()
	}
	if s.devices != nil {
		s.devices.Clear()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
