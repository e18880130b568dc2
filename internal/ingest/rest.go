package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"roadindexer/internal/config"
	"roadindexer/internal/model"
	"roadindexer/internal/normalize"
)

// RESTServer accepts sample envelopes over HTTP and processes them
// synchronously, so the device gets the accept/ignore verdict in the
// response body.
type RESTServer struct {
	cfg    *config.Manager
	proc   Processor
	logger *slog.Logger
}

func StartREST(ctx context.Context, cfg *config.Manager, proc Processor, logger *slog.Logger) *http.Server {
	current := cfg.Get().Ingest.REST
	if !current.Enabled {
		if logger != nil {
			logger.Info("rest ingest disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("rest ingest enabled", "addr", current.Addr)
	}
	server := &RESTServer{cfg: cfg, proc: proc, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/samples", server.handleSamples)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
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
				logger.Error("rest ingest server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *RESTServer) handleSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 2<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	trim := bytesTrim(body)
	if len(trim) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	clientIP := remoteIP(r)

	if trim[0] == '[' {
		var list []normalize.SamplePayload
		if err := json.Unmarshal(trim, &list); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		results := make([]model.Outcome, 0, len(list))
		failed := 0
		for _, payload := range list {
			out, err := s.processPayload(r.Context(), payload, clientIP)
			if err != nil {
				failed++
				continue
			}
			results = append(results, out)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results": results,
			"failed":  failed,
		})
		return
	}

	var payload normalize.SamplePayload
	if err := json.Unmarshal(trim, &payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	out, err := s.processPayload(r.Context(), payload, clientIP)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *RESTServer) processPayload(ctx context.Context, payload normalize.SamplePayload, clientIP string) (model.Outcome, error) {
	sample, err := normalize.Normalize(payload, s.cfg.Get())
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("rest normalize error", "err", err)
		}
		return model.Outcome{}, err
	}
	sample.ClientIP = clientIP
	sample.Source = "rest"
	return s.proc.ProcessSample(ctx, sample), nil
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func bytesTrim(b []byte) []byte {
	start := 0
	for start < len(b) && (b[start] == ' ' || b[start] == '\n' || b[start] == '\r' || b[start] == '\t') {
		start++
	}
	end := len(b)
	for end > start && (b[end-1] == ' ' || b[end-1] == '\n' || b[end-1] == '\r' || b[end-1] == '\t') {
		end--
	}
	return b[start:end]
}
