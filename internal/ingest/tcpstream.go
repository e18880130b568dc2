package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"

	"roadindexer/internal/config"
	"roadindexer/internal/model"
	"roadindexer/internal/normalize"
)

// StartTCPStream accepts newline-delimited JSON sample envelopes over raw
// TCP, one envelope per line, for gateways that batch-forward device uploads.
func StartTCPStream(ctx context.Context, cfg *config.Manager, out chan<- model.Sample, logger *slog.Logger) {
	current := cfg.Get().Ingest.TCPStream
	if !current.Enabled {
		if logger != nil {
			logger.Info("tcp stream ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("tcp stream ingest enabled", "addr", current.Addr)
	}
	ln, err := net.Listen("tcp", current.Addr)
	if err != nil {
		if logger != nil {
			logger.Error("tcp stream listen error", "err", err)
		}
		return
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				if logger != nil {
					logger.Warn("tcp stream accept error", "err", err)
				}
				continue
			}
			go handleTCPStreamConn(ctx, conn, cfg, out, logger)
		}
	}()
}

func handleTCPStreamConn(ctx context.Context, conn net.Conn, cfg *config.Manager, out chan<- model.Sample, logger *slog.Logger) {
	defer conn.Close()
	clientIP := ""
	if host, _, err := net.SplitHostPort(conn.RemoteAddr().String()); err == nil {
		clientIP = host
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 8192), 1024*1024)
	for scanner.Scan() {
		line := bytesTrim(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var payload normalize.SamplePayload
		if err := json.Unmarshal(line, &payload); err != nil {
			if logger != nil {
				logger.Warn("tcp stream decode error", "err", err)
			}
			continue
		}
		sample, err := normalize.Normalize(payload, cfg.Get())
		if err != nil {
			if logger != nil {
				logger.Warn("tcp stream normalize error", "err", err)
			}
			continue
		}
		sample.ClientIP = clientIP
		sample.Source = "tcp_stream"
		SendNonBlocking(ctx, out, sample, logger)
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
	if err := scanner.Err(); err != nil && logger != nil {
		logger.Warn("tcp stream scanner error", "err", err)
	}
}
