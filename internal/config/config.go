package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel     string             `json:"log_level" yaml:"log_level"`
	Ingest       IngestConfig       `json:"ingest" yaml:"ingest"`
	Thresholds   ThresholdsConfig   `json:"thresholds" yaml:"thresholds"`
	API          APIConfig          `json:"api" yaml:"api"`
	Storage      StorageConfig      `json:"storage" yaml:"storage"`
	Measurements MeasurementsConfig `json:"measurements" yaml:"measurements"`
	Devices      DevicesConfig      `json:"devices" yaml:"devices"`
}

type IngestConfig struct {
	ChannelBuffer int             `json:"channel_buffer" yaml:"channel_buffer"`
	REST          RESTConfig      `json:"rest" yaml:"rest"`
	TCPStream     TCPStreamConfig `json:"tcp_stream" yaml:"tcp_stream"`
	Kafka         KafkaConfig     `json:"kafka" yaml:"kafka"`
	Decoder       DecoderConfig   `json:"decoder" yaml:"decoder"`
}

type RESTConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type TCPStreamConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

type DecoderConfig struct {
	Timezone        string `json:"timezone" yaml:"timezone"`
	DefaultDeviceID string `json:"default_device_id" yaml:"default_device_id"`
	MaxBatchSamples int    `json:"max_batch_samples" yaml:"max_batch_samples"`
}

// ThresholdsConfig is the runtime-mutable gating and filtering record. The
// engine reads the current snapshot on every sample, so an administrator can
// change these between requests via the API or a config file edit.
type ThresholdsConfig struct {
	MaxIntervalSec float64       `json:"max_interval_sec" yaml:"max_interval_sec"`
	MaxDistanceM   float64       `json:"max_distance_m" yaml:"max_distance_m"`
	MinSpeedKmh    float64       `json:"min_speed_kmh" yaml:"min_speed_kmh"`
	FreqMin        float64       `json:"freq_min" yaml:"freq_min"`
	FreqMax        float64       `json:"freq_max" yaml:"freq_max"`
	DedupeWindow   time.Duration `json:"dedupe_window" yaml:"dedupe_window"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type MeasurementsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type DevicesConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Ingest: IngestConfig{
			ChannelBuffer: 10000,
			REST:          RESTConfig{Enabled: true, Addr: ":8080"},
			TCPStream:     TCPStreamConfig{Enabled: false, Addr: ":9000"},
			Kafka:         KafkaConfig{Enabled: false},
			Decoder:       DecoderConfig{Timezone: "UTC", DefaultDeviceID: "unknown", MaxBatchSamples: 4096},
		},
		Thresholds: ThresholdsConfig{
			MaxIntervalSec: 300,
			MaxDistanceM:   1000,
			MinSpeedKmh:    0,
			FreqMin:        0.5,
			FreqMax:        50.0,
			DedupeWindow:   0,
		},
		API:          APIConfig{Enabled: true, Addr: ":8081"},
		Storage:      StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:roadindexer.db?_pragma=busy_timeout(5000)"},
		Measurements: MeasurementsConfig{StoreLimit: 5000},
		Devices:      DevicesConfig{StoreLimit: 5000},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.Ingest.ChannelBuffer <= 0 {
		cfg.Ingest.ChannelBuffer = 10000
	}
	if cfg.Ingest.Decoder.Timezone == "" {
		cfg.Ingest.Decoder.Timezone = "UTC"
	}
	if cfg.Ingest.Decoder.DefaultDeviceID == "" {
		cfg.Ingest.Decoder.DefaultDeviceID = "unknown"
	}
	if cfg.Ingest.Decoder.MaxBatchSamples <= 0 {
		cfg.Ingest.Decoder.MaxBatchSamples = 4096
	}
	if cfg.Thresholds.FreqMin <= 0 {
		cfg.Thresholds.FreqMin = 0.5
	}
	if cfg.Thresholds.FreqMax <= 0 {
		cfg.Thresholds.FreqMax = 50.0
	}
	if cfg.Measurements.StoreLimit <= 0 {
		cfg.Measurements.StoreLimit = 5000
	}
	if cfg.Devices.StoreLimit <= 0 {
		cfg.Devices.StoreLimit = 5000
	}
}

func Validate(cfg *Config) error {
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Ingest.REST.Enabled && cfg.Ingest.REST.Addr == "" {
		return errors.New("ingest.rest.addr required when ingest.rest.enabled is true")
	}
	if cfg.Ingest.TCPStream.Enabled && cfg.Ingest.TCPStream.Addr == "" {
		return errors.New("ingest.tcp_stream.addr required when ingest.tcp_stream.enabled is true")
	}
	if cfg.Ingest.Kafka.Enabled {
		if len(cfg.Ingest.Kafka.Brokers) == 0 || cfg.Ingest.Kafka.Topic == "" || cfg.Ingest.Kafka.GroupID == "" {
			return errors.New("ingest.kafka requires brokers, topic, group_id")
		}
	}
	if cfg.Thresholds.MaxIntervalSec <= 0 {
		return errors.New("thresholds.max_interval_sec must be > 0")
	}
	if cfg.Thresholds.MaxDistanceM <= 0 {
		return errors.New("thresholds.max_distance_m must be > 0")
	}
	if cfg.Thresholds.MinSpeedKmh < 0 {
		return errors.New("thresholds.min_speed_kmh must be >= 0")
	}
	if cfg.Thresholds.FreqMin >= cfg.Thresholds.FreqMax {
		return fmt.Errorf("thresholds.freq_min %.2f must be below freq_max %.2f", cfg.Thresholds.FreqMin, cfg.Thresholds.FreqMax)
	}
	return nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	info, err := os.Stat(path)
	if err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

// NewStaticManager wraps a config with no backing file. Update replaces the
// snapshot in memory only.
func NewStaticManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	applyDefaults(cfg)
	m := &Manager{}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) Update(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	if m.path != "" {
		if err := Save(m.path, cfg); err != nil {
			return err
		}
	}
	m.cfg.Store(cfg)
	if m.path != "" {
		if info, err := os.Stat(m.path); err == nil {
			m.modTime = info.ModTime()
		}
	}
	return nil
}

func (m *Manager) NeedsReload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
