package measurements

import (
	"sync"
	"time"

	"roadindexer/internal/model"
)

// Store is a bounded in-memory ring of the most recent accepted
// measurements, serving the query API without a storage round trip.
type Store struct {
	mu    sync.RWMutex
	buf   []model.Measurement
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{limit: limit}
}

func (s *Store) Add(m model.Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, m)
		return
	}
	copy(s.buf, s.buf[1:])
	s.buf[len(s.buf)-1] = m
}

func (s *Store) List(limit int) []model.Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]model.Measurement, 0, limit)
	start := len(s.buf) - limit
	if start < 0 {
		start = 0
	}
	for i := start; i < len(s.buf); i++ {
		out = append(out, s.buf[i])
	}
	return out
}

func (s *Store) Since(ts time.Time) []model.Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Measurement, 0)
	for _, m := range s.buf {
		if !m.Timestamp.Before(ts) {
			out = append(out, m)
		}
	}
	return out
}

// Device returns the most recent measurements for one device, newest last.
func (s *Store) Device(deviceID string, limit int) []model.Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Measurement, 0)
	for _, m := range s.buf {
		if m.DeviceID == deviceID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
