package devices

import (
	"sync"
	"time"

	"roadindexer/internal/model"
)

// State is the latest known condition of one device.
type State struct {
	DeviceID      string         `json:"device_id"`
	LastPoint     model.GeoPoint `json:"last_point"`
	LastStatus    model.Status   `json:"last_status"`
	LastReason    string         `json:"last_reason,omitempty"`
	LastRoughness float64        `json:"last_roughness"`
	Accepted      int            `json:"accepted"`
	Ignored       int            `json:"ignored"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Store keeps per-device state with LRU-style eviction once the device
// population exceeds the limit.
type Store struct {
	mu       sync.RWMutex
	byDevice map[string]State
	limit    int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{byDevice: make(map[string]State), limit: limit}
}

func (s *Store) Observe(deviceID string, point model.GeoPoint, status model.Status, reason string, roughness float64) {
	if deviceID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.byDevice[deviceID]
	st.DeviceID = deviceID
	st.LastPoint = point
	st.LastStatus = status
	st.LastReason = reason
	st.LastRoughness = roughness
	if status == model.StatusOK {
		st.Accepted++
	} else {
		st.Ignored++
	}
	st.UpdatedAt = time.Now().UTC()
	s.byDevice[deviceID] = st
	if len(s.byDevice) > s.limit {
		s.evictOldest()
	}
}

func (s *Store) Get(deviceID string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byDevice[deviceID]
	return st, ok
}

func (s *Store) GetAll() map[string]State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]State, len(s.byDevice))
	for id, st := range s.byDevice {
		out[id] = st
	}
	return out
}

func (s *Store) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, st := range s.byDevice {
		if oldestID == "" || st.UpdatedAt.Before(oldest) {
			oldestID = id
			oldest = st.UpdatedAt
		}
	}
	if oldestID != "" {
		delete(s.byDevice, oldestID)
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDevice = make(map[string]State)
}
