package measurements

import (
	"fmt"
	"testing"
	"time"

	"roadindexer/internal/model"
)

func fill(s *Store, n int, base time.Time) {
	for i := 0; i < n; i++ {
		s.Add(model.Measurement{
			DeviceID:  fmt.Sprintf("bike-%d", i%2),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Roughness: float64(i),
		})
	}
}

func TestRingEviction(t *testing.T) {
	s := NewStore(3)
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	fill(s, 5, base)

	got := s.List(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// oldest two evicted, newest last
	if got[0].Roughness != 2 || got[2].Roughness != 4 {
		t.Fatalf("unexpected ring contents: %+v", got)
	}
}

func TestListLimit(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	fill(s, 5, base)

	got := s.List(2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Roughness != 3 || got[1].Roughness != 4 {
		t.Fatalf("limit should keep the newest entries: %+v", got)
	}
}

func TestSince(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	fill(s, 5, base)

	got := s.Since(base.Add(3 * time.Second))
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, m := range got {
		if m.Timestamp.Before(base.Add(3 * time.Second)) {
			t.Fatalf("entry older than cutoff: %v", m.Timestamp)
		}
	}
}

func TestDeviceFilter(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	fill(s, 6, base)

	got := s.Device("bike-1", 0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, m := range got {
		if m.DeviceID != "bike-1" {
			t.Fatalf("wrong device in result: %q", m.DeviceID)
		}
	}

	limited := s.Device("bike-1", 1)
	if len(limited) != 1 || limited[0].Roughness != 5 {
		t.Fatalf("device limit should keep the newest entry: %+v", limited)
	}
}

func TestClear(t *testing.T) {
	s := NewStore(10)
	fill(s, 3, time.Now().UTC())
	s.Clear()
	if got := s.List(0); len(got) != 0 {
		t.Fatalf("len = %d after clear, want 0", len(got))
	}
}
