package devices

import (
	"fmt"
	"testing"

	"roadindexer/internal/model"
)

func TestObserveCounts(t *testing.T) {
	s := NewStore(10)
	p := model.GeoPoint{Latitude: 55.6761, Longitude: 12.5683}

	s.Observe("bike-1", p, model.StatusOK, "", 0.7)
	s.Observe("bike-1", p, model.StatusIgnored, model.ReasonLowSpeed, 0)
	s.Observe("bike-1", p, model.StatusOK, "", 0.5)

	st, ok := s.Get("bike-1")
	if !ok {
		t.Fatal("device missing")
	}
	if st.Accepted != 2 || st.Ignored != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", st.Accepted, st.Ignored)
	}
	if st.LastStatus != model.StatusOK || st.LastRoughness != 0.5 {
		t.Fatalf("last state not updated: %+v", st)
	}
}

func TestEviction(t *testing.T) {
	s := NewStore(3)
	p := model.GeoPoint{}
	for i := 0; i < 5; i++ {
		s.Observe(fmt.Sprintf("bike-%d", i), p, model.StatusOK, "", 0)
	}
	all := s.GetAll()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
}

func TestEmptyDeviceIgnored(t *testing.T) {
	s := NewStore(10)
	s.Observe("", model.GeoPoint{}, model.StatusOK, "", 0)
	if len(s.GetAll()) != 0 {
		t.Fatal("empty device id should not be stored")
	}
}
