package history

import (
	"strings"
	"testing"
)

const testBudget = 1 << 20

func testSpecs() []StreamSpec {
	return []StreamSpec{
		{Name: "sound", Precision: 2},
		{Name: "light", Precision: 2},
	}
}

// fields splits one stream of the snapshot into its H trimmed values
func fields(t *testing.T, s *Store, blob []byte, stream int) []string {
	t.Helper()

	streams, length, width := s.Geometry()
	if stream >= streams {
		t.Fatalf("Stream %d out of range (%d streams)", stream, streams)
	}

	streamBytes := length * width
	region := blob[stream*streamBytes : (stream+1)*streamBytes]

	out := make([]string, 0, length)
	for i := 0; i < length; i++ {
		field := string(region[i*width : (i+1)*width])
		field = strings.TrimRight(strings.TrimSpace(field), string(Delimiter))
		out = append(out, field)
	}
	return out
}

func TestStore_SetupGeometry(t *testing.T) {
	s := NewStore()

	if s.Active() {
		t.Error("New store should be Disabled")
	}

	if err := s.Setup(testSpecs(), 8, 10, testBudget); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if !s.Active() {
		t.Error("Store should be Active after successful Setup")
	}

	streams, length, width := s.Geometry()
	if streams != 3 || length != 8 || width != 10 {
		t.Errorf("Expected geometry 3/8/10, got %d/%d/%d", streams, length, width)
	}

	blob := s.Snapshot()
	wantLen := 3*8*10 + 1
	if len(blob) != wantLen {
		t.Errorf("Expected snapshot of %d bytes, got %d", wantLen, len(blob))
	}
	if blob[len(blob)-1] != Terminator {
		t.Errorf("Expected terminator byte, got %q", blob[len(blob)-1])
	}
}

func TestStore_RoundTripEviction(t *testing.T) {
	// After H+3 ticks with increasing time values the oldest 3 ticks
	// are evicted: first element is the 4th tick, last is the newest.
	const h = 6
	s := NewStore()
	if err := s.Setup(testSpecs(), h, 10, testBudget); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	for i := int64(1); i <= h+3; i++ {
		s.AppendTick(i*100, []Sample{
			{Value: float64(i), Valid: true},
			{Value: float64(i) * 2, Valid: true},
		})
	}

	blob := s.Snapshot()

	times := fields(t, s, blob, 0)
	if times[0] != "400" {
		t.Errorf("Expected oldest time index 400 (4th tick), got %q", times[0])
	}
	if times[h-1] != "900" {
		t.Errorf("Expected newest time index 900, got %q", times[h-1])
	}

	sound := fields(t, s, blob, 1)
	if sound[0] != "4.00" || sound[h-1] != "9.00" {
		t.Errorf("Expected sound stream 4.00..9.00, got %q..%q", sound[0], sound[h-1])
	}
	light := fields(t, s, blob, 2)
	if light[h-1] != "18.00" {
		t.Errorf("Expected newest light value 18.00, got %q", light[h-1])
	}
}

func TestStore_ShiftPreservesOrder(t *testing.T) {
	s := NewStore()
	if err := s.Setup(testSpecs(), 4, 10, testBudget); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	s.AppendTick(1, []Sample{{Value: 1.5, Valid: true}, {Value: 0, Valid: true}})
	s.AppendTick(2, []Sample{{Value: 2.5, Valid: true}, {Value: 0, Valid: true}})

	sound := fields(t, s, s.Snapshot(), 1)

	// Unwritten leading slots hold only padding
	if sound[0] != "" || sound[1] != "" {
		t.Errorf("Expected empty pad fields, got %q, %q", sound[0], sound[1])
	}
	if sound[2] != "1.50" || sound[3] != "2.50" {
		t.Errorf("Expected oldest-first 1.50, 2.50, got %q, %q", sound[2], sound[3])
	}
}

func TestStore_MissingValueSentinel(t *testing.T) {
	s := NewStore()
	if err := s.Setup(testSpecs(), 4, 10, testBudget); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	// Second stream not yet valid (sensor stabilizing)
	s.AppendTick(1, []Sample{{Value: 3.25, Valid: true}, {Valid: false}})

	blob := s.Snapshot()
	light := fields(t, s, blob, 2)
	if light[3] != Sentinel {
		t.Errorf("Expected sentinel %q for invalid value, got %q", Sentinel, light[3])
	}

	// Short sample slice: stream beyond the slice also gets the sentinel
	s.AppendTick(2, []Sample{{Value: 4.5, Valid: true}})
	light = fields(t, s, s.Snapshot(), 2)
	if light[3] != Sentinel {
		t.Errorf("Expected sentinel for missing sample, got %q", light[3])
	}
}

func TestStore_DisabledIsNoOp(t *testing.T) {
	s := NewStore()

	// Never set up: appends and snapshots must not crash
	s.AppendTick(1, []Sample{{Value: 1, Valid: true}})
	if blob := s.Snapshot(); blob != nil {
		t.Errorf("Expected nil snapshot from Disabled store, got %d bytes", len(blob))
	}
}

func TestStore_BudgetExceededStaysDisabled(t *testing.T) {
	s := NewStore()

	err := s.Setup(testSpecs(), 1000, 10, 100)
	if err == nil {
		t.Fatal("Expected Setup to fail with tiny budget")
	}
	if s.Active() {
		t.Error("Store must stay Disabled after failed Setup")
	}

	s.AppendTick(1, []Sample{{Value: 1, Valid: true}})
	if s.Snapshot() != nil {
		t.Error("Disabled store must leave no observable history")
	}
}

func TestStore_InvalidGeometry(t *testing.T) {
	s := NewStore()

	if err := s.Setup(nil, 10, 10, testBudget); err == nil {
		t.Error("Expected error for zero streams")
	}
	if err := s.Setup(testSpecs(), 0, 10, testBudget); err == nil {
		t.Error("Expected error for zero length")
	}
	if err := s.Setup(testSpecs(), 10, 3, testBudget); err == nil {
		t.Error("Expected error for width smaller than sentinel")
	}
}

func TestStore_TimeIndexFitsDefaultWidth(t *testing.T) {
	// The tick loop feeds seconds since process start. A decade of
	// uptime is a 9-digit index and must round-trip at the default
	// element width of 10, never degrading to the sentinel.
	s := NewStore()
	if err := s.Setup(testSpecs(), 4, 10, testBudget); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	const decade = int64(315359999)
	s.AppendTick(decade, []Sample{
		{Value: 1, Valid: true},
		{Value: 2, Valid: true},
	})

	times := fields(t, s, s.Snapshot(), 0)
	if times[3] != "315359999" {
		t.Errorf("Expected time index 315359999, got %q", times[3])
	}
	if times[3] == Sentinel {
		t.Error("Time index must never be written as the sentinel")
	}
}

func TestStore_OverlongValueFallsBackToSentinel(t *testing.T) {
	s := NewStore()
	if err := s.Setup([]StreamSpec{{Name: "x", Precision: 2}}, 2, 6, testBudget); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	// "123456789.00" does not fit into width 6
	s.AppendTick(1, []Sample{{Value: 123456789, Valid: true}})

	vals := fields(t, s, s.Snapshot(), 1)
	if vals[1] != Sentinel {
		t.Errorf("Expected sentinel for overlong value, got %q", vals[1])
	}
}

func BenchmarkAppendTick(b *testing.B) {
	s := NewStore()
	specs := []StreamSpec{
		{Name: "sound", Precision: 2},
		{Name: "light", Precision: 2},
		{Name: "temperature", Precision: 2},
		{Name: "humidity", Precision: 2},
		{Name: "pressure", Precision: 2},
		{Name: "battery", Precision: 2},
	}
	if err := s.Setup(specs, 450, 10, 1<<20); err != nil {
		b.Fatalf("Setup failed: %v", err)
	}
	samples := make([]Sample, len(specs))
	for i := range samples {
		samples[i] = Sample{Value: float64(i) * 1.5, Valid: true}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.AppendTick(int64(i), samples)
	}
}
