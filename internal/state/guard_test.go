package state

import (
	"sync"
	"testing"
	"time"
)

func TestDomain_SnapshotBeforeFirstReading(t *testing.T) {
	d := NewDomain(Sound, "dB", 10, 100)

	snap := d.Snapshot()
	if snap.Valid {
		t.Error("Snapshot must not be valid before the first reading")
	}
	if snap.SampleCount != 0 {
		t.Errorf("Expected 0 samples, got %d", snap.SampleCount)
	}
}

func TestDomain_RecordAndSnapshot(t *testing.T) {
	d := NewDomain(Light, "lux", 4, 0)

	now := time.Now()
	d.Record(120, now)
	d.Record(80, now)
	d.Record(100, now)

	d.With(func(s *Data) {
		s.Gain = 25.0
		s.IntegrationMS = 300
	})

	snap := d.Snapshot()
	if !snap.Valid {
		t.Error("Snapshot should be valid after readings")
	}
	if snap.Current != 100 || snap.Min != 80 || snap.Max != 120 {
		t.Errorf("Expected current/min/max 100/80/120, got %.0f/%.0f/%.0f",
			snap.Current, snap.Min, snap.Max)
	}
	if snap.Average != 100 {
		t.Errorf("Expected average 100, got %.2f", snap.Average)
	}
	if snap.Gain != 25.0 || snap.IntegrationMS != 300 {
		t.Errorf("Expected gain/integration 25/300, got %.1f/%d",
			snap.Gain, snap.IntegrationMS)
	}
}

func TestDomain_PeakTrackerWired(t *testing.T) {
	d := NewDomain(Sound, "dB", 8, 10)

	base := time.Unix(1000, 0)
	d.Record(40, base)
	d.Record(55, base) // same second, max-merged
	d.Record(45, base.Add(time.Second))

	snap := d.Snapshot()
	if snap.WindowPeak != 55 {
		t.Errorf("Expected window peak 55, got %.2f", snap.WindowPeak)
	}
	if snap.Current != 45 {
		t.Errorf("Expected current 45, got %.2f", snap.Current)
	}
}

func TestDomain_SilentPeakIsExported(t *testing.T) {
	// A legitimately silent domain has peak and EMA of exactly zero;
	// the snapshot must still report them via the explicit flag
	d := NewDomain(Sound, "dB", 8, 10)

	base := time.Unix(2000, 0)
	d.Record(0, base)
	d.Record(0, base.Add(time.Second))

	snap := d.Snapshot()
	if !snap.HasPeak {
		t.Error("Expected HasPeak for a domain with an initialized peak tracker")
	}
	if snap.WindowPeak != 0 || snap.EmaAverage != 0 {
		t.Errorf("Expected zero peak/EMA, got %.2f/%.2f",
			snap.WindowPeak, snap.EmaAverage)
	}

	// No peak tracker configured: the flag stays off even after readings
	d2 := NewDomain(Temperature, "F", 8, 0)
	d2.Record(72, base)
	if snap := d2.Snapshot(); snap.HasPeak {
		t.Error("Did not expect HasPeak without a peak tracker")
	}

	// Peak tracker configured but no readings yet
	d3 := NewDomain(Light, "lux", 8, 10)
	if snap := d3.Snapshot(); snap.HasPeak {
		t.Error("Did not expect HasPeak before the first reading")
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry(
		NewDomain(Sound, "dB", 4, 10),
		NewDomain(Temperature, "F", 4, 0),
	)

	if _, ok := r.Get(Sound); !ok {
		t.Error("Expected to find sound domain")
	}
	if _, ok := r.Get(Pressure); ok {
		t.Error("Did not expect to find unregistered domain")
	}

	if id, ok := ParseID("temperature"); !ok || id != Temperature {
		t.Errorf("ParseID(temperature) = %v, %v", id, ok)
	}
	if _, ok := ParseID("bogus"); ok {
		t.Error("ParseID should reject unknown names")
	}
}

func TestDomain_NoTornReads(t *testing.T) {
	// Concurrent producers track values from a fixed set while readers
	// snapshot. Every observed value must be the result of a completed
	// Track call: current is from the set, and min <= average <= max.
	d := NewDomain(Sound, "dB", 16, 10)

	allowed := map[float64]bool{10: true, 20: true, 30: true}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for p := 0; p < 2; p++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			values := []float64{10, 20, 30}
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				d.Record(values[(i+offset)%3], time.Now())
			}
		}(p)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				snap := d.Snapshot()
				if !snap.Valid {
					continue
				}
				if !allowed[snap.Current] {
					t.Errorf("Torn read: current %.2f not a tracked value", snap.Current)
					return
				}
				if snap.Min > snap.Average || snap.Average > snap.Max {
					t.Errorf("Inconsistent snapshot: min=%.2f avg=%.2f max=%.2f",
						snap.Min, snap.Average, snap.Max)
					return
				}
				if snap.Min < 10 || snap.Max > 30 {
					t.Errorf("Out-of-range stats: min=%.2f max=%.2f", snap.Min, snap.Max)
					return
				}
			}
		}()
	}

	// Let readers finish, then release producers
	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestRegistry_SnapshotsOneDomainAtATime(t *testing.T) {
	r := NewRegistry(
		NewDomain(Sound, "dB", 4, 10),
		NewDomain(Light, "lux", 4, 0),
		NewDomain(Temperature, "F", 4, 0),
	)

	now := time.Now()
	for _, d := range r.Domains() {
		d.Record(float64(d.ID())+1, now)
	}

	snaps := r.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(snaps))
	}
	if snaps[0].Domain != "sound" || snaps[1].Domain != "light" {
		t.Errorf("Snapshots out of registration order: %s, %s",
			snaps[0].Domain, snaps[1].Domain)
	}
}
