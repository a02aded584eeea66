package market

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/Vickykunwar/newszoid-backend/pkg/cache"
)

func TestSimulateDeterministicPerMinute(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 15, 5, 0, time.UTC)
	a := Simulate(at)
	b := Simulate(at.Add(40 * time.Second))
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same minute must give the same quotes")
	}
	c := Simulate(at.Add(time.Minute))
	if reflect.DeepEqual(a.Quotes, c.Quotes) {
		t.Fatal("next minute should move the quotes")
	}
}

func TestSimulateBounds(t *testing.T) {
	snap := Simulate(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	if len(snap.Quotes) != len(instruments) || !snap.Simulated {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	for _, q := range snap.Quotes {
		if math.Abs(q.ChangePercent) > maxDrift*100+0.01 {
			t.Fatalf("%s drifted %.2f%%", q.Symbol, q.ChangePercent)
		}
		if math.Abs(q.Price-q.PreviousClose-q.Change) > 0.011 {
			t.Fatalf("%s change does not match price", q.Symbol)
		}
	}
}

func TestSnapshotCached(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mem := cache.NewMemory().WithClock(func() time.Time { return now })
	s := New(mem, 0).WithClock(func() time.Time { return now })

	first := s.Snapshot(context.Background())
	if first.FromCache {
		t.Fatal("first snapshot must be fresh")
	}
	now = now.Add(30 * time.Second)
	if !s.Snapshot(context.Background()).FromCache {
		t.Fatal("expected cached snapshot")
	}
	now = now.Add(time.Minute)
	if s.Snapshot(context.Background()).FromCache {
		t.Fatal("expired snapshot must be rebuilt")
	}
}
