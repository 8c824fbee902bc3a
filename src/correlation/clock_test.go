package correlation

import (
	"testing"
	"time"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualClockFiresInDeadlineOrder(t *testing.T) {
	clock := NewManualClock(epoch)

	var fired []int
	clock.AfterFunc(3*time.Second, func() { fired = append(fired, 3) })
	clock.AfterFunc(1*time.Second, func() { fired = append(fired, 1) })
	clock.AfterFunc(2*time.Second, func() { fired = append(fired, 2) })

	clock.Advance(2 * time.Second)
	if len(fired) != 2 || fired[0] != 1 || fired[1] != 2 {
		t.Fatalf("fired should be [1 2], not %v", fired)
	}

	clock.Advance(time.Second)
	if len(fired) != 3 || fired[2] != 3 {
		t.Fatalf("fired should be [1 2 3], not %v", fired)
	}

	if !clock.Now().Equal(epoch.Add(3 * time.Second)) {
		t.Fatalf("Now should be %v, not %v", epoch.Add(3*time.Second), clock.Now())
	}
}

func TestManualClockZeroDelayIsNotInline(t *testing.T) {
	clock := NewManualClock(epoch)

	fired := false
	clock.AfterFunc(0, func() { fired = true })

	if fired {
		t.Fatal("AfterFunc(0) should not fire inline")
	}

	clock.Advance(0)
	if !fired {
		t.Fatal("AfterFunc(0) should fire on the next Advance")
	}
}

func TestManualClockStop(t *testing.T) {
	clock := NewManualClock(epoch)

	fired := false
	timer := clock.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("first Stop should return true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should return false")
	}

	clock.Advance(time.Minute)
	if fired {
		t.Fatal("stopped timer should not fire")
	}
	if clock.Pending() != 0 {
		t.Fatalf("Pending should be 0, not %d", clock.Pending())
	}
}

func TestManualClockAfter(t *testing.T) {
	clock := NewManualClock(epoch)

	ch := clock.After(time.Second)
	clock.BlockUntil(1)

	select {
	case <-ch:
		t.Fatal("After should not fire before Advance")
	default:
	}

	clock.Advance(time.Second)

	select {
	case now := <-ch:
		if !now.Equal(epoch.Add(time.Second)) {
			t.Fatalf("After should deliver %v, not %v", epoch.Add(time.Second), now)
		}
	default:
		t.Fatal("After should have fired")
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if len(id) != 36 {
			t.Fatalf("ID %s should have 36 characters", id)
		}
		if seen[id] {
			t.Fatalf("duplicate ID %s", id)
		}
		seen[id] = true
	}
}
