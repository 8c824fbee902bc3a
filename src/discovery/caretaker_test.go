package discovery

import (
	"testing"
)

func testMementos(n int) []*Memento {
	ps := testPeers(n)
	res := make([]*Memento, n)
	for i := 0; i < n; i++ {
		res[i] = newMemento(NewStep(testSelf(), ps[i:i+1]))
	}
	return res
}

func TestCareTakerLIFO(t *testing.T) {
	ct := NewCareTaker(10)
	ms := testMementos(3)

	for _, m := range ms {
		ct.Add(m)
	}

	got, ok := ct.Get()
	if !ok || got != ms[2] {
		t.Fatal("Get should return the last memento pushed")
	}

	if ct.Len() != 2 {
		t.Fatalf("history length should be 2, not %d", ct.Len())
	}

	h := ct.History()
	if h[0] != ms[0] || h[1] != ms[1] {
		t.Fatal("remaining history should be [m1, m2]")
	}

	ct.Get()
	ct.Get()
	if _, ok := ct.Get(); ok {
		t.Fatal("Get on an empty history should return false")
	}
	if ct.Len() != 0 {
		t.Fatalf("history length should be 0, not %d", ct.Len())
	}
}

func TestCareTakerMaxDepth(t *testing.T) {
	ct := NewCareTaker(3)
	ms := testMementos(5)

	for _, m := range ms {
		ct.Add(m)
	}

	if ct.Len() != 3 {
		t.Fatalf("history length should be capped at 3, not %d", ct.Len())
	}

	h := ct.History()
	for i, m := range h {
		if m != ms[i+2] {
			t.Fatalf("history[%d] should be the memento pushed %dth", i, i+3)
		}
	}

	if top, _ := ct.Get(); top != ms[4] {
		t.Fatal("Get should return the last memento pushed")
	}
}

func TestCareTakerHistoryIsSnapshot(t *testing.T) {
	ct := NewCareTaker(0)
	ms := testMementos(2)

	ct.Add(ms[0])
	h := ct.History()

	ct.Add(ms[1])
	ct.Get()
	ct.Get()

	if len(h) != 1 || h[0] != ms[0] {
		t.Fatal("a History snapshot should not change after later writes")
	}
}
