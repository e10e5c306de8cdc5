package budget

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/leapstack-labs/analyst/pkg/core"
)

func TestTracker_AllowsWithinBudget(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := New(core.Budget{MaxQueries: 2, MaxSeconds: 60}, clock, nil)

	if got := tr.TryConsume(true); got != Allowed {
		t.Fatalf("first query: got %v", got)
	}
	if got := tr.TryConsume(true); got != Allowed {
		t.Fatalf("second query: got %v", got)
	}
	if tr.QueriesUsed() != 2 {
		t.Errorf("queries used = %d, want 2", tr.QueriesUsed())
	}
}

func TestTracker_QueryCapNeverExceeded(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := New(core.Budget{MaxQueries: 1, MaxSeconds: 60}, clock, nil)

	tr.TryConsume(true)
	for i := 0; i < 5; i++ {
		if got := tr.TryConsume(true); got != Exhausted {
			t.Fatalf("attempt %d past cap: got %v", i, got)
		}
	}
	// Exhausted attempts do not count, even transiently.
	if tr.QueriesUsed() != 1 {
		t.Errorf("queries used = %d, want 1", tr.QueriesUsed())
	}
}

func TestTracker_WallClockExhaustion(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := New(core.Budget{MaxQueries: 100, MaxSeconds: 90}, clock, nil)

	clock.Advance(91 * time.Second)

	if got := tr.TryConsume(true); got != Exhausted {
		t.Fatalf("got %v after wall clock expiry", got)
	}
	if tr.QueriesUsed() != 0 {
		t.Errorf("queries used = %d, want 0", tr.QueriesUsed())
	}
}

func TestTracker_NonQueryConsumeObservesClockOnly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := New(core.Budget{MaxQueries: 1, MaxSeconds: 90}, clock, nil)
	tr.TryConsume(true)

	// A non-query check (e.g. an LLM call) passes while time remains,
	// even with the query counter at its cap.
	if got := tr.TryConsume(false); got != Allowed {
		t.Fatalf("non-query consume: got %v", got)
	}
}

func TestTracker_StateSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := New(core.Budget{MaxQueries: 10, MaxSeconds: 90}, clock, nil)
	tr.TryConsume(true)
	clock.Advance(3 * time.Second)

	st := tr.State()
	if st.QueriesUsed != 1 {
		t.Errorf("queries used = %d", st.QueriesUsed)
	}
	if st.SecondsUsed < 2.9 || st.SecondsUsed > 3.1 {
		t.Errorf("seconds used = %f, want ~3", st.SecondsUsed)
	}
}

func TestTracker_Remaining(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := New(core.Budget{MaxQueries: 1, MaxSeconds: 90}, clock, nil)
	if !tr.Remaining() {
		t.Fatal("fresh tracker should have headroom")
	}
	tr.TryConsume(true)
	if tr.Remaining() {
		t.Fatal("query cap reached, no headroom")
	}
}
