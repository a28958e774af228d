package risk

import "testing"

func TestBreakerTripsOnDailyLoss(t *testing.T) {
	limits := DefaultLimits() // daily loss 2000, drawdown 5000
	b := NewBreaker(limits)

	tripped, first := b.Evaluate(-1999, 0)
	if tripped || first {
		t.Fatal("tripped below the limit")
	}

	tripped, first = b.Evaluate(-2001, 0)
	if !tripped || !first {
		t.Fatalf("tripped=%v first=%v, want true/true", tripped, first)
	}
	if b.Reason() == "" {
		t.Error("no reason recorded")
	}
}

func TestBreakerTripsOnDrawdown(t *testing.T) {
	b := NewBreaker(DefaultLimits())

	if tripped, _ := b.Evaluate(0, 5000); tripped {
		t.Fatal("tripped at exactly the drawdown limit")
	}
	if tripped, _ := b.Evaluate(0, 5001); !tripped {
		t.Fatal("did not trip above the drawdown limit")
	}
}

func TestBreakerTripsExactlyOnce(t *testing.T) {
	b := NewBreaker(DefaultLimits())

	if _, first := b.Evaluate(-3000, 0); !first {
		t.Fatal("first evaluation did not report the trip")
	}

	// Re-evaluation stays tripped but never reports first again.
	for i := 0; i < 3; i++ {
		tripped, first := b.Evaluate(-3000, 9999)
		if !tripped {
			t.Fatal("breaker un-tripped itself")
		}
		if first {
			t.Fatal("trip reported twice")
		}
	}
}

func TestBreakerReset(t *testing.T) {
	b := NewBreaker(DefaultLimits())
	b.Evaluate(-3000, 0)

	b.Reset()
	if b.Tripped() {
		t.Fatal("still tripped after reset")
	}
	if b.Reason() != "" {
		t.Errorf("reason %q survives reset", b.Reason())
	}

	// Trips again after re-arm.
	if tripped, first := b.Evaluate(-3000, 0); !tripped || !first {
		t.Error("breaker does not re-trip after reset")
	}
}

func TestBreakerZeroLimitsDisableTriggers(t *testing.T) {
	b := NewBreaker(Limits{})

	if tripped, _ := b.Evaluate(-1e9, 1e9); tripped {
		t.Fatal("zero limits should disable both triggers")
	}
}
