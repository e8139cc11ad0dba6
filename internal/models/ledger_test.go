package models

import "testing"

func TestPoolsDrainOrder(t *testing.T) {
	start := Pools{Sub: 10, Free: 5, InApp: 20}

	got, ok := start.Drain(12)
	if !ok {
		t.Fatalf("Drain(12) failed, want success")
	}
	want := Pools{Sub: 0, Free: 3, InApp: 20}
	if got != want {
		t.Fatalf("Drain(12) = %+v, want %+v", got, want)
	}
}

func TestPoolsDrainPartialFromFirstPool(t *testing.T) {
	start := Pools{Sub: 100, Free: 50, InApp: 0}

	got, ok := start.Drain(30)
	if !ok {
		t.Fatalf("Drain(30) failed, want success")
	}
	want := Pools{Sub: 70, Free: 50, InApp: 0}
	if got != want {
		t.Fatalf("Drain(30) = %+v, want %+v", got, want)
	}
}

func TestPoolsDrainInsufficientLeavesPoolsUntouched(t *testing.T) {
	start := Pools{Sub: 4, Free: 3, InApp: 3}

	got, ok := start.Drain(11)
	if ok {
		t.Fatalf("Drain(11) succeeded with total balance 10")
	}
	if got != start {
		t.Fatalf("failed Drain mutated pools: got %+v, want %+v", got, start)
	}
}

func TestPoolsDrainExactBalance(t *testing.T) {
	start := Pools{Sub: 4, Free: 3, InApp: 3}

	got, ok := start.Drain(10)
	if !ok {
		t.Fatalf("Drain(10) failed with total balance 10")
	}
	if got != (Pools{}) {
		t.Fatalf("Drain(10) = %+v, want all pools empty", got)
	}
}

func TestPoolsDrainZeroAndNegative(t *testing.T) {
	start := Pools{Sub: 1, Free: 2, InApp: 3}

	if got, ok := start.Drain(0); !ok || got != start {
		t.Fatalf("Drain(0) = (%+v, %v), want unchanged pools and success", got, ok)
	}
	if _, ok := start.Drain(-5); ok {
		t.Fatalf("Drain(-5) succeeded, want failure")
	}
}

func TestUserTotalCoins(t *testing.T) {
	u := User{Coins: 5, InAppCoins: 20, SubCoins: 10}
	if got := u.TotalCoins(); got != 35 {
		t.Fatalf("TotalCoins = %d, want 35", got)
	}
}
