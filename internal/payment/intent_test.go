package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/vicraft/backend/internal/models"
)

func TestCustomIDRoundTrip(t *testing.T) {
	tests := []Intent{
		{Kind: KindTopUp, PackageID: "pkg3", Coins: 3800},
		{Kind: KindSubscription, Tier: "lite", Cycle: "week", Coins: 600},
		{Kind: KindSubscription, Tier: "max", Cycle: "year", Coins: 25000},
	}
	for _, intent := range tests {
		t.Run(intent.CustomID(), func(t *testing.T) {
			parsed, err := ParseCustomID(intent.CustomID())
			if err != nil {
				t.Fatalf("ParseCustomID(%q) error = %v", intent.CustomID(), err)
			}
			if parsed != intent {
				t.Fatalf("ParseCustomID(%q) = %+v, want %+v", intent.CustomID(), parsed, intent)
			}
		})
	}
}

func TestParseCustomIDRejectsGarbage(t *testing.T) {
	bad := []string{
		"",
		"refund:pkg1:500",
		"subscription:lite:week",
		"subscription:platinum:week:600",
		"subscription:lite:daily:600",
		"subscription:lite:week:lots",
		"coins:pkg1",
		"coins:pkg1:-5",
	}
	for _, token := range bad {
		if _, err := ParseCustomID(token); err == nil {
			t.Fatalf("ParseCustomID(%q) succeeded, want error", token)
		}
	}
}

func TestExpiresAt(t *testing.T) {
	now := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)

	week := Intent{Kind: KindSubscription, Cycle: models.CycleWeek}.ExpiresAt(now)
	if want := now.AddDate(0, 0, 7); !week.Equal(want) {
		t.Fatalf("week expiry = %v, want %v", week, want)
	}

	// A calendar year from Feb 29 lands on Mar 1, not 365 days later.
	year := Intent{Kind: KindSubscription, Cycle: models.CycleYear}.ExpiresAt(now)
	if want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC); !year.Equal(want) {
		t.Fatalf("year expiry = %v, want %v", year, want)
	}
}

var testCoinPackages = []models.CoinPackage{
	{PackageID: "pkg1", Coins: 10000, BonusCoins: 3000, Price: 139.98},
	{PackageID: "pkg5", Coins: 800, Price: 17.99},
}

var testSubscriptionPackages = []models.SubscriptionPackage{
	{PlanID: "lite", BillingCycle: "week", Coins: 600, Price: 9.99},
	{PlanID: "pro", BillingCycle: "year", Coins: 8000, Price: 199.99},
}

func TestResolveByAmount(t *testing.T) {
	intent, err := ResolveByAmount(139.98, testCoinPackages, testSubscriptionPackages)
	if err != nil {
		t.Fatalf("ResolveByAmount error = %v", err)
	}
	if intent.Kind != KindTopUp || intent.PackageID != "pkg1" || intent.Coins != 13000 {
		t.Fatalf("ResolveByAmount = %+v, want pkg1 top-up of 13000 (bonus included)", intent)
	}

	intent, err = ResolveByAmount(199.99, testCoinPackages, testSubscriptionPackages)
	if err != nil {
		t.Fatalf("ResolveByAmount error = %v", err)
	}
	if intent.Kind != KindSubscription || intent.Tier != "pro" || intent.Cycle != "year" || intent.Coins != 8000 {
		t.Fatalf("ResolveByAmount = %+v, want pro/year subscription", intent)
	}
}

func TestResolveByAmountTolerance(t *testing.T) {
	if _, err := ResolveByAmount(17.994, testCoinPackages, nil); err != nil {
		t.Fatalf("amount within tolerance rejected: %v", err)
	}
	if _, err := ResolveByAmount(18.25, testCoinPackages, nil); !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("amount outside tolerance: err = %v, want ErrUnresolvable", err)
	}
	if _, err := ResolveByAmount(0, testCoinPackages, testSubscriptionPackages); !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("zero amount: err = %v, want ErrUnresolvable", err)
	}
}

func TestResolvePrefersToken(t *testing.T) {
	// Token wins even when the amount would match a different package.
	intent, err := Resolve("coins:pkg5:800", 139.98, testCoinPackages, testSubscriptionPackages)
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if intent.PackageID != "pkg5" || intent.Coins != 800 {
		t.Fatalf("Resolve = %+v, want token-derived pkg5", intent)
	}

	// A broken token falls back to amount matching.
	intent, err = Resolve("coins:corrupted", 17.99, testCoinPackages, testSubscriptionPackages)
	if err != nil {
		t.Fatalf("Resolve fallback error = %v", err)
	}
	if intent.PackageID != "pkg5" {
		t.Fatalf("Resolve fallback = %+v, want pkg5", intent)
	}

	// Nothing resolvable at all.
	if _, err := Resolve("garbage", 1.23, testCoinPackages, testSubscriptionPackages); !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("unresolvable payment: err = %v, want ErrUnresolvable", err)
	}
}
