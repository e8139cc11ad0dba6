// Package payment models what a PayPal order was for. The intent travels to
// the provider as a custom id string and is reconstructed on capture, with an
// amount-matching fallback for payments whose token went missing.
package payment

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vicraft/backend/internal/models"
)

// ErrUnresolvable means a captured payment could not be mapped to a coin
// top-up or a subscription grant. The capture must then fail without touching
// any balance or order state.
var ErrUnresolvable = errors.New("payment cannot be resolved to a coin or subscription grant")

// Intent kinds.
const (
	KindTopUp        = "coins"
	KindSubscription = "subscription"
)

// Intent is the tagged form of a payment purpose.
type Intent struct {
	Kind string
	// TopUp fields.
	PackageID string
	// Subscription fields.
	Tier  string
	Cycle string
	// Coins granted on success for either kind.
	Coins int
}

// CustomID serializes the intent into the provider's custom id field.
// Formats: "coins:<packageId>:<coins>" and "subscription:<tier>:<cycle>:<coins>".
func (i Intent) CustomID() string {
	if i.Kind == KindSubscription {
		return fmt.Sprintf("%s:%s:%s:%d", KindSubscription, i.Tier, i.Cycle, i.Coins)
	}
	return fmt.Sprintf("%s:%s:%d", KindTopUp, i.PackageID, i.Coins)
}

// ExpiresAt computes the entitlement expiry for a subscription intent granted
// at the given time. A year is a calendar year, not a fixed day count.
func (i Intent) ExpiresAt(now time.Time) time.Time {
	if i.Cycle == models.CycleYear {
		return now.AddDate(1, 0, 0)
	}
	return now.AddDate(0, 0, 7)
}

// ParseCustomID reconstructs an intent from the colon-delimited token echoed
// back by the provider. This is the legacy-compatible string path; tokens
// that do not parse fall through to amount matching.
func ParseCustomID(customID string) (Intent, error) {
	parts := strings.Split(customID, ":")

	switch parts[0] {
	case KindSubscription:
		if len(parts) != 4 {
			return Intent{}, fmt.Errorf("malformed subscription token %q", customID)
		}
		coins, err := strconv.Atoi(parts[3])
		if err != nil || coins <= 0 {
			return Intent{}, fmt.Errorf("bad coin count in token %q", customID)
		}
		tier := parts[1]
		if tier != models.TierLite && tier != models.TierPro && tier != models.TierMax {
			return Intent{}, fmt.Errorf("unknown tier in token %q", customID)
		}
		cycle := parts[2]
		if cycle != models.CycleWeek && cycle != models.CycleYear {
			return Intent{}, fmt.Errorf("unknown billing cycle in token %q", customID)
		}
		return Intent{Kind: KindSubscription, Tier: tier, Cycle: cycle, Coins: coins}, nil

	case KindTopUp:
		if len(parts) != 3 {
			return Intent{}, fmt.Errorf("malformed top-up token %q", customID)
		}
		coins, err := strconv.Atoi(parts[2])
		if err != nil || coins <= 0 {
			return Intent{}, fmt.Errorf("bad coin count in token %q", customID)
		}
		return Intent{Kind: KindTopUp, PackageID: parts[1], Coins: coins}, nil
	}

	return Intent{}, fmt.Errorf("unrecognized token %q", customID)
}

// amountTolerance absorbs floating point drift between the catalog price and
// the amount the provider reports as captured.
const amountTolerance = 0.01

// ResolveByAmount matches a captured amount against the active catalog: coin
// packages first, then subscription packages; the first match within the
// tolerance wins. Returns ErrUnresolvable when nothing matches.
func ResolveByAmount(amount float64, coinPackages []models.CoinPackage, subscriptionPackages []models.SubscriptionPackage) (Intent, error) {
	if amount <= 0 {
		return Intent{}, ErrUnresolvable
	}

	for _, pkg := range coinPackages {
		if math.Abs(pkg.Price-amount) < amountTolerance {
			return Intent{Kind: KindTopUp, PackageID: pkg.PackageID, Coins: pkg.TotalCoins()}, nil
		}
	}

	for _, sub := range subscriptionPackages {
		if math.Abs(sub.Price-amount) < amountTolerance {
			return Intent{
				Kind:  KindSubscription,
				Tier:  sub.PlanID,
				Cycle: sub.BillingCycle,
				Coins: sub.Coins,
			}, nil
		}
	}

	return Intent{}, ErrUnresolvable
}

// Resolve reconstructs the intent for a captured payment, preferring the
// custom id token and falling back to amount matching.
func Resolve(customID string, amount float64, coinPackages []models.CoinPackage, subscriptionPackages []models.SubscriptionPackage) (Intent, error) {
	if customID != "" {
		if intent, err := ParseCustomID(customID); err == nil {
			return intent, nil
		}
	}
	return ResolveByAmount(amount, coinPackages, subscriptionPackages)
}
