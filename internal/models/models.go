package models

import (
	"encoding/json"
	"time"
)

// TaskType identifies one of the four generation pipelines.
type TaskType string

const (
	TaskText2Image  TaskType = "text2image"
	TaskImage2Image TaskType = "image2image"
	TaskText2Video  TaskType = "text2video"
	TaskImage2Video TaskType = "image2video"
)

// Valid reports whether the task type is one of the known pipelines.
func (t TaskType) Valid() bool {
	switch t {
	case TaskText2Image, TaskImage2Image, TaskText2Video, TaskImage2Video:
		return true
	}
	return false
}

// ContentType maps a task type onto the discount table axis.
func (t TaskType) ContentType() string {
	switch t {
	case TaskText2Video, TaskImage2Video:
		return "video"
	default:
		return "image"
	}
}

// Subscription tiers and billing cycles.
const (
	TierLite = "lite"
	TierPro  = "pro"
	TierMax  = "max"

	CycleWeek = "week"
	CycleYear = "year"
)

// User carries identity, the three coin pools and the subscription entitlement.
type User struct {
	ID                    string
	Email                 string
	Name                  string
	Image                 string
	Coins                 int
	InAppCoins            int
	SubCoins              int
	RightsType            string
	SubscriptionType      string
	SubscriptionExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TotalCoins is the spendable balance across all three pools.
func (u *User) TotalCoins() int {
	return u.SubCoins + u.Coins + u.InAppCoins
}

// SubscriptionActive reports whether the entitlement has not expired.
func (u *User) SubscriptionActive(now time.Time) bool {
	return u.RightsType != "" && u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.After(now)
}

// Generation history status codes, matching the provider's job states.
const (
	StatusInProgress = 1
	StatusSuccess    = 2
	StatusFailed     = 3
)

// GenerationRecord is one row per submitted job. Created in-progress and
// finalized exactly once to success or failed.
type GenerationRecord struct {
	ID           int64
	UserID       string
	TaskType     TaskType
	Model        string
	JobID        string
	Prompt       string
	Params       json.RawMessage
	Price        int
	Status       int
	Result       json.RawMessage
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Order statuses and types.
const (
	OrderPending   = "pending"
	OrderCompleted = "completed"
	OrderFailed    = "failed"

	OrderTypeInApp        = "inapp"
	OrderTypeSubscription = "subscription"
)

// Order is one row per payment attempt against the external provider.
type Order struct {
	ID               int64
	UserID           string
	Type             string
	Amount           float64
	Coins            int
	SubscriptionTier string
	PayPalOrderID    string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ModelParameter describes one declared parameter of a catalog model.
type ModelParameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Default     any      `json:"default,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Enum        []any    `json:"enum,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

// Model is a catalog entry for a generation model exposed to clients.
type Model struct {
	ID          int64
	Title       string
	Type        TaskType
	ShortAPI    string
	Description string
	Parameters  []ModelParameter
	Active      bool
	SortOrder   int
	CreatedAt   time.Time
}

// CoinPackage is a purchasable one-time coin top-up.
type CoinPackage struct {
	ID         int64
	PackageID  string
	Coins      int
	BonusCoins int
	Price      float64
	Active     bool
	SortOrder  int
}

// TotalCoins is the amount credited on purchase, bonus included.
func (p *CoinPackage) TotalCoins() int {
	return p.Coins + p.BonusCoins
}

// SubscriptionPackage is a purchasable subscription plan variant.
type SubscriptionPackage struct {
	ID           int64
	PlanID       string
	BillingCycle string
	Coins        int
	Price        float64
	Active       bool
	SortOrder    int
}
