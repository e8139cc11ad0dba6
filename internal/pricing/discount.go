package pricing

import (
	"log/slog"
	"math"
)

// discount percentages taken off the original price, per tier and content
// type. A 0 for images on the max tier means images are free there.
var subscriptionDiscounts = map[string]map[string]int{
	"lite": {"image": 70, "video": 70},
	"pro":  {"image": 50, "video": 50},
	"max":  {"image": 0, "video": 30},
}

// DiscountRates reports the image and video discount percentages for a tier,
// for display to the user. ok is false for unknown tiers.
func DiscountRates(rightsType string) (imagePercent, videoPercent int, ok bool) {
	discounts, ok := subscriptionDiscounts[rightsType]
	if !ok {
		return 0, 0, false
	}
	return discounts["image"], discounts["video"], true
}

// DiscountedPrice applies the subscription discount for the given tier and
// content type ("image" or "video"). It never fails: an empty tier pays full
// price and an unrecognized tier degrades to full price with a warning.
// The result is never negative and never exceeds the original price.
func DiscountedPrice(originalPrice int, rightsType string, contentType string, log *slog.Logger) int {
	if rightsType == "" {
		return originalPrice
	}

	discounts, ok := subscriptionDiscounts[rightsType]
	if !ok {
		if log != nil {
			log.Warn("unknown subscription tier, charging full price", "rights_type", rightsType)
		}
		return originalPrice
	}

	percent, ok := discounts[contentType]
	if !ok {
		if log != nil {
			log.Warn("unknown content type, charging full price", "content_type", contentType)
		}
		return originalPrice
	}

	// The max tier marks images with a 0 percent price, meaning free.
	if percent == 0 {
		return 0
	}

	return int(math.Round(float64(originalPrice) * float64(100-percent) / 100))
}
