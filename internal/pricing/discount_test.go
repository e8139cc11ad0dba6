package pricing

import "testing"

func TestDiscountedPrice(t *testing.T) {
	tests := []struct {
		name        string
		price       int
		rightsType  string
		contentType string
		want        int
	}{
		{"no subscription", 1000, "", "image", 1000},
		{"lite image", 1000, "lite", "image", 300},
		{"lite video", 1000, "lite", "video", 300},
		{"pro image", 1000, "pro", "image", 500},
		{"pro video", 1000, "pro", "video", 500},
		{"max image is free", 1000, "max", "image", 0},
		{"max video", 1000, "max", "video", 700},
		{"unknown tier pays full", 1000, "platinum", "image", 1000},
		{"rounding", 99, "lite", "video", 30},
		{"zero price stays zero", 0, "pro", "image", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscountedPrice(tt.price, tt.rightsType, tt.contentType, nil)
			if got != tt.want {
				t.Fatalf("DiscountedPrice(%d, %q, %q) = %d, want %d", tt.price, tt.rightsType, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestDiscountedPriceNeverExceedsOriginal(t *testing.T) {
	for _, tier := range []string{"", "lite", "pro", "max"} {
		for _, content := range []string{"image", "video"} {
			got := DiscountedPrice(500, tier, content, nil)
			if got < 0 || got > 500 {
				t.Fatalf("DiscountedPrice(500, %q, %q) = %d, out of [0,500]", tier, content, got)
			}
		}
	}
}

// Discounts are not idempotent: re-discounting an already discounted price
// compounds, so callers must apply the discount exactly once per charge.
func TestDiscountedPriceIsNotIdempotent(t *testing.T) {
	once := DiscountedPrice(1000, "pro", "video", nil)
	twice := DiscountedPrice(once, "pro", "video", nil)
	if twice == once {
		t.Fatalf("double discount = single discount = %d; expected compounding", twice)
	}
	if twice != 250 {
		t.Fatalf("double discount = %d, want 250", twice)
	}
}
