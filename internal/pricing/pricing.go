// Package pricing holds the static coin price catalog and the calculators
// that turn a generation request into a coin cost.
package pricing

import (
	"fmt"
	"math"
	"strconv"
)

// DefaultPrice is charged when no rule exists for a (taskType, model) pair.
const DefaultPrice = 100

// Config describes how to price one model within one task type.
type Config struct {
	// BasePrice covers the first unit of work.
	BasePrice int
	// UnitPrice, when set together with UnitParam, adds a marginal cost per
	// extra unit of the named parameter (the first unit is in BasePrice).
	UnitPrice int
	UnitParam string
	// PriceMap is an exact lookup table keyed by "{duration}_{resolution}".
	// A hit bypasses BasePrice and Multipliers entirely.
	PriceMap map[string]int
	// Multipliers scales the running price per parameter. A nested map is
	// keyed by the submitted value (unknown values scale by 1); a bare
	// number applies unconditionally.
	Multipliers map[string]any
}

// Rules maps taskType -> model shortapi -> price config.
var Rules = map[string]map[string]Config{
	"text2image": {
		"shortapi/flux-1.0/text-to-image": {
			BasePrice: 100,
			UnitPrice: 20,
			UnitParam: "num_images",
		},
		"google/nano-banana/text-to-image": {
			BasePrice: 200,
			UnitPrice: 20,
			UnitParam: "num_images",
		},
	},
	"image2image": {
		"shortapi/flux-1.0/image-to-image": {
			BasePrice: 300,
			UnitPrice: 20,
			UnitParam: "num_images",
		},
		"google/nano-banana/edit": {
			BasePrice: 100,
			UnitPrice: 20,
			UnitParam: "num_images",
		},
	},
	"text2video": {
		"vidu/vidu-q2/text-to-video": {
			BasePrice: 600,
			PriceMap: map[string]int{
				"5_720p":   600,
				"5_1080p":  800,
				"10_720p":  1000,
				"10_1080p": 1200,
			},
		},
		"kwaivgi/kling-2.6/text-to-video": {
			BasePrice: 600,
			PriceMap: map[string]int{
				"5_720p":   600,
				"5_1080p":  600,
				"10_720p":  1000,
				"10_1080p": 1000,
			},
		},
	},
	"image2video": {
		"vidu/vidu-q2/image-to-video": {
			BasePrice: 600,
			PriceMap: map[string]int{
				"5_720p":   600,
				"5_1080p":  800,
				"10_720p":  1000,
				"10_1080p": 1200,
			},
		},
		"kwaivgi/kling-2.6/image-to-video": {
			BasePrice: 600,
			PriceMap: map[string]int{
				"5_720p":   600,
				"5_1080p":  600,
				"10_720p":  1000,
				"10_1080p": 1000,
			},
		},
	},
}

// CalculatePrice computes the coin cost for one generation request. It is a
// pure function of its inputs and the static rules table; unknown models fall
// back to DefaultPrice rather than failing.
func CalculatePrice(taskType, model string, params map[string]any) int {
	cfg, ok := Rules[taskType][model]
	if !ok {
		return DefaultPrice
	}

	if len(cfg.PriceMap) > 0 {
		duration := stringParam(params, "5", "duration", "video_duration")
		resolution := stringParam(params, "720p", "resolution", "video_quality")
		if price, ok := cfg.PriceMap[duration+"_"+resolution]; ok {
			return price
		}
	}

	total := cfg.BasePrice

	if cfg.UnitPrice > 0 && cfg.UnitParam != "" {
		unitValue := numericParam(params, cfg.UnitParam, 1)
		extraUnits := unitValue - 1
		if extraUnits > 0 {
			total += extraUnits * cfg.UnitPrice
		}
	}

	for param, raw := range cfg.Multipliers {
		switch m := raw.(type) {
		case map[string]float64:
			value, ok := params[param]
			if !ok || value == nil {
				continue
			}
			factor, ok := m[fmt.Sprint(value)]
			if !ok {
				factor = 1
			}
			total = int(math.Round(float64(total) * factor))
		case map[string]any:
			// Rules decoded from JSON carry nested maps in this shape.
			value, ok := params[param]
			if !ok || value == nil {
				continue
			}
			total = int(math.Round(float64(total) * factorFrom(m, value)))
		case float64:
			total = int(math.Round(float64(total) * m))
		case int:
			total *= m
		}
	}

	return total
}

// factorFrom reads the multiplier for a submitted value out of a loosely
// typed nested map, defaulting to 1 for unknown values or non-numeric factors.
func factorFrom(m map[string]any, value any) float64 {
	raw, ok := m[fmt.Sprint(value)]
	if !ok {
		return 1
	}
	switch f := raw.(type) {
	case float64:
		return f
	case int:
		return float64(f)
	}
	return 1
}

// stringParam returns the first present key rendered as a string.
func stringParam(params map[string]any, fallback string, keys ...string) string {
	for _, key := range keys {
		if v, ok := params[key]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return fallback
}

// numericParam reads a parameter as an integer, tolerating float and string
// encodings from loosely-typed clients.
func numericParam(params map[string]any, key string, fallback int) int {
	v, ok := params[key]
	if !ok || v == nil {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return fallback
}
