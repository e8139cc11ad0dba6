package params

import (
	"reflect"
	"testing"

	"github.com/vicraft/backend/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

var imageDefs = []models.ModelParameter{
	{Name: "prompt", Type: "string", Required: true},
	{Name: "num_images", Type: "int", Default: 1, Min: floatPtr(1), Max: floatPtr(4)},
	{Name: "resolution", Type: "string", Default: "720p", Enum: []any{"720p", "1080p"}},
	{Name: "input_urls", Type: "list<string>"},
	{Name: "hd", Type: "bool"},
}

func TestValidateCoercesAndDefaults(t *testing.T) {
	got, err := Validate(map[string]any{
		"prompt":     "a red chili",
		"num_images": "3",
		"hd":         "true",
		"input_urls": "a.png, b.png",
	}, imageDefs)
	if err != nil {
		t.Fatalf("Validate error = %v", err)
	}

	want := map[string]any{
		"prompt":     "a red chili",
		"num_images": 3,
		"resolution": "720p",
		"hd":         true,
		"input_urls": []string{"a.png", "b.png"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Validate = %#v, want %#v", got, want)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"unknown field", map[string]any{"prompt": "x", "steps": 20}},
		{"missing required", map[string]any{"num_images": 2}},
		{"mistyped int", map[string]any{"prompt": "x", "num_images": "many"}},
		{"enum violation", map[string]any{"prompt": "x", "resolution": "4K"}},
		{"below minimum", map[string]any{"prompt": "x", "num_images": 0}},
		{"above maximum", map[string]any{"prompt": "x", "num_images": 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Validate(tt.raw, imageDefs); err == nil {
				t.Fatalf("Validate(%v) succeeded, want error", tt.raw)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		value    any
		declared string
		want     any
	}{
		{float64(7), "int", 7},
		{"2.5", "float", 2.5},
		{3, "float", 3.0},
		{"false", "bool", false},
		{[]any{"a", "b"}, "list<string>", []string{"a", "b"}},
		{42, "string", "42"},
	}
	for _, tt := range tests {
		got, err := Coerce(tt.value, tt.declared)
		if err != nil {
			t.Fatalf("Coerce(%v, %q) error = %v", tt.value, tt.declared, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("Coerce(%v, %q) = %#v, want %#v", tt.value, tt.declared, got, tt.want)
		}
	}
}
