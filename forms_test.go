package main

import (
	"reflect"
	"testing"
)

func TestNewFormStateUsesDefaults(t *testing.T) {
	form := NewFormState()
	for _, spec := range AssessmentSchema {
		if got := form.Value(spec.Name); got != spec.Default {
			t.Errorf("field %s = %v, want default %v", spec.Name, got, spec.Default)
		}
	}
}

func TestChangeCoercesNumeric(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"99", 99},
		{"36.6", 36.6},
		{" 120 ", 120},
		{"-2", -2},
		{"abc", 0},      // unparseable coerces to zero, never NaN
		{"", 0},
		{"12x", 0},
	}
	for _, tt := range tests {
		form := NewFormState()
		form.Change("heart_rate", tt.raw)
		if got := form.Value("heart_rate"); got != tt.want {
			t.Errorf("Change(heart_rate, %q) stored %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestChangeFlagCoercion(t *testing.T) {
	form := NewFormState()

	form.Change("recent_fall", "1")
	if got := form.Value("recent_fall"); got != 1 {
		t.Errorf("flag after '1' = %v, want 1", got)
	}
	form.Change("recent_fall", "")
	if got := form.Value("recent_fall"); got != 0 {
		t.Errorf("flag after '' = %v, want 0", got)
	}
	form.Change("recent_fall", "on")
	if got := form.Value("recent_fall"); got != 1 {
		t.Errorf("flag after 'on' = %v, want 1", got)
	}
}

func TestToggleFlipsFlagsOnly(t *testing.T) {
	form := NewFormState()

	form.Toggle("confusion")
	if got := form.Value("confusion"); got != 1 {
		t.Errorf("toggled flag = %v, want 1", got)
	}
	form.Toggle("confusion")
	if got := form.Value("confusion"); got != 0 {
		t.Errorf("double-toggled flag = %v, want 0", got)
	}

	before := form.Value("heart_rate")
	form.Toggle("heart_rate")
	if got := form.Value("heart_rate"); got != before {
		t.Errorf("Toggle on numeric field changed value %v -> %v", before, got)
	}
}

func TestApplyPresetIdempotent(t *testing.T) {
	form := NewFormState()
	if err := form.ApplyPreset("stable"); err != nil {
		t.Fatalf("ApplyPreset(stable) failed: %v", err)
	}
	first := form.Payload()

	form.Change("heart_rate", "140")
	if err := form.ApplyPreset("stable"); err != nil {
		t.Fatalf("second ApplyPreset(stable) failed: %v", err)
	}
	second := form.Payload()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("preset not idempotent: first %v, second %v", first, second)
	}
}

func TestApplyPresetReplacesEveryField(t *testing.T) {
	form := NewFormState()
	if err := form.ApplyPreset("urgent"); err != nil {
		t.Fatalf("ApplyPreset(urgent) failed: %v", err)
	}
	payload := form.Payload()
	if len(payload) != len(AssessmentSchema) {
		t.Fatalf("payload has %d fields, want %d", len(payload), len(AssessmentSchema))
	}
	if payload["recent_fall"] != 1 || payload["confusion"] != 1 {
		t.Errorf("urgent preset flags = fall %v, confusion %v, want 1/1",
			payload["recent_fall"], payload["confusion"])
	}
	if payload["spo2"] != 89 {
		t.Errorf("urgent preset spo2 = %v, want 89", payload["spo2"])
	}
}

func TestApplyPresetUnknownKeepsForm(t *testing.T) {
	form := NewFormState()
	form.Change("heart_rate", "140")

	if err := form.ApplyPreset("nonsense"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if got := form.Value("heart_rate"); got != 140 {
		t.Errorf("unknown preset modified form: heart_rate = %v, want 140", got)
	}
}

func TestPayloadIncludesEveryField(t *testing.T) {
	payload := NewFormState().Payload()
	for _, spec := range AssessmentSchema {
		if _, ok := payload[spec.Name]; !ok {
			t.Errorf("payload missing field %s", spec.Name)
		}
	}
}

func TestEveryPresetCoversSchema(t *testing.T) {
	for _, name := range PresetNames {
		tpl, ok := presets[name]
		if !ok {
			t.Fatalf("preset %s missing from table", name)
		}
		for _, spec := range AssessmentSchema {
			if _, present := tpl[spec.Name]; !present {
				t.Errorf("preset %s missing field %s", name, spec.Name)
			}
		}
	}
}
