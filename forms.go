package main

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldKind declares how raw input for a field is coerced.
type FieldKind int

const (
	FieldNumeric FieldKind = iota // free numeric input, unparseable -> 0
	FieldFlag                     // presence/absence coded as 0/1
	FieldChoice                   // enumerated string value
)

type FieldSpec struct {
	Name    string
	Label   string
	Kind    FieldKind
	Default float64
	Unit    string
	Choices []string // FieldChoice only
}

// IsFlag reports whether the field is a 0/1 presence flag, for templates.
func (f FieldSpec) IsFlag() bool {
	return f.Kind == FieldFlag
}

// AssessmentSchema defines the deterioration-risk input record. Every field
// has a default; the form is always complete and submits whole.
var AssessmentSchema = []FieldSpec{
	{Name: "age", Label: "Age", Kind: FieldNumeric, Default: 82, Unit: "years"},
	{Name: "heart_rate", Label: "Heart Rate", Kind: FieldNumeric, Default: 72, Unit: "bpm"},
	{Name: "systolic_bp", Label: "Systolic BP", Kind: FieldNumeric, Default: 118, Unit: "mmHg"},
	{Name: "temperature", Label: "Temperature", Kind: FieldNumeric, Default: 36.8, Unit: "°C"},
	{Name: "spo2", Label: "SpO₂", Kind: FieldNumeric, Default: 97, Unit: "%"},
	{Name: "mobility_score", Label: "Mobility Score", Kind: FieldNumeric, Default: 3, Unit: "0-4"},
	{Name: "chronic_conditions", Label: "Chronic Conditions", Kind: FieldNumeric, Default: 2},
	{Name: "recent_fall", Label: "Fall in last 30 days", Kind: FieldFlag, Default: 0},
	{Name: "confusion", Label: "New confusion", Kind: FieldFlag, Default: 0},
	{Name: "weight_loss", Label: "Unplanned weight loss", Kind: FieldFlag, Default: 0},
}

// FormState holds the current value of every schema field. Values are
// numeric throughout: flags are 0/1 integers toggled as a unit.
type FormState struct {
	values map[string]float64
}

// NewFormState returns a form populated with schema defaults.
func NewFormState() *FormState {
	f := &FormState{values: make(map[string]float64, len(AssessmentSchema))}
	for _, spec := range AssessmentSchema {
		f.values[spec.Name] = spec.Default
	}
	return f
}

// Change coerces raw input for a named field and stores it. Unparseable
// numeric input stores 0 rather than propagating NaN into a payload.
// Unknown field names are ignored.
func (f *FormState) Change(name, raw string) {
	spec, ok := findField(name)
	if !ok {
		return
	}
	switch spec.Kind {
	case FieldFlag:
		if raw == "1" || strings.EqualFold(raw, "on") || strings.EqualFold(raw, "true") {
			f.values[name] = 1
		} else {
			f.values[name] = 0
		}
	default:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			parsed = 0
		}
		f.values[name] = parsed
	}
}

// Toggle flips a 0/1 flag field as a unit. Non-flag fields are left alone.
func (f *FormState) Toggle(name string) {
	spec, ok := findField(name)
	if !ok || spec.Kind != FieldFlag {
		return
	}
	if f.values[name] == 0 {
		f.values[name] = 1
	} else {
		f.values[name] = 0
	}
}

// Value returns the current value for a field (0 if unknown).
func (f *FormState) Value(name string) float64 {
	return f.values[name]
}

// Payload serializes the full record for submission. No field is omitted.
func (f *FormState) Payload() map[string]float64 {
	out := make(map[string]float64, len(AssessmentSchema))
	for _, spec := range AssessmentSchema {
		out[spec.Name] = f.values[spec.Name]
	}
	return out
}

// Presets are named constant templates. ApplyPreset replaces the record
// wholesale, so two applications of the same preset yield identical forms.
var presets = map[string]map[string]float64{
	"stable": {
		"age": 82, "heart_rate": 72, "systolic_bp": 118, "temperature": 36.8,
		"spo2": 97, "mobility_score": 3, "chronic_conditions": 2,
		"recent_fall": 0, "confusion": 0, "weight_loss": 0,
	},
	"monitor": {
		"age": 86, "heart_rate": 88, "systolic_bp": 144, "temperature": 37.4,
		"spo2": 94, "mobility_score": 2, "chronic_conditions": 3,
		"recent_fall": 1, "confusion": 0, "weight_loss": 0,
	},
	"urgent": {
		"age": 89, "heart_rate": 112, "systolic_bp": 92, "temperature": 38.6,
		"spo2": 89, "mobility_score": 1, "chronic_conditions": 4,
		"recent_fall": 1, "confusion": 1, "weight_loss": 1,
	},
}

// PresetNames lists available presets in display order.
var PresetNames = []string{"stable", "monitor", "urgent"}

// ApplyPreset replaces every field atomically from the named template.
// Unknown preset names leave the form unchanged and return an error so the
// caller keeps its current record.
func (f *FormState) ApplyPreset(name string) error {
	tpl, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown preset '%s'", name)
	}
	next := make(map[string]float64, len(AssessmentSchema))
	for _, spec := range AssessmentSchema {
		if v, present := tpl[spec.Name]; present {
			next[spec.Name] = v
		} else {
			next[spec.Name] = spec.Default
		}
	}
	f.values = next
	return nil
}

func findField(name string) (FieldSpec, bool) {
	for _, spec := range AssessmentSchema {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}
