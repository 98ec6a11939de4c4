package main

import "math"

// RiskStyle holds the visual tokens for one alert level. The same tokens
// drive the result card, the batch cards, and the live list, so risk
// semantics live in exactly one place.
type RiskStyle struct {
	Fill   string
	Stroke string
	Glow   string
	Label  string
	Icon   string
}

// StyleFor is total over AlertLevel: every variant, including AlertNone and
// any value that fell through ParseAlertLevel, resolves to a defined style.
func StyleFor(level AlertLevel) RiskStyle {
	switch level {
	case AlertLow:
		return RiskStyle{
			Fill:   "#e8f5e9",
			Stroke: "#2e7d32",
			Glow:   "rgba(46,125,50,0.35)",
			Label:  "Low Risk",
			Icon:   "✓",
		}
	case AlertMedium:
		return RiskStyle{
			Fill:   "#fff8e1",
			Stroke: "#f9a825",
			Glow:   "rgba(249,168,37,0.35)",
			Label:  "Medium Risk",
			Icon:   "◐",
		}
	case AlertHigh:
		return RiskStyle{
			Fill:   "#fff3e0",
			Stroke: "#ef6c00",
			Glow:   "rgba(239,108,0,0.40)",
			Label:  "High Risk",
			Icon:   "▲",
		}
	case AlertUrgent:
		return RiskStyle{
			Fill:   "#ffebee",
			Stroke: "#c62828",
			Glow:   "rgba(198,40,40,0.50)",
			Label:  "Urgent",
			Icon:   "⚠",
		}
	}
	return RiskStyle{
		Fill:   "#eceff1",
		Stroke: "#78909c",
		Glow:   "rgba(120,144,156,0.25)",
		Label:  "No Assessment",
		Icon:   "·",
	}
}

// Sub-score band thresholds for secondary clinical coloring, distinct from
// the primary alert level.
const (
	bandMediumFloor = 0.40
	bandHighFloor   = 0.70
)

// ScoreBand maps a clinical sub-score onto the three-way color band:
// low < 0.40, medium in [0.40, 0.70), high >= 0.70.
func ScoreBand(score float64) AlertLevel {
	switch {
	case score >= bandHighFloor:
		return AlertHigh
	case score >= bandMediumFloor:
		return AlertMedium
	}
	return AlertLow
}

// gaugeCircumference is the dash length of the ring gauge's SVG circle
// (radius 42, 2*pi*r rounded to one decimal).
const gaugeCircumference = 263.9

// GaugeSweep converts a risk score in [0,1] to the stroke length of the ring
// gauge arc. Out-of-range and NaN scores clamp to the neutral empty ring at
// zero sweep; 1 fills the full circumference. Monotonic in score.
func GaugeSweep(score float64) float64 {
	if math.IsNaN(score) || score <= 0 {
		return 0
	}
	if score >= 1 {
		return gaugeCircumference
	}
	return score * gaugeCircumference
}
