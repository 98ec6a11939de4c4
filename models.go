package main

import (
	"time"
)

// AlertLevel is the categorical severity classification returned by the
// prediction service, distinct from the raw risk score.
type AlertLevel string

const (
	AlertLow    AlertLevel = "LOW"
	AlertMedium AlertLevel = "MEDIUM"
	AlertHigh   AlertLevel = "HIGH"
	AlertUrgent AlertLevel = "URGENT"
	AlertNone   AlertLevel = "NONE"
)

// AllAlertLevels lists the real severity levels in ascending order.
// AlertNone is the fallback for unknown/missing values and is not included.
var AllAlertLevels = []AlertLevel{AlertLow, AlertMedium, AlertHigh, AlertUrgent}

// ParseAlertLevel maps a server-provided level string to the closed enum.
// Anything unrecognised (including empty) resolves to AlertNone.
func ParseAlertLevel(s string) AlertLevel {
	switch AlertLevel(s) {
	case AlertLow, AlertMedium, AlertHigh, AlertUrgent:
		return AlertLevel(s)
	}
	return AlertNone
}

// Rank orders levels by severity: NONE < LOW < MEDIUM < HIGH < URGENT.
func (l AlertLevel) Rank() int {
	switch l {
	case AlertLow:
		return 1
	case AlertMedium:
		return 2
	case AlertHigh:
		return 3
	case AlertUrgent:
		return 4
	}
	return 0
}

// ModelStatus is the response of GET /api/status on the prediction service.
type ModelStatus struct {
	Status       string  `json:"status"` // "ready" or "not_ready"
	AUCROC       float64 `json:"auc_roc"`
	TrainedAt    string  `json:"trained_at"`
	FeatureCount int     `json:"feature_count"`
}

func (s ModelStatus) Ready() bool {
	return s.Status == "ready"
}

// PredictionResult is one single-assessment outcome. Error and the value
// fields are mutually exclusive: a populated Error means the rest is unset.
type PredictionResult struct {
	RiskScore         float64            `json:"risk_score"`
	AlertLevel        string             `json:"alert_level"`
	AlertLabel        string             `json:"alert_label"`
	RecommendedAction string             `json:"recommended_action"`
	SubScores         map[string]float64 `json:"sub_scores"`
	ModelAUC          float64            `json:"model_auc"`
	TrainedAt         string             `json:"trained_at"`
	Error             string             `json:"error,omitempty"`
}

func (r PredictionResult) Level() AlertLevel {
	return ParseAlertLevel(r.AlertLevel)
}

// LocalTrainedAt converts the service's trained_at timestamp (RFC 3339) to
// local display time. Unparseable input is returned verbatim so the UI
// degrades to the raw string rather than an empty cell.
func (r PredictionResult) LocalTrainedAt() string {
	return localDisplayTime(r.TrainedAt)
}

func localDisplayTime(ts string) string {
	if ts == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return parsed.Local().Format("Jan 2 2006 15:04")
}

// Summary is one patient/resident row, used by both the batch table and the
// live list. ResidentID may be absent; DisplayID renders the placeholder.
type Summary struct {
	ResidentID   string  `json:"resident_id"`
	Room         string  `json:"room"`
	RiskScore    float64 `json:"risk_score"`
	AlertLevel   string  `json:"alert_level"`
	LastAssessed string  `json:"last_assessed"`
}

const missingIDGlyph = "—"

// DisplayID never returns an empty string; a row without an identifier
// renders the placeholder glyph instead.
func (s Summary) DisplayID() string {
	if s.ResidentID == "" {
		return missingIDGlyph
	}
	return s.ResidentID
}

func (s Summary) Level() AlertLevel {
	return ParseAlertLevel(s.AlertLevel)
}

func (s Summary) LocalLastAssessed() string {
	return localDisplayTime(s.LastAssessed)
}

// BatchResult is the outcome of a bulk prediction run.
type BatchResult struct {
	Breakdown map[string]int `json:"breakdown"` // alert level -> count
	Total     int            `json:"total"`
	Flagged   []Summary      `json:"flagged"`
	Threshold float64        `json:"threshold"`
	Error     string         `json:"error,omitempty"`
}

// CountFor returns the breakdown count for a level, defaulting to zero when
// the level is absent from the server's mapping.
func (b BatchResult) CountFor(level AlertLevel) int {
	if b.Breakdown == nil {
		return 0
	}
	return b.Breakdown[string(level)]
}

// PercentFor returns the share of the total at a level, rounded to the
// nearest integer percent. A zero total yields 0, not a division error.
func (b BatchResult) PercentFor(level AlertLevel) int {
	if b.Total <= 0 {
		return 0
	}
	return int(float64(b.CountFor(level))/float64(b.Total)*100 + 0.5)
}

// alertsResponse is the wire shape of GET /api/alerts/current. The service
// has used both "residents" and "patients" as the collection key.
type alertsResponse struct {
	Residents []Summary `json:"residents"`
	Patients  []Summary `json:"patients"`
}

// Rows returns whichever collection the service populated.
func (a alertsResponse) Rows() []Summary {
	if len(a.Residents) > 0 {
		return a.Residents
	}
	return a.Patients
}
