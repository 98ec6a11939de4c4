package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// serverURLKey is the fixed settings key holding the prediction service base
// URL. It is read back on every outbound call, never cached, so a saved
// change takes effect on the next call.
const serverURLKey = "server_url"

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS assessment_history (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id       TEXT NOT NULL DEFAULT '',
		kind         TEXT NOT NULL DEFAULT 'single',
		payload      TEXT NOT NULL DEFAULT '',
		risk_score   REAL NOT NULL DEFAULT 0,
		alert_level  TEXT NOT NULL DEFAULT '',
		action       TEXT NOT NULL DEFAULT '',
		submitted_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_history_submitted_at ON assessment_history(submitted_at);
	CREATE INDEX IF NOT EXISTS idx_history_level ON assessment_history(alert_level);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// GetSetting returns the stored value for key, or fallback when the key is
// absent.
func GetSetting(db *sql.DB, key, fallback string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	return value, nil
}

func SaveSetting(db *sql.DB, key, value string) error {
	_, err := db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// AssessmentRecord is one submitted prediction kept for the history view.
type AssessmentRecord struct {
	ID          int64
	RunID       string
	Kind        string // "single" or "batch"
	Payload     string // submitted record as JSON
	RiskScore   float64
	AlertLevel  string
	Action      string
	SubmittedAt time.Time
}

func (a AssessmentRecord) Level() AlertLevel {
	return ParseAlertLevel(a.AlertLevel)
}

func InsertAssessmentRecord(db *sql.DB, rec AssessmentRecord) error {
	_, err := db.Exec(
		`INSERT INTO assessment_history (run_id, kind, payload, risk_score, alert_level, action)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Kind, rec.Payload, rec.RiskScore, rec.AlertLevel, rec.Action,
	)
	return err
}

func GetRecentAssessments(db *sql.DB, limit int) ([]AssessmentRecord, error) {
	rows, err := db.Query(
		`SELECT id, run_id, kind, payload, risk_score, alert_level, action, submitted_at
		 FROM assessment_history
		 ORDER BY submitted_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssessmentRecord
	for rows.Next() {
		var rec AssessmentRecord
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Kind, &rec.Payload,
			&rec.RiskScore, &rec.AlertLevel, &rec.Action, &rec.SubmittedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
