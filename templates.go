package main

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"
)

type basePageData struct {
	WardName   string
	ActiveTab  string
	Status     ModelStatus
	StatusErr  string
	SkipBanner bool
}

type fieldView struct {
	Spec  FieldSpec
	Value float64
}

type singlePageData struct {
	basePageData
	Fields      []fieldView
	Presets     []string
	Busy        bool
	Result      *PredictionResult
	ErrMsg      string
	Explanation string
	CanExplain  bool
}

type batchPageData struct {
	basePageData
	Busy      bool
	Result    *BatchResult
	ErrMsg    string
	Threshold float64
	Levels    []AlertLevel
}

type livePageData struct {
	basePageData
	Rows        []Summary
	TotalRows   int
	HasData     bool
	FetchedAt   time.Time
	UrgentCount int
	AutoOn      bool
	Filter      AlertLevel
	SortKey     string
	Levels      []AlertLevel
	RefreshSecs int
}

type historyPageData struct {
	basePageData
	Records []AssessmentRecord
	ErrMsg  string
}

type settingsPageData struct {
	basePageData
	CurrentURL  string
	DefaultURL  string
	TestDone    bool
	TestOK      bool
	TestOutcome string
}

var pageTemplates = template.Must(template.New("pages").Funcs(template.FuncMap{
	"style": StyleFor,
	"sweep": GaugeSweep,
	"band":  ScoreBand,
	"pct": func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100)
	},
	"timefmt": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Local().Format("Jan 2 15:04:05")
	},
}).Parse(pageHTML))

// renderPage executes a view into a buffer first so a template failure
// produces a clean 500 instead of a half-written page.
func renderPage(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("render %s error: %v", name, err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

const pageHTML = `
{{define "head"}}<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.WardName}}</title>
<style>
:root { --bg:#f5f7f8; --paper:#fff; --text:#263238; --muted:#78909c; --line:#e0e4e7; --accent:#00695c; }
* { box-sizing:border-box; }
body { margin:0; background:var(--bg); color:var(--text); font-family:-apple-system,"Segoe UI",Roboto,Helvetica,Arial,sans-serif; font-size:15px; line-height:1.45; }
a { color:var(--accent); text-decoration:none; }
nav { background:var(--paper); border-bottom:1px solid var(--line); display:flex; gap:.25rem; padding:.5rem 1rem; align-items:center; }
nav .brand { font-weight:700; margin-right:1rem; }
nav a { padding:.4rem .8rem; border-radius:6px; }
nav a.active { background:var(--accent); color:#fff; }
main { max-width:1100px; margin:0 auto; padding:1rem; }
.banner { display:flex; gap:1rem; align-items:center; background:var(--paper); border:1px solid var(--line); border-radius:8px; padding:.6rem 1rem; margin-bottom:1rem; font-size:.875rem; }
.banner .dot { width:10px; height:10px; border-radius:50%; }
.card { background:var(--paper); border:1px solid var(--line); border-radius:8px; padding:1rem; margin-bottom:1rem; }
.error { background:#ffebee; border:1px solid #c62828; color:#c62828; border-radius:8px; padding:.6rem 1rem; margin-bottom:1rem; }
.urgent-banner { background:#c62828; color:#fff; border-radius:8px; padding:.75rem 1rem; margin-bottom:1rem; font-weight:700; }
.muted { color:var(--muted); font-size:.85rem; }
.grid { display:grid; grid-template-columns:repeat(auto-fit,minmax(220px,1fr)); gap:.75rem; }
.cards { display:grid; grid-template-columns:repeat(auto-fit,minmax(140px,1fr)); gap:.75rem; margin-bottom:1rem; }
.stat { border-radius:8px; padding:.75rem; text-align:center; border:1px solid var(--line); }
.stat .value { font-size:1.5rem; font-weight:700; }
.stat .label { font-size:.75rem; text-transform:uppercase; }
table { width:100%; border-collapse:collapse; font-size:.875rem; }
th, td { padding:.5rem .6rem; text-align:left; border-bottom:1px solid var(--line); }
.chip { display:inline-block; padding:.1rem .5rem; border-radius:999px; font-size:.75rem; font-weight:700; border:1px solid; }
label { display:block; font-size:.8rem; color:var(--muted); margin-bottom:.15rem; }
input[type=number], input[type=text], input[type=url] { width:100%; padding:.4rem .5rem; border:1px solid var(--line); border-radius:6px; }
button { background:var(--accent); color:#fff; border:0; border-radius:6px; padding:.5rem 1rem; cursor:pointer; }
button.secondary { background:var(--paper); color:var(--text); border:1px solid var(--line); }
.actions { display:flex; gap:.5rem; margin-top:.75rem; flex-wrap:wrap; }
.gauge-wrap { display:flex; gap:1.5rem; align-items:center; }
</style>
</head>
<body>
<nav>
  <span class="brand">{{.WardName}}</span>
  <a href="/single" {{if eq .ActiveTab "single"}}class="active"{{end}}>Assessment</a>
  <a href="/batch" {{if eq .ActiveTab "batch"}}class="active"{{end}}>Batch</a>
  <a href="/live" {{if eq .ActiveTab "live"}}class="active"{{end}}>Live Alerts</a>
  <a href="/history" {{if eq .ActiveTab "history"}}class="active"{{end}}>History</a>
  <a href="/settings" {{if eq .ActiveTab "settings"}}class="active"{{end}}>Settings</a>
</nav>
<main>
{{if not .SkipBanner}}
<div class="banner">
  {{if .Status.Ready}}
    <span class="dot" style="background:#2e7d32"></span>
    <span>Model ready · AUC {{printf "%.3f" .Status.AUCROC}} · {{.Status.FeatureCount}} features</span>
    {{if .Status.TrainedAt}}<span class="muted">trained {{.Status.TrainedAt}}</span>{{end}}
  {{else}}
    <span class="dot" style="background:#c62828"></span>
    <span>Prediction service not ready</span>
    {{if .StatusErr}}<span class="muted">{{.StatusErr}}</span>{{end}}
  {{end}}
</div>
{{end}}
{{end}}

{{define "foot"}}</main></body></html>{{end}}

{{define "single"}}{{template "head" .}}
{{if .ErrMsg}}<div class="error">{{.ErrMsg}}</div>{{end}}
<div class="card">
  <form method="post" action="/single/preset" class="actions" style="margin-top:0">
    {{range .Presets}}<button class="secondary" name="preset" value="{{.}}">{{.}} preset</button>{{end}}
  </form>
</div>
<form method="post" action="/single/predict">
<div class="card">
  <div class="grid">
  {{range .Fields}}
    <div>
      <label for="{{.Spec.Name}}">{{.Spec.Label}}{{if .Spec.Unit}} ({{.Spec.Unit}}){{end}}</label>
      {{if .Spec.IsFlag}}
        <input type="checkbox" id="{{.Spec.Name}}" name="{{.Spec.Name}}" value="1" {{if .Value}}checked{{end}}>
      {{else}}
        <input type="number" step="any" id="{{.Spec.Name}}" name="{{.Spec.Name}}" value="{{.Value}}">
      {{end}}
    </div>
  {{end}}
  </div>
  <div class="actions">
    <button type="submit" {{if .Busy}}disabled{{end}}>{{if .Busy}}Assessing…{{else}}Run Assessment{{end}}</button>
  </div>
</div>
</form>
{{if .Result}}
{{$style := style .Result.Level}}
<div class="card" style="background:{{$style.Fill}}; border-color:{{$style.Stroke}}; box-shadow:0 0 12px {{$style.Glow}}">
  <div class="gauge-wrap">
    <svg width="110" height="110" viewBox="0 0 100 100">
      <circle cx="50" cy="50" r="42" fill="none" stroke="#eceff1" stroke-width="9"/>
      <circle cx="50" cy="50" r="42" fill="none" stroke="{{$style.Stroke}}" stroke-width="9"
              stroke-dasharray="{{printf "%.1f" (sweep .Result.RiskScore)}} 263.9"
              stroke-linecap="round" transform="rotate(-90 50 50)"/>
      <text x="50" y="55" text-anchor="middle" font-size="18" font-weight="700" fill="{{$style.Stroke}}">{{pct .Result.RiskScore}}</text>
    </svg>
    <div>
      <div><span class="chip" style="color:{{$style.Stroke}}; border-color:{{$style.Stroke}}">{{$style.Icon}} {{$style.Label}}</span></div>
      <p>{{.Result.RecommendedAction}}</p>
      <p class="muted">Model AUC {{printf "%.3f" .Result.ModelAUC}}{{if .Result.TrainedAt}} · trained {{.Result.LocalTrainedAt}}{{end}}</p>
    </div>
  </div>
  {{if .Result.SubScores}}
  <table>
    <thead><tr><th>Component</th><th>Score</th></tr></thead>
    <tbody>
    {{range $name, $score := .Result.SubScores}}
      {{$bandStyle := style (band $score)}}
      <tr><td>{{$name}}</td><td style="color:{{$bandStyle.Stroke}}; font-weight:700">{{pct $score}}</td></tr>
    {{end}}
    </tbody>
  </table>
  {{end}}
  {{if .CanExplain}}
  <form method="post" action="/single/explain" class="actions">
    <button class="secondary" type="submit">Explain this result</button>
  </form>
  {{end}}
  {{if .Explanation}}<p class="muted">{{.Explanation}}</p>{{end}}
</div>
{{end}}
{{template "foot" .}}{{end}}

{{define "batch"}}{{template "head" .}}
{{if .ErrMsg}}<div class="error">{{.ErrMsg}}</div>{{end}}
<form method="post" action="/batch/run" enctype="multipart/form-data">
<div class="card">
  <div class="grid">
    <div>
      <label for="file">Assessment spreadsheet</label>
      <input type="file" id="file" name="file">
    </div>
    <div>
      <label for="folder_path">…or server folder path</label>
      <input type="text" id="folder_path" name="folder_path" placeholder="/data/assessments">
    </div>
    <div>
      <label for="threshold">Flagging threshold ({{printf "%.2f" .Threshold}})</label>
      <input type="range" id="threshold" name="threshold" min="0.2" max="0.8" step="0.05" value="{{printf "%.2f" .Threshold}}">
    </div>
  </div>
  <div class="actions">
    <button type="submit" {{if .Busy}}disabled{{end}}>{{if .Busy}}Running…{{else}}Run Batch{{end}}</button>
  </div>
</div>
</form>
{{if .Result}}
<div class="cards">
  {{$result := .Result}}
  {{range .Levels}}
    {{$style := style .}}
    <div class="stat" style="background:{{$style.Fill}}; border-color:{{$style.Stroke}}">
      <div class="value" style="color:{{$style.Stroke}}">{{$result.CountFor .}}</div>
      <div class="label" style="color:{{$style.Stroke}}">{{$style.Label}} · {{$result.PercentFor .}}%</div>
    </div>
  {{end}}
</div>
<div class="card">
  <h3>Flagged above {{printf "%.2f" .Result.Threshold}} ({{len .Result.Flagged}} of {{.Result.Total}})</h3>
  <table>
    <thead><tr><th>Resident</th><th>Room</th><th>Risk</th><th>Level</th><th>Last Assessed</th></tr></thead>
    <tbody>
    {{range .Result.Flagged}}
      {{$style := style .Level}}
      <tr>
        <td>{{.DisplayID}}</td>
        <td>{{.Room}}</td>
        <td style="color:{{$style.Stroke}}; font-weight:700">{{pct .RiskScore}}</td>
        <td><span class="chip" style="color:{{$style.Stroke}}; border-color:{{$style.Stroke}}">{{$style.Icon}} {{$style.Label}}</span></td>
        <td class="muted">{{.LocalLastAssessed}}</td>
      </tr>
    {{end}}
    </tbody>
  </table>
</div>
{{end}}
{{template "foot" .}}{{end}}

{{define "live"}}{{template "head" .}}
{{if gt .UrgentCount 0}}
<div class="urgent-banner">⚠ {{.UrgentCount}} resident(s) need attention now</div>
{{end}}
<div class="card">
  <div class="actions" style="margin-top:0">
    <form method="post" action="/live/refresh"><button class="secondary" type="submit">Refresh now</button></form>
    <form method="post" action="/live/auto">
      {{if .AutoOn}}
        <input type="hidden" name="enabled" value="0">
        <button type="submit">Auto-refresh: on ({{.RefreshSecs}}s), turn off</button>
      {{else}}
        <input type="hidden" name="enabled" value="1">
        <button class="secondary" type="submit">Auto-refresh: off, turn on</button>
      {{end}}
    </form>
    <span class="muted">Last update: {{timefmt .FetchedAt}}</span>
  </div>
  <div class="actions">
    <span class="muted">Filter:</span>
    <a href="/live?level=ALL" {{if eq .Filter "NONE"}}style="font-weight:700"{{end}}>ALL</a>
    {{$active := .Filter}}
    {{range .Levels}}<a href="/live?level={{.}}" {{if eq . $active}}style="font-weight:700"{{end}}>{{.}}</a>{{end}}
    <span class="muted">Sort:</span>
    <a href="/live?sort=score">score</a>
    <a href="/live?sort=level">level</a>
    <a href="/live?sort=id">resident</a>
  </div>
</div>
<div class="card">
  {{if not .HasData}}
    <p class="muted">No data yet. The first fetch runs at startup; refresh to retry.</p>
  {{else}}
  <p class="muted">Showing {{len .Rows}} of {{.TotalRows}}</p>
  <table>
    <thead><tr><th>Resident</th><th>Room</th><th>Risk</th><th>Level</th><th>Last Assessed</th></tr></thead>
    <tbody>
    {{range .Rows}}
      {{$style := style .Level}}
      <tr>
        <td>{{.DisplayID}}</td>
        <td>{{.Room}}</td>
        <td style="color:{{$style.Stroke}}; font-weight:700">{{pct .RiskScore}}</td>
        <td><span class="chip" style="color:{{$style.Stroke}}; border-color:{{$style.Stroke}}">{{$style.Icon}} {{$style.Label}}</span></td>
        <td class="muted">{{.LocalLastAssessed}}</td>
      </tr>
    {{end}}
    </tbody>
  </table>
  {{end}}
</div>
{{template "foot" .}}{{end}}

{{define "history"}}{{template "head" .}}
{{if .ErrMsg}}<div class="error">{{.ErrMsg}}</div>{{end}}
<div class="card">
  <h3>Recent assessments</h3>
  {{if not .Records}}<p class="muted">Nothing submitted yet.</p>{{else}}
  <table>
    <thead><tr><th>When</th><th>Kind</th><th>Risk</th><th>Level</th><th>Action</th></tr></thead>
    <tbody>
    {{range .Records}}
      {{$style := style .Level}}
      <tr>
        <td class="muted">{{timefmt .SubmittedAt}}</td>
        <td>{{.Kind}}</td>
        <td style="color:{{$style.Stroke}}; font-weight:700">{{pct .RiskScore}}</td>
        <td><span class="chip" style="color:{{$style.Stroke}}; border-color:{{$style.Stroke}}">{{$style.Icon}} {{$style.Label}}</span></td>
        <td>{{.Action}}</td>
      </tr>
    {{end}}
    </tbody>
  </table>
  {{end}}
</div>
{{template "foot" .}}{{end}}

{{define "settings"}}{{template "head" .}}
<div class="card">
  <h3>Prediction service</h3>
  <form method="post" action="/settings/save">
    <label for="server_url">Base URL</label>
    <input type="url" id="server_url" name="server_url" value="{{.CurrentURL}}">
    <p class="muted">Default: {{.DefaultURL}}. Saved changes apply from the next call.</p>
    <div class="actions">
      <button type="submit">Save</button>
      <button class="secondary" type="submit" formaction="/settings/test">Test connection</button>
    </div>
  </form>
  {{if .TestDone}}
    {{if .TestOK}}
      <p style="color:#2e7d32; font-weight:700">✓ {{.TestOutcome}}</p>
    {{else}}
      <p style="color:#c62828; font-weight:700">✗ {{.TestOutcome}}</p>
    {{end}}
  {{end}}
</div>
{{template "foot" .}}{{end}}
`
