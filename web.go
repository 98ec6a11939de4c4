package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Server is the dashboard shell: it owns the per-view state that a browser
// tab held in the original single-page dashboard. One ward display per
// process is the operating model, so the state is a single mutex-guarded
// record rather than per-session.
type Server struct {
	cfg    Config
	db     *sql.DB
	remote *RemoteClient
	poller *Poller

	mu sync.Mutex

	form         *FormState
	singleBusy   bool
	singleResult *PredictionResult
	singleErr    string
	explanation  string

	batchBusy   bool
	batchResult *BatchResult
	batchErr    string
	threshold   float64

	liveFilter AlertLevel // AlertNone means "ALL"
	liveSort   string

	testOutcome string
	testOK      bool
	testDone    bool
}

func NewServer(cfg Config, db *sql.DB, remote *RemoteClient, poller *Poller) *Server {
	return &Server{
		cfg:        cfg,
		db:         db,
		remote:     remote,
		poller:     poller,
		form:       NewFormState(),
		threshold:  cfg.BatchThreshold,
		liveFilter: AlertNone,
		liveSort:   SortByScore,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/single", http.StatusFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Get("/single", s.handleSinglePage)
	r.Post("/single/predict", s.handleSinglePredict)
	r.Post("/single/preset", s.handleSinglePreset)
	r.Post("/single/field", s.handleSingleField)
	r.Post("/single/explain", s.handleSingleExplain)

	r.Get("/batch", s.handleBatchPage)
	r.Post("/batch/run", s.handleBatchRun)

	r.Get("/live", s.handleLivePage)
	r.Post("/live/refresh", s.handleLiveRefresh)
	r.Post("/live/auto", s.handleLiveAuto)

	r.Get("/history", s.handleHistoryPage)

	r.Get("/settings", s.handleSettingsPage)
	r.Post("/settings/save", s.handleSettingsSave)
	r.Post("/settings/test", s.handleSettingsTest)

	return r
}

// bannerStatus fetches model readiness for the top banner. An unreachable
// service renders as "not ready" with the error, never a broken page.
func (s *Server) bannerStatus(r *http.Request) (ModelStatus, string) {
	status, err := s.remote.Status(r.Context())
	if err != nil {
		return ModelStatus{Status: "not_ready"}, err.Error()
	}
	return status, ""
}

// --- Single assessment view ---

func (s *Server) handleSinglePage(w http.ResponseWriter, r *http.Request) {
	status, statusErr := s.bannerStatus(r)

	s.mu.Lock()
	data := singlePageData{
		basePageData: s.basePage("single", status, statusErr),
		Fields:       s.formFields(),
		Presets:      PresetNames,
		Busy:         s.singleBusy,
		Result:       s.singleResult,
		ErrMsg:       s.singleErr,
		Explanation:  s.explanation,
		CanExplain:   s.cfg.ExplainConfigured(),
	}
	s.mu.Unlock()

	renderPage(w, "single", data)
}

func (s *Server) handleSinglePredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.singleBusy {
		// One in-flight submission per view; re-submits are dropped.
		s.mu.Unlock()
		http.Redirect(w, r, "/single", http.StatusSeeOther)
		return
	}
	s.singleBusy = true
	s.singleErr = ""
	for _, spec := range AssessmentSchema {
		if spec.Kind == FieldFlag {
			// Unchecked checkboxes are absent from the posted form.
			s.form.Change(spec.Name, r.PostFormValue(spec.Name))
			continue
		}
		if raw := r.PostFormValue(spec.Name); raw != "" || r.PostForm.Has(spec.Name) {
			s.form.Change(spec.Name, raw)
		}
	}
	payload := s.form.Payload()
	s.mu.Unlock()

	result, err := s.remote.PredictSingle(r.Context(), payload)

	s.mu.Lock()
	s.singleBusy = false
	s.explanation = ""
	if err != nil {
		s.singleResult = nil
		s.singleErr = err.Error()
	} else {
		s.singleResult = &result
		s.singleErr = ""
	}
	s.mu.Unlock()

	if err == nil {
		s.recordSingle(payload, result)
	}
	http.Redirect(w, r, "/single", http.StatusSeeOther)
}

func (s *Server) recordSingle(payload map[string]float64, result PredictionResult) {
	encoded, _ := json.Marshal(payload)
	rec := AssessmentRecord{
		RunID:      uuid.NewString(),
		Kind:       "single",
		Payload:    string(encoded),
		RiskScore:  result.RiskScore,
		AlertLevel: string(result.Level()),
		Action:     result.RecommendedAction,
	}
	if err := InsertAssessmentRecord(s.db, rec); err != nil {
		log.Printf("history insert error: %v", err)
	}
}

func (s *Server) handleSinglePreset(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("preset")

	s.mu.Lock()
	if err := s.form.ApplyPreset(name); err != nil {
		log.Printf("preset error: %v", err)
	} else {
		// New input invalidates old output: never show a stale result
		// against a freshly applied template.
		s.singleResult = nil
		s.singleErr = ""
		s.explanation = ""
	}
	s.mu.Unlock()

	http.Redirect(w, r, "/single", http.StatusSeeOther)
}

// handleSingleField updates one field without a full submit, for callers
// that post individual edits rather than the whole form.
func (s *Server) handleSingleField(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("name")

	s.mu.Lock()
	s.form.Change(name, r.PostFormValue("value"))
	s.mu.Unlock()

	http.Redirect(w, r, "/single", http.StatusSeeOther)
}

func (s *Server) handleSingleExplain(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	result := s.singleResult
	payload := s.form.Payload()
	s.mu.Unlock()

	if result == nil {
		http.Redirect(w, r, "/single", http.StatusSeeOther)
		return
	}

	text, err := ExplainResult(r.Context(), s.cfg, payload, *result)

	s.mu.Lock()
	if err != nil {
		s.explanation = ""
		s.singleErr = err.Error()
	} else {
		s.explanation = text
		s.singleErr = ""
	}
	s.mu.Unlock()

	http.Redirect(w, r, "/single", http.StatusSeeOther)
}

// --- Batch view ---

func (s *Server) handleBatchPage(w http.ResponseWriter, r *http.Request) {
	status, statusErr := s.bannerStatus(r)

	s.mu.Lock()
	data := batchPageData{
		basePageData: s.basePage("batch", status, statusErr),
		Busy:         s.batchBusy,
		Result:       s.batchResult,
		ErrMsg:       s.batchErr,
		Threshold:    s.threshold,
		Levels:       AllAlertLevels,
	}
	s.mu.Unlock()

	renderPage(w, "batch", data)
}

func (s *Server) handleBatchRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(20 << 20); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}

	threshold := clampThreshold(r.PostFormValue("threshold"))
	folderPath := r.PostFormValue("folder_path")
	file, header, fileErr := r.FormFile("file")

	s.mu.Lock()
	if s.batchBusy {
		s.mu.Unlock()
		http.Redirect(w, r, "/batch", http.StatusSeeOther)
		return
	}
	if fileErr != nil && folderPath == "" {
		// Submission requires a file or a folder path; nothing to run.
		s.batchErr = "Select a spreadsheet or enter a folder path first."
		s.mu.Unlock()
		http.Redirect(w, r, "/batch", http.StatusSeeOther)
		return
	}
	s.batchBusy = true
	s.batchErr = ""
	s.threshold = threshold
	s.mu.Unlock()

	var result BatchResult
	var err error
	var source string
	if fileErr == nil {
		defer file.Close()
		source = header.Filename
		result, err = s.remote.PredictBatchFile(r.Context(), header.Filename, file, threshold)
	} else {
		source = folderPath
		result, err = s.remote.PredictFolder(r.Context(), folderPath, threshold)
	}

	s.mu.Lock()
	s.batchBusy = false
	if err != nil {
		s.batchResult = nil
		s.batchErr = err.Error()
	} else {
		sorted := result
		sorted.Flagged = SortRows(result.Flagged, SortByScore)
		s.batchResult = &sorted
		s.batchErr = ""
	}
	s.mu.Unlock()

	if err == nil {
		runID := uuid.NewString()
		if dbErr := InsertAssessmentRecord(s.db, batchHistoryRecord(runID, source, result)); dbErr != nil {
			log.Printf("history insert error: %v", dbErr)
		}
		log.Printf("batch run=%s source=%s %s", runID, source, FormatBatchSummary(result))
	}
	http.Redirect(w, r, "/batch", http.StatusSeeOther)
}

// clampThreshold parses the slider value and bounds it to [0.20, 0.80];
// garbage input falls back to the midpoint.
func clampThreshold(raw string) float64 {
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0.5
	}
	if threshold < 0.2 {
		return 0.2
	}
	if threshold > 0.8 {
		return 0.8
	}
	return threshold
}

// --- Live view ---

func (s *Server) handleLivePage(w http.ResponseWriter, r *http.Request) {
	status, statusErr := s.bannerStatus(r)

	s.mu.Lock()
	if r.URL.Query().Has("level") {
		s.liveFilter = parseFilter(r.URL.Query().Get("level"))
	}
	if key := r.URL.Query().Get("sort"); key != "" {
		s.liveSort = key
	}
	filter := s.liveFilter
	sortKey := s.liveSort
	s.mu.Unlock()

	rows, fetchedAt, hasData := s.poller.Snapshot()
	visible := SortRows(FilterByLevel(rows, filter), sortKey)

	data := livePageData{
		basePageData: s.basePage("live", status, statusErr),
		Rows:         visible,
		TotalRows:    len(rows),
		HasData:      hasData,
		FetchedAt:    fetchedAt,
		UrgentCount:  s.poller.UrgentCount(),
		AutoOn:       s.poller.AutoOn(),
		Filter:       filter,
		SortKey:      sortKey,
		Levels:       AllAlertLevels,
		RefreshSecs:  s.cfg.RefreshSeconds,
	}
	renderPage(w, "live", data)
}

// parseFilter maps the query value to a filter level; "ALL", empty, and
// unknown values mean no filter.
func parseFilter(raw string) AlertLevel {
	if raw == "" || raw == "ALL" {
		return AlertNone
	}
	return ParseAlertLevel(raw)
}

func (s *Server) handleLiveRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.poller.Refresh(r.Context()); err != nil {
		// Same policy as auto-refresh: keep showing the last good list.
		log.Printf("live refresh error (keeping last data): %v", err)
	}
	http.Redirect(w, r, "/live", http.StatusSeeOther)
}

func (s *Server) handleLiveAuto(w http.ResponseWriter, r *http.Request) {
	if r.PostFormValue("enabled") == "1" {
		s.poller.StartAuto(s.cfg.RefreshInterval())
		log.Printf("auto-refresh on interval=%s", s.cfg.RefreshInterval())
	} else {
		s.poller.StopAuto()
		log.Printf("auto-refresh off")
	}
	http.Redirect(w, r, "/live", http.StatusSeeOther)
}

// --- History view ---

func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	status, statusErr := s.bannerStatus(r)

	records, err := GetRecentAssessments(s.db, 100)
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	data := historyPageData{
		basePageData: s.basePage("history", status, statusErr),
		Records:      records,
		ErrMsg:       errMsg,
	}
	renderPage(w, "history", data)
}

// --- Settings view ---

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	current, err := GetSetting(s.db, serverURLKey, s.cfg.DefaultServerURL)
	if err != nil {
		log.Printf("settings read error: %v", err)
		current = s.cfg.DefaultServerURL
	}

	s.mu.Lock()
	data := settingsPageData{
		basePageData: s.basePage("settings", ModelStatus{}, ""),
		CurrentURL:   current,
		DefaultURL:   s.cfg.DefaultServerURL,
		TestDone:     s.testDone,
		TestOK:       s.testOK,
		TestOutcome:  s.testOutcome,
	}
	s.mu.Unlock()

	data.SkipBanner = true
	renderPage(w, "settings", data)
}

func (s *Server) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	url := r.PostFormValue("server_url")
	if url == "" {
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}
	if err := SaveSetting(s.db, serverURLKey, url); err != nil {
		log.Printf("settings save error: %v", err)
	} else {
		log.Printf("settings saved server_url=%s", url)
	}

	// Every remote call re-reads the setting, so the redirect is the whole
	// "reload": the next call already targets the new base.
	s.mu.Lock()
	s.testDone = false
	s.testOutcome = ""
	s.mu.Unlock()
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

func (s *Server) handleSettingsTest(w http.ResponseWriter, r *http.Request) {
	url := r.PostFormValue("server_url")

	status, err := TestConnection(r.Context(), url)

	s.mu.Lock()
	s.testDone = true
	if err != nil {
		s.testOK = false
		s.testOutcome = err.Error()
	} else {
		s.testOK = true
		s.testOutcome = fmt.Sprintf("Connected: model %s (AUC %.3f)", status.Status, status.AUCROC)
	}
	s.mu.Unlock()

	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

// formFields snapshots the current form values for rendering. Caller holds
// s.mu.
func (s *Server) formFields() []fieldView {
	out := make([]fieldView, 0, len(AssessmentSchema))
	for _, spec := range AssessmentSchema {
		out = append(out, fieldView{
			Spec:  spec,
			Value: s.form.Value(spec.Name),
		})
	}
	return out
}

func (s *Server) basePage(tab string, status ModelStatus, statusErr string) basePageData {
	return basePageData{
		WardName:  s.cfg.WardName,
		ActiveTab: tab,
		Status:    status,
		StatusErr: statusErr,
	}
}
