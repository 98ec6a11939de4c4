package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
)

// apiPrefix is prepended to every path on the prediction service.
const apiPrefix = "/api"

// RemoteClient wraps all outbound calls to the prediction service. Every
// failure mode (transport error, non-2xx status, unparseable body, or a
// business-level error field in an otherwise successful response) is
// normalized into a single error carrying a human-readable message, so call
// sites only ever branch on err != nil.
type RemoteClient struct {
	db         *sql.DB
	defaultURL string
}

func NewRemoteClient(db *sql.DB, defaultURL string) *RemoteClient {
	return &RemoteClient{db: db, defaultURL: defaultURL}
}

// BaseURL resolves the active base URL by reading the persisted setting on
// every call, so a saved settings change affects the next request without a
// restart.
func (c *RemoteClient) BaseURL() string {
	base, err := GetSetting(c.db, serverURLKey, c.defaultURL)
	if err != nil {
		log.Printf("remote settings read error, using default: %v", err)
		return strings.TrimRight(c.defaultURL, "/")
	}
	return strings.TrimRight(base, "/")
}

// Status fetches model readiness and metadata.
func (c *RemoteClient) Status(ctx context.Context) (ModelStatus, error) {
	var status ModelStatus
	err := c.getJSON(ctx, "/status", &status)
	return status, err
}

// PredictSingle submits one full assessment record.
func (c *RemoteClient) PredictSingle(ctx context.Context, payload map[string]float64) (PredictionResult, error) {
	var result PredictionResult
	if err := c.postJSON(ctx, "/predict/single", payload, &result); err != nil {
		return PredictionResult{}, err
	}
	if result.Error != "" {
		return PredictionResult{}, fmt.Errorf("%s", result.Error)
	}
	return result, nil
}

// PredictBatchFile uploads a spreadsheet plus the flagging threshold as a
// multipart request. The server decides the cutoff; no local re-thresholding.
func (c *RemoteClient) PredictBatchFile(ctx context.Context, filename string, file io.Reader, threshold float64) (BatchResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return BatchResult{}, fmt.Errorf("preparing upload: %v", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return BatchResult{}, fmt.Errorf("reading upload: %v", err)
	}
	if err := writer.WriteField("threshold", fmt.Sprintf("%.2f", threshold)); err != nil {
		return BatchResult{}, fmt.Errorf("preparing upload: %v", err)
	}
	if err := writer.Close(); err != nil {
		return BatchResult{}, fmt.Errorf("preparing upload: %v", err)
	}

	var result BatchResult
	if err := c.do(ctx, "POST", "/predict/batch", writer.FormDataContentType(), &body, &result); err != nil {
		return BatchResult{}, err
	}
	if result.Error != "" {
		return BatchResult{}, fmt.Errorf("%s", result.Error)
	}
	return result, nil
}

// PredictFolder runs a batch against a server-side folder path.
func (c *RemoteClient) PredictFolder(ctx context.Context, folderPath string, threshold float64) (BatchResult, error) {
	payload := map[string]any{
		"folder_path": folderPath,
		"threshold":   threshold,
	}
	var result BatchResult
	if err := c.postJSON(ctx, "/predict/folder", payload, &result); err != nil {
		return BatchResult{}, err
	}
	if result.Error != "" {
		return BatchResult{}, fmt.Errorf("%s", result.Error)
	}
	return result, nil
}

// CurrentAlerts fetches the live alert list.
func (c *RemoteClient) CurrentAlerts(ctx context.Context) ([]Summary, error) {
	var resp alertsResponse
	if err := c.getJSON(ctx, "/alerts/current", &resp); err != nil {
		return nil, err
	}
	return resp.Rows(), nil
}

// TestConnection probes the status endpoint of an explicit base URL without
// touching the persisted setting, for the settings page connectivity check.
func TestConnection(ctx context.Context, baseURL string) (ModelStatus, error) {
	var status ModelStatus
	endpoint := strings.TrimRight(baseURL, "/") + apiPrefix + "/status"
	err := doRequest(ctx, "GET", endpoint, "", nil, &status)
	return status, err
}

func (c *RemoteClient) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, "GET", path, "", nil, out)
}

func (c *RemoteClient) postJSON(ctx context.Context, path string, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %v", err)
	}
	return c.do(ctx, "POST", path, "application/json", bytes.NewReader(encoded), out)
}

func (c *RemoteClient) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	endpoint := c.BaseURL() + apiPrefix + path
	return doRequest(ctx, method, endpoint, contentType, body, out)
}

func doRequest(ctx context.Context, method, endpoint, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach prediction service: %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := remoteErrorMessage(respBody)
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("prediction service returned %d: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unexpected response from prediction service: %v", err)
	}
	return nil
}

// remoteErrorMessage extracts an error/detail message from a failure body so
// the inline message shows the service's own wording when it offers one.
func remoteErrorMessage(body []byte) string {
	var envelope struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Error != "" {
		return envelope.Error
	}
	return envelope.Detail
}
