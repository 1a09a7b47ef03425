package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// apiClient is a thin JSON client for the lotreeld HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(address string) (*apiClient, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("daemon API address is not configured; set paths.api_bind or pass --api")
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	parsed, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid API address %q: %w", address, err)
	}
	return &apiClient{
		baseURL: strings.TrimRight(parsed.String(), "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type apiError struct {
	Status int
	Kind   string
	Detail string
}

func (e *apiError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("daemon returned HTTP %d", e.Status)
}

func (c *apiClient) do(method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is lotreeld running? %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode}
		var decoded struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if json.Unmarshal(data, &decoded) == nil {
			apiErr.Detail = decoded.Error
			apiErr.Kind = decoded.Kind
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type listingView struct {
	ID           int64   `json:"id"`
	DealerID     string  `json:"dealer_id"`
	StockNumber  string  `json:"stock_number"`
	Year         int     `json:"year"`
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	Price        float64 `json:"price"`
	Status       string  `json:"status"`
	ErrorStage   string  `json:"error_stage"`
	ErrorMessage string  `json:"error_message"`
	Assets       struct {
		PhotosDir    string `json:"photos_dir"`
		ProcessedDir string `json:"processed_dir"`
		ScriptRef    string `json:"script_ref"`
		VoiceoverRef string `json:"voiceover_ref"`
		QRRef        string `json:"qr_ref"`
		VideoRef     string `json:"video_ref"`
	} `json:"assets"`
}

type jobView struct {
	ID           string  `json:"id"`
	ListingID    int64   `json:"listing_id"`
	Stage        string  `json:"stage"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	ErrorKind    string  `json:"error_kind"`
	ErrorMessage string  `json:"error_message"`
}

type scriptView struct {
	Content           string `json:"content"`
	WordCount         int    `json:"word_count"`
	EstimatedDuration int    `json:"estimated_duration_secs"`
	Status            string `json:"status"`
	RejectReason      string `json:"reject_reason"`
	Versions          int    `json:"versions"`
}

type videoView struct {
	ID           int64   `json:"id"`
	Duration     float64 `json:"duration_secs"`
	Resolution   string  `json:"resolution"`
	FileSize     int64   `json:"file_size"`
	Status       string  `json:"status"`
	RejectReason string  `json:"reject_reason"`
	PublicURL    string  `json:"public_url"`
}

type statusView struct {
	Version    string `json:"version"`
	ActiveJobs int    `json:"active_jobs"`
	Executors  []struct {
		Name   string `json:"name"`
		Ready  bool   `json:"ready"`
		Detail string `json:"detail"`
	} `json:"executors"`
}

func (c *apiClient) createListing(body map[string]any) (listingView, error) {
	var out listingView
	err := c.do(http.MethodPost, "/api/listings", body, &out)
	return out, err
}

func (c *apiClient) listListings(status string) ([]listingView, error) {
	path := "/api/listings"
	if status = strings.TrimSpace(status); status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out struct {
		Listings []listingView `json:"listings"`
	}
	err := c.do(http.MethodGet, path, nil, &out)
	return out.Listings, err
}

func (c *apiClient) getListing(id int64) (listingView, error) {
	var out listingView
	err := c.do(http.MethodGet, "/api/listings/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

func (c *apiClient) dispatch(id int64, stage string) (jobView, error) {
	var out jobView
	err := c.do(http.MethodPost, fmt.Sprintf("/api/listings/%d/dispatch", id),
		map[string]string{"stage": stage}, &out)
	return out, err
}

func (c *apiClient) regenerate(id int64, stage string) (jobView, error) {
	var out jobView
	err := c.do(http.MethodPost, fmt.Sprintf("/api/listings/%d/regenerate", id),
		map[string]string{"stage": stage}, &out)
	return out, err
}

func (c *apiClient) listJobs(listingID int64) ([]jobView, error) {
	path := "/api/jobs"
	if listingID > 0 {
		path += "?listing_id=" + strconv.FormatInt(listingID, 10)
	}
	var out struct {
		Jobs []jobView `json:"jobs"`
	}
	err := c.do(http.MethodGet, path, nil, &out)
	return out.Jobs, err
}

func (c *apiClient) getScript(id int64) (scriptView, error) {
	var out scriptView
	err := c.do(http.MethodGet, fmt.Sprintf("/api/listings/%d/script", id), nil, &out)
	return out, err
}

func (c *apiClient) updateScript(id int64, content, editedBy string) (scriptView, error) {
	var out scriptView
	err := c.do(http.MethodPut, fmt.Sprintf("/api/listings/%d/script", id),
		map[string]string{"content": content, "edited_by": editedBy}, &out)
	return out, err
}

func (c *apiClient) scriptAction(id int64, action string, body map[string]any) (scriptView, error) {
	var out scriptView
	err := c.do(http.MethodPost, fmt.Sprintf("/api/listings/%d/script/%s", id, action), body, &out)
	return out, err
}

func (c *apiClient) videoAction(id int64, action string, body map[string]any) (videoView, error) {
	var out videoView
	err := c.do(http.MethodPost, fmt.Sprintf("/api/listings/%d/video/%s", id, action), body, &out)
	return out, err
}

func (c *apiClient) status() (statusView, error) {
	var out statusView
	err := c.do(http.MethodGet, "/api/status", nil, &out)
	return out, err
}
