// Package shortapi is the client for the generation job API: create a job,
// query it by id, and normalize the result payload into plain URLs.
package shortapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vicraft/backend/internal/config"
)

// Job states reported by the provider.
const (
	StateInProgress = 1
	StateSuccess    = 2
	StateFailed     = 3
)

// ErrPollTimeout means a job was still in progress when polling ran out of
// attempts. Distinct from provider errors: a timed-out job may be treated as
// failed, a provider hiccup must not be.
var ErrPollTimeout = errors.New("job polling timed out")

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// JobStatus is one poll response for a job.
type JobStatus struct {
	Status int             `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &Client{
		apiKey:  cfg.ShortAPIKey,
		baseURL: strings.TrimRight(cfg.ShortAPIBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// CreateJob submits a generation job and returns the provider job id.
func (c *Client) CreateJob(ctx context.Context, model string, args map[string]any) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": model,
		"args":  args,
	})
	if err != nil {
		return "", fmt.Errorf("marshal job request: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/job/create"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post job create: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		if c.log != nil {
			c.log.Error("job create failed", "status", resp.StatusCode, "model", model, "body", truncateBody(rawBody))
		}
		return "", fmt.Errorf("provider error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
	}

	var createResp struct {
		Code int `json:"code"`
		Data struct {
			JobID string `json:"job_id"`
		} `json:"data"`
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rawBody, &createResp); err != nil {
		return "", fmt.Errorf("decode job create response: %w (body=%s)", err, truncateBody(rawBody))
	}

	// The job id usually sits under data, but some responses carry it at the
	// top level.
	jobID := createResp.Data.JobID
	if jobID == "" {
		jobID = createResp.JobID
	}
	if jobID == "" {
		return "", fmt.Errorf("no job_id in response (body=%s)", truncateBody(rawBody))
	}

	if c.log != nil {
		c.log.Info("job created", "job_id", jobID, "model", model)
	}
	return jobID, nil
}

// QueryJob fetches the current status of one job.
func (c *Client) QueryJob(ctx context.Context, jobID string) (*JobStatus, error) {
	endpoint := c.baseURL + "/api/v1/job/query?id=" + url.QueryEscape(jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get job status: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		if c.log != nil {
			c.log.Error("job query failed", "status", resp.StatusCode, "job_id", jobID, "body", truncateBody(rawBody))
		}
		return nil, fmt.Errorf("provider error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
	}

	var queryResp struct {
		Code int        `json:"code"`
		Data *JobStatus `json:"data"`
		JobStatus
	}
	if err := json.Unmarshal(rawBody, &queryResp); err != nil {
		return nil, fmt.Errorf("decode job status: %w (body=%s)", err, truncateBody(rawBody))
	}

	// Envelope form {code: 0, data: {...}} or the bare status object.
	if queryResp.Code == 0 && queryResp.Data != nil {
		return queryResp.Data, nil
	}
	status := queryResp.JobStatus
	return &status, nil
}

// PollJob queries a job until it settles or attempts run out. The caller owns
// the consequences of a timeout; nothing is refunded here.
func (c *Client) PollJob(ctx context.Context, jobID string, maxAttempts int, interval time.Duration) (*JobStatus, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		status, err := c.QueryJob(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case StateSuccess:
			if c.log != nil {
				c.log.Info("job completed", "job_id", jobID, "attempt", attempt+1)
			}
			return status, nil
		case StateFailed:
			if c.log != nil {
				c.log.Error("job failed", "job_id", jobID, "error", status.Error)
			}
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil, fmt.Errorf("%w: job %s after %d attempts", ErrPollTimeout, jobID, maxAttempts)
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
