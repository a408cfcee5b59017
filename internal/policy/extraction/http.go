package extraction

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Config holds the external extraction service settings.
type Config struct {
	BaseURL string
	Token   string
	// CallbackURL, when set, asks the service to push completion
	// notifications; the poller still works without it.
	CallbackURL string
	// Seed salts the callback checksum.
	Seed string
	// MaxSubmitRetries bounds transient-error retries on Submit.
	MaxSubmitRetries int
}

// HTTPClient talks to the extraction task API. Submit creates a task and
// returns its id; FetchResult polls the task until it is done or failed.
type HTTPClient struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewHTTPClient(cfg Config, logger *slog.Logger) *HTTPClient {
	if cfg.MaxSubmitRetries <= 0 {
		cfg.MaxSubmitRetries = 3
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

type taskRequest struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	DataID      string `json:"data_id"`
	Callback    string `json:"callback,omitempty"`
	Seed        string `json:"seed,omitempty"`
}

type taskCreateResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

type taskStatusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    taskStatusData `json:"data"`
}

type taskStatusData struct {
	TaskID      string                `json:"task_id"`
	State       string                `json:"state"` // pending, running, done, failed
	ErrMsg      string                `json:"err_msg,omitempty"`
	Fields      map[string]fieldValue `json:"fields,omitempty"`
	NeedsReview []string              `json:"needs_review,omitempty"`
}

// Submit creates an extraction task. Transient transport errors are
// retried with exponential backoff up to MaxSubmitRetries before the
// error escalates to the caller.
func (c *HTTPClient) Submit(ctx context.Context, sub Submission) (string, error) {
	body, err := json.Marshal(taskRequest{
		Bucket:      sub.Bucket,
		Key:         sub.Key,
		ContentType: sub.ContentType,
		DataID:      sub.PolicyID,
		Callback:    c.cfg.CallbackURL,
		Seed:        c.cfg.Seed,
	})
	if err != nil {
		return "", fmt.Errorf("marshal task request: %w", err)
	}

	backoff := 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxSubmitRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		var result taskCreateResponse
		err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/extract/task", body, &result)
		if err != nil {
			lastErr = err
			c.logger.WarnContext(ctx, "extraction submit attempt failed",
				"policy_id", sub.PolicyID,
				"attempt", attempt+1,
				"error", err.Error(),
			)
			continue
		}
		if result.Code != 0 {
			// API-level rejection is not transient.
			return "", fmt.Errorf("extraction service rejected task: %s", result.Message)
		}
		return result.Data.TaskID, nil
	}
	return "", fmt.Errorf("extraction submit failed after %d attempts: %w", c.cfg.MaxSubmitRetries, lastErr)
}

// FetchResult reads the task state and normalizes it. Only true job
// failure maps to StateFailed; transport errors surface as errors so the
// poller can retry on its next tick.
func (c *HTTPClient) FetchResult(ctx context.Context, jobID string) (*Result, error) {
	var status taskStatusResponse
	url := fmt.Sprintf("%s/extract/task/%s", c.cfg.BaseURL, jobID)
	if err := c.do(ctx, http.MethodGet, url, nil, &status); err != nil {
		return nil, err
	}
	if status.Code != 0 {
		return nil, fmt.Errorf("extraction status error: %s", status.Message)
	}
	return normalize(status.Data), nil
}

func normalize(data taskStatusData) *Result {
	switch data.State {
	case "done":
		fields, conf, _ := decodeFields(data.Fields)
		return &Result{
			State:           StateCompleted,
			Fields:          fields,
			FieldConfidence: conf,
			FlaggedFields:   data.NeedsReview,
		}
	case "failed":
		msg := data.ErrMsg
		if msg == "" {
			msg = "extraction failed"
		}
		return &Result{State: StateFailed, ErrorMessage: msg}
	default:
		return &Result{State: StatePending}
	}
}

// DecodeCallback verifies and decodes a pushed completion notification.
// Checksum = SHA256(taskID + seed + content).
func (c *HTTPClient) DecodeCallback(checksum, content string) (jobID string, result *Result, err error) {
	var data taskStatusData
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return "", nil, fmt.Errorf("decode callback content: %w", err)
	}
	sum := sha256.Sum256([]byte(data.TaskID + c.cfg.Seed + content))
	want := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(want), []byte(checksum)) != 1 {
		return "", nil, fmt.Errorf("callback checksum mismatch")
	}
	return data.TaskID, normalize(data), nil
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("extraction service unreachable: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("extraction service status %d: %s", resp.StatusCode, string(payload))
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("malformed extraction response: %w", err)
	}
	return nil
}
