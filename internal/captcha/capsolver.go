package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	capsolverPollDelay = 3 * time.Second
	capsolverMaxPolls  = 40
	capsolverTaskType  = "AntiTurnstileTaskProxyLess"
)

// CapSolver is the primary challenge provider. It speaks the JSON
// createTask/getTaskResult protocol.
type CapSolver struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewCapSolver returns a CapSolver provider, or nil when no API key is
// configured so the chain skips it.
func NewCapSolver(apiKey, baseURL string) Provider {
	if apiKey == "" {
		return nil
	}
	return &CapSolver{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

// Name returns "capsolver".
func (c *CapSolver) Name() string {
	return "capsolver"
}

type capsolverTask struct {
	Type       string `json:"type"`
	WebsiteURL string `json:"websiteURL"`
	WebsiteKey string `json:"websiteKey"`
}

type capsolverResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription"`
	TaskID           string `json:"taskId"`
	Status           string `json:"status"`
	Solution         struct {
		Token string `json:"token"`
	} `json:"solution"`
}

// Solve submits the challenge and polls until the task is ready.
func (c *CapSolver) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	taskID, err := c.createTask(ctx, siteKey, pageURL)
	if err != nil {
		return "", err
	}

	for i := 0; i < capsolverMaxPolls; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(capsolverPollDelay):
		}

		res, err := c.post(ctx, "/getTaskResult", map[string]any{
			"clientKey": c.apiKey,
			"taskId":    taskID,
		})
		if err != nil {
			continue
		}
		if res.ErrorID != 0 {
			return "", fmt.Errorf("capsolver task failed: %s", res.ErrorDescription)
		}
		if res.Status == "ready" {
			if res.Solution.Token == "" {
				return "", fmt.Errorf("capsolver returned ready task without token")
			}
			return res.Solution.Token, nil
		}
	}

	return "", fmt.Errorf("capsolver task %s not ready after %d polls", taskID, capsolverMaxPolls)
}

func (c *CapSolver) createTask(ctx context.Context, siteKey, pageURL string) (string, error) {
	res, err := c.post(ctx, "/createTask", map[string]any{
		"clientKey": c.apiKey,
		"task": capsolverTask{
			Type:       capsolverTaskType,
			WebsiteURL: pageURL,
			WebsiteKey: siteKey,
		},
	})
	if err != nil {
		return "", err
	}
	if res.ErrorID != 0 {
		return "", fmt.Errorf("capsolver createTask failed: %s", res.ErrorDescription)
	}
	if res.TaskID == "" {
		return "", fmt.Errorf("capsolver createTask returned no task id")
	}
	return res.TaskID, nil
}

func (c *CapSolver) post(ctx context.Context, path string, payload any) (*capsolverResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capsolver request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("capsolver response read failed: %w", err)
	}

	var out capsolverResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("capsolver response parse failed: %w", err)
	}
	return &out, nil
}
