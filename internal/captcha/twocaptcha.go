package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	twoCaptchaPollDelay = 7 * time.Second
	twoCaptchaMaxPolls  = 15
)

// TwoCaptcha is the fallback challenge provider. It submits the challenge
// to in.php, receives a job id, and polls res.php until the job completes.
// A failed poll counts as "not yet ready", not a hard failure; only
// exhausting every attempt fails the solve.
type TwoCaptcha struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewTwoCaptcha returns a TwoCaptcha provider, or nil when no API key is
// configured.
func NewTwoCaptcha(apiKey, baseURL string, logger zerolog.Logger) Provider {
	if apiKey == "" {
		return nil
	}
	return &TwoCaptcha{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		logger:  logger,
	}
}

// Name returns "2captcha".
func (t *TwoCaptcha) Name() string {
	return "2captcha"
}

type twoCaptchaResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// Solve submits the challenge and polls for the solution token.
func (t *TwoCaptcha) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	jobID, err := t.submit(ctx, siteKey, pageURL)
	if err != nil {
		return "", err
	}
	t.logger.Debug().Str("job_id", jobID).Msg("challenge submitted to 2captcha")

	values := url.Values{
		"key":    {t.apiKey},
		"action": {"get"},
		"id":     {jobID},
		"json":   {"1"},
	}

	for attempt := 1; attempt <= twoCaptchaMaxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(twoCaptchaPollDelay):
		}

		result, err := t.request(ctx, "/res.php", values)
		if err != nil {
			t.logger.Warn().Err(err).Int("attempt", attempt).Msg("2captcha poll failed, treating as not ready")
			continue
		}

		if result.Status == 1 {
			return result.Request, nil
		}
		if result.Request != "CAPCHA_NOT_READY" {
			t.logger.Warn().Str("response", result.Request).Int("attempt", attempt).Msg("2captcha poll not ready")
		}
	}

	return "", fmt.Errorf("2captcha job %s unresolved after %d polls", jobID, twoCaptchaMaxPolls)
}

func (t *TwoCaptcha) submit(ctx context.Context, siteKey, pageURL string) (string, error) {
	values := url.Values{
		"key":     {t.apiKey},
		"method":  {"turnstile"},
		"sitekey": {siteKey},
		"pageurl": {pageURL},
		"json":    {"1"},
	}

	result, err := t.request(ctx, "/in.php", values)
	if err != nil {
		return "", fmt.Errorf("2captcha submit failed: %w", err)
	}
	if result.Status != 1 {
		return "", fmt.Errorf("2captcha submit rejected: %s", result.Request)
	}
	return result.Request, nil
}

func (t *TwoCaptcha) request(ctx context.Context, path string, values url.Values) (*twoCaptchaResponse, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out twoCaptchaResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unexpected response: %s", string(raw))
	}
	return &out, nil
}
